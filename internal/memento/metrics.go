// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package memento

import "github.com/prometheus/client_golang/prometheus"

// Status labels for memento operations.
const (
	StatusOK      = "ok"
	StatusHit     = "hit"
	StatusMiss    = "miss"
	StatusCorrupt = "corrupt"
	StatusError   = "error"
)

// Operations counts memento operations by scope, operation and outcome.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quayside_memento_operations_total",
		Help: "Total number of memento operations",
	},
	[]string{"scope", "operation", "status"},
)

// RegisterMetrics registers memento metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
}

// RecordOperation increments the operation counter.
func RecordOperation(scope Scope, op, status string) {
	Operations.WithLabelValues(string(scope), op, status).Inc()
}
