// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Load outcome labels.
const (
	LoadSuccess = "success"
	LoadFailure = "failure"
	LoadTimeout = "timeout"
)

// ExtensionLoads counts load attempts by strategy and outcome.
var ExtensionLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quayside_extension_loads_total",
		Help: "Total number of extension load attempts",
	},
	[]string{"strategy", "status"},
)

// ExtensionLoadDuration times loads including activation.
var ExtensionLoadDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "quayside_extension_load_duration_seconds",
		Help:    "Extension load and activation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"strategy"},
)

// ActiveExtensions tracks loaded instances by strategy.
var ActiveExtensions = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "quayside_extensions_active",
		Help: "Number of active extension instances",
	},
	[]string{"strategy"},
)

// RegisterMetrics registers extension metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ExtensionLoads)
	reg.MustRegister(ExtensionLoadDuration)
	reg.MustRegister(ActiveExtensions)
}

func recordLoad(strategy Strategy, status string, d time.Duration) {
	label := string(strategy)
	if label == "" {
		label = "unresolved"
	}
	ExtensionLoads.WithLabelValues(label, status).Inc()
	ExtensionLoadDuration.WithLabelValues(label).Observe(d.Seconds())
}
