// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for command execution metrics.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Tier constants label where a command was resolved.
const (
	TierGlobal = "global"
	TierLocal  = "local"
)

// CommandExecutions is the counter for command executions.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quayside_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"command", "tier", "status"},
)

// CommandDuration is the histogram for command execution duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "quayside_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command", "tier"},
)

// RegisteredCommands tracks live registrations per owner.
var RegisteredCommands = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "quayside_registered_commands",
		Help: "Number of commands currently registered, by owner",
	},
	[]string{"owner"},
)

// RegisterMetrics registers command package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
	reg.MustRegister(RegisteredCommands)
}

// RecordCommandExecution increments the command execution counter.
func RecordCommandExecution(command, tier, status string) {
	CommandExecutions.WithLabelValues(command, tier, status).Inc()
}

// RecordCommandDuration records how long a command took.
func RecordCommandDuration(command, tier string, duration time.Duration) {
	CommandDuration.WithLabelValues(command, tier).Observe(duration.Seconds())
}

// RecordRegistration adjusts the live registration gauge for owner.
func RecordRegistration(owner string, delta float64) {
	RegisteredCommands.WithLabelValues(owner).Add(delta)
}
