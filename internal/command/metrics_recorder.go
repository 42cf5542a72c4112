// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package command

import "time"

// MetricsRecorder tracks metrics for a single command execution.
type MetricsRecorder struct {
	startTime time.Time
	command   string
	tier      string
	status    string
}

// NewMetricsRecorder starts timing an execution of command.
func NewMetricsRecorder(command string) *MetricsRecorder {
	return &MetricsRecorder{startTime: time.Now(), command: command, status: StatusError}
}

// SetTier records which lookup tier resolved the command.
func (m *MetricsRecorder) SetTier(tier string) {
	m.tier = tier
}

// SetStatus sets the execution status.
func (m *MetricsRecorder) SetStatus(status string) {
	m.status = status
}

// Record writes the collected metrics. Executions that never resolved to a
// tier are counted but not timed.
func (m *MetricsRecorder) Record() {
	if m.command == "" {
		return
	}
	RecordCommandExecution(m.command, m.tier, m.status)
	if m.tier != "" {
		RecordCommandDuration(m.command, m.tier, time.Since(m.startTime))
	}
}
