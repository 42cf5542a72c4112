// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package command

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterMetrics(reg) })
}

func TestMetricsRecorder_Record(t *testing.T) {
	before := testutil.ToFloat64(CommandExecutions.WithLabelValues("m.ok", TierLocal, StatusSuccess))

	rec := NewMetricsRecorder("m.ok")
	rec.SetTier(TierLocal)
	rec.SetStatus(StatusSuccess)
	rec.Record()

	after := testutil.ToFloat64(CommandExecutions.WithLabelValues("m.ok", TierLocal, StatusSuccess))
	assert.InDelta(t, 1, after-before, 0.0001)
}

func TestMetricsRecorder_DefaultsToError(t *testing.T) {
	before := testutil.ToFloat64(CommandExecutions.WithLabelValues("m.missing", "", StatusError))

	NewMetricsRecorder("m.missing").Record()

	after := testutil.ToFloat64(CommandExecutions.WithLabelValues("m.missing", "", StatusError))
	assert.InDelta(t, 1, after-before, 0.0001)
}

func TestRegistrationGauge(t *testing.T) {
	reg := NewRegistry()
	gauge := RegisteredCommands.WithLabelValues("gauge-owner")
	start := testutil.ToFloat64(gauge)

	dispose, err := reg.Register("g.one", func(context.Context, ...any) (any, error) { return nil, nil }, "gauge-owner")
	require.NoError(t, err)
	assert.InDelta(t, start+1, testutil.ToFloat64(gauge), 0.0001)

	dispose()
	assert.InDelta(t, start, testutil.ToFloat64(gauge), 0.0001)
}
