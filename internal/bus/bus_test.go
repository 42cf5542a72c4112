// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/bus"
)

func TestBus_EmitDeliversInSubscriptionOrder(t *testing.T) {
	b := bus.New()
	var order []string
	b.On("t", func(string, any) { order = append(order, "first") })
	b.OnPrefix("t", func(string, any) { order = append(order, "second") })
	b.On("t", func(string, any) { order = append(order, "third") })

	n := b.Emit("t", nil)

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	b := bus.New()
	var got []any
	b.On("t", func(string, any) { panic("bad subscriber") })
	b.On("t", func(_ string, p any) { got = append(got, p) })

	require.NotPanics(t, func() { b.Emit("t", 42) })
	assert.Equal(t, []any{42}, got)
}

func TestBus_UnsubscribeAfterFire(t *testing.T) {
	b := bus.New()
	calls := 0
	unsub := b.On("t", func(string, any) { calls++ })

	b.Emit("t", nil)
	unsub()
	unsub()
	b.Emit("t", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Len())
}

func TestBus_SubscribeDuringEmitAppliesNextTime(t *testing.T) {
	b := bus.New()
	late := 0
	b.On("t", func(string, any) {
		b.On("t", func(string, any) { late++ })
	})

	b.Emit("t", nil)
	assert.Equal(t, 0, late)

	b.Emit("t", nil)
	assert.Equal(t, 1, late)
}

func TestBus_ExactTopicDoesNotMatchChildren(t *testing.T) {
	b := bus.New()
	calls := 0
	b.On("configuration.docker", func(string, any) { calls++ })

	b.Emit("configuration.docker.socketPath", nil)
	assert.Equal(t, 0, calls)
}

func TestBus_PrefixStopsAtDotBoundary(t *testing.T) {
	b := bus.New()
	var seen []string
	b.OnPrefix(bus.ConfigurationTopic("docker"), func(topic string, _ any) {
		seen = append(seen, bus.ConfigurationKey(topic))
	})

	b.Emit(bus.ConfigurationTopic("docker.socketPath"), nil)
	b.Emit(bus.ConfigurationTopic("dockerx.other"), nil)
	b.Emit(bus.ConfigurationTopic("docker"), nil)

	assert.Equal(t, []string{"docker.socketPath", "docker"}, seen)
}

func TestSectionMatches(t *testing.T) {
	tests := []struct {
		section, changed string
		want             bool
	}{
		{"docker", "docker", true},
		{"docker", "docker.socketPath", true},
		{"docker", "docker.a.b", true},
		{"docker", "dockerx.other", false},
		{"docker", "dockerx", false},
		{"docker.socketPath", "docker", false},
		{"", "anything", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bus.SectionMatches(tt.section, tt.changed), "%q vs %q", tt.section, tt.changed)
	}
}

func TestPluginTopic(t *testing.T) {
	topic := bus.PluginTopic("acme.tools", bus.EventLoaded)
	assert.Equal(t, "plugin.acme.tools.loaded", topic)

	id, event, ok := bus.ParsePluginTopic(topic)
	require.True(t, ok)
	assert.Equal(t, "acme.tools", id)
	assert.Equal(t, "loaded", event)

	for _, bad := range []string{"configuration.x", "plugin.", "plugin.x", "plugin.x."} {
		_, _, ok := bus.ParsePluginTopic(bad)
		assert.False(t, ok, bad)
	}
}

func TestIsLifecycleEvent(t *testing.T) {
	for _, ev := range []string{bus.EventLoaded, bus.EventActivated, bus.EventFailed, bus.EventUnloaded} {
		assert.True(t, bus.IsLifecycleEvent(ev), ev)
	}
	assert.False(t, bus.IsLifecycleEvent("ready"))
	assert.False(t, bus.IsLifecycleEvent("Loaded"))
}
