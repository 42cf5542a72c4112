// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package bus

import "strings"

// Lifecycle events published by the runtime under PluginTopic.
const (
	EventLoaded    = "loaded"
	EventActivated = "activated"
	EventFailed    = "failed"
	EventUnloaded  = "unloaded"
)

// IsLifecycleEvent reports whether event is reserved for the runtime.
func IsLifecycleEvent(event string) bool {
	switch event {
	case EventLoaded, EventActivated, EventFailed, EventUnloaded:
		return true
	}
	return false
}

const (
	pluginRoot        = "plugin"
	configurationRoot = "configuration"
)

// PluginTopic namespaces an extension event as plugin.<extensionId>.<event>.
func PluginTopic(extensionID, event string) string {
	return pluginRoot + "." + extensionID + "." + event
}

// ParsePluginTopic splits a plugin topic into extension id and event name.
// Extension ids may contain dots, so the event is taken as the last segment.
func ParsePluginTopic(topic string) (extensionID, event string, ok bool) {
	rest, found := strings.CutPrefix(topic, pluginRoot+".")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// ConfigurationTopic is the topic emitted when the configuration key changes,
// or the root configuration topic when key is empty.
func ConfigurationTopic(key string) string {
	if key == "" {
		return configurationRoot
	}
	return configurationRoot + "." + key
}

// ConfigurationKey strips the configuration root from a topic.
func ConfigurationKey(topic string) string {
	key, _ := strings.CutPrefix(topic, configurationRoot+".")
	return key
}

// LifecycleEvent is the payload of runtime lifecycle topics.
type LifecycleEvent struct {
	ExtensionID string `json:"extensionId"`
	Version     string `json:"version,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	Error       string `json:"error,omitempty"`
}
