// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extsdk

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/quayside/quayside/pkg/extproto"
)

// Host is the extension's handle on the Capability API. Every call
// crosses the isolation channel.
type Host struct {
	peer *extproto.Peer

	mu            sync.RWMutex
	extensionID   string
	extensionPath string
	manifest      map[string]any
	commands      map[string]Handler
	local         map[string]bool
	listeners     map[string][]func(payload any)
}

func newHost(peer *extproto.Peer) *Host {
	return &Host{
		peer:      peer,
		commands:  make(map[string]Handler),
		local:     make(map[string]bool),
		listeners: make(map[string][]func(any)),
	}
}

func (h *Host) setIdentity(env *extproto.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.extensionPath = env.ExtensionPath
	h.manifest = env.Manifest
	if id, ok := env.Context["extensionId"].(string); ok {
		h.extensionID = id
	}
}

// ExtensionID is the id from the manifest.
func (h *Host) ExtensionID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.extensionID
}

// ExtensionPath is the package root.
func (h *Host) ExtensionPath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.extensionPath
}

// Manifest is the manifest as the host parsed it.
func (h *Host) Manifest() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.manifest
}

// Call invokes a Capability API method by name. The typed helpers cover
// the common ones.
func (h *Host) Call(ctx context.Context, method string, args ...any) (any, error) {
	reply, err := h.peer.Request(ctx, &extproto.Envelope{Type: extproto.TypeCall, Method: method, Args: args})
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (h *Host) callInto(ctx context.Context, dst any, method string, args ...any) error {
	v, err := h.Call(ctx, method, args...)
	if err != nil {
		return err
	}
	return extproto.Decode(v, dst)
}

// RegisterCommand registers a command in the host's global registry.
func (h *Host) RegisterCommand(ctx context.Context, id string, fn Handler) error {
	if id == "" || fn == nil {
		return oops.In("extsdk").Errorf("command needs an id and a handler")
	}
	h.mu.Lock()
	h.commands[id] = fn
	h.mu.Unlock()

	if _, err := h.Call(ctx, extproto.MethodCommandsRegister, id); err != nil {
		h.mu.Lock()
		delete(h.commands, id)
		h.mu.Unlock()
		return err
	}
	return nil
}

// RegisterLocalCommand adds a private command. It is reachable through
// executeCommand but not listed in the registry. Only commands added
// before Activate returns are announced to the host.
func (h *Host) RegisterLocalCommand(id string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands[id] = fn
	h.local[id] = true
}

func (h *Host) localIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.local))
	for id := range h.local {
		ids = append(ids, id)
	}
	return ids
}

func (h *Host) run(ctx context.Context, id string, args []any) (any, error) {
	h.mu.RLock()
	fn, ok := h.commands[id]
	h.mu.RUnlock()
	if !ok {
		return nil, oops.Code("COMMAND_NOT_FOUND").In("extsdk").With("command", id).Errorf("command %s not found", id)
	}
	return fn(ctx, args...)
}

// ExecuteCommand runs any command known to the host.
func (h *Host) ExecuteCommand(ctx context.Context, id string, args ...any) (any, error) {
	return h.Call(ctx, extproto.MethodCommandsExecute, append([]any{id}, args...)...)
}

// ShowMessage shows a notification. severity is info, warning or error.
func (h *Host) ShowMessage(ctx context.Context, text, severity string) error {
	_, err := h.Call(ctx, extproto.MethodShowMessage, text, severity)
	return err
}

// On subscribes to one of this extension's events.
func (h *Host) On(ctx context.Context, event string, fn func(payload any)) error {
	h.addListener(event, fn)
	_, err := h.Call(ctx, extproto.MethodEventsOn, event)
	return err
}

// Emit publishes an event under this extension's prefix.
func (h *Host) Emit(ctx context.Context, event string, payload any) (int, error) {
	var n int
	err := h.callInto(ctx, &n, extproto.MethodEventsEmit, event, payload)
	return n, err
}

// OnDidChangeConfiguration calls fn with the changed key whenever keys
// below section change.
func (h *Host) OnDidChangeConfiguration(ctx context.Context, section string, fn func(key string)) error {
	h.addListener(extproto.ConfigurationEvent(section), func(payload any) {
		key, _ := payload.(string)
		fn(key)
	})
	_, err := h.Call(ctx, extproto.MethodConfigWatch, section)
	return err
}

func (h *Host) addListener(name string, fn func(any)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[name] = append(h.listeners[name], fn)
}

func (h *Host) dispatch(name string, payload any) {
	h.mu.RLock()
	fns := append([]func(any){}, h.listeners[name]...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(payload)
	}
}

// Configuration returns section.key, or def when unset.
func (h *Host) Configuration(ctx context.Context, section, key string, def any) (any, error) {
	return h.Call(ctx, extproto.MethodConfigGet, section, key, def)
}

// UpdateConfiguration sets section.key.
func (h *Host) UpdateConfiguration(ctx context.Context, section, key string, value any) error {
	_, err := h.Call(ctx, extproto.MethodConfigUpdate, section, key, value)
	return err
}

// StorageGet returns the stored value for key, or def.
func (h *Host) StorageGet(ctx context.Context, key string, def any) (any, error) {
	return h.Call(ctx, extproto.MethodStorageGet, key, def)
}

// StorageSet stores value under key.
func (h *Host) StorageSet(ctx context.Context, key string, value any) error {
	_, err := h.Call(ctx, extproto.MethodStorageSet, key, value)
	return err
}

// Container is a container reported by the host's container backend.
type Container struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// ListContainers lists containers; all includes stopped ones.
func (h *Host) ListContainers(ctx context.Context, all bool) ([]Container, error) {
	var out []Container
	err := h.callInto(ctx, &out, extproto.MethodContainersList, all)
	return out, err
}

// Pod is a pod reported by the host's orchestration backend.
type Pod struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase"`
	Ready     string `json:"ready"`
	Restarts  int    `json:"restarts"`
}

// ListPods lists pods in namespace, or in the current namespace when
// empty.
func (h *Host) ListPods(ctx context.Context, namespace string) ([]Pod, error) {
	var out []Pod
	err := h.callInto(ctx, &out, extproto.MethodPodsList, namespace)
	return out, err
}

// OutputChannel is a named log pane in the host UI.
type OutputChannel struct {
	host   *Host
	handle string
}

// CreateOutputChannel creates an output channel.
func (h *Host) CreateOutputChannel(ctx context.Context, name string) (*OutputChannel, error) {
	var handle string
	if err := h.callInto(ctx, &handle, extproto.MethodOutputCreate, name); err != nil {
		return nil, err
	}
	return &OutputChannel{host: h, handle: handle}, nil
}

// AppendLine appends text and a newline.
func (c *OutputChannel) AppendLine(ctx context.Context, text string) error {
	_, err := c.host.Call(ctx, extproto.MethodOutputAppendLine, c.handle, text)
	return err
}

// Show reveals the channel.
func (c *OutputChannel) Show(ctx context.Context) error {
	_, err := c.host.Call(ctx, extproto.MethodOutputShow, c.handle)
	return err
}

// Dispose removes the channel.
func (c *OutputChannel) Dispose(ctx context.Context) error {
	_, err := c.host.Call(ctx, extproto.MethodOutputDispose, c.handle)
	return err
}
