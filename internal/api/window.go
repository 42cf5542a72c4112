// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/quayside/quayside/internal/capability"
)

func nextHandle(kind, extensionID string) string {
	return kind + ":" + extensionID + ":" + ulid.Make().String()
}

// Window is the window namespace.
type Window struct {
	binding
}

// ShowMessage displays text at severity. It requires notifications.
func (w *Window) ShowMessage(ctx context.Context, text string, severity Severity) error {
	if err := w.require(capability.Notifications); err != nil {
		return err
	}
	if w.deps.UI != nil {
		w.deps.UI.ShowMessage(ctx, Message{ExtensionID: w.extensionID(), Text: text, Severity: severity})
	}
	return nil
}

// ShowInputBox asks the user for a string. ok is false when the user
// dismissed the prompt or no UI is attached.
func (w *Window) ShowInputBox(ctx context.Context, opts InputBoxOptions) (value string, ok bool, err error) {
	if err := w.live(); err != nil {
		return "", false, err
	}
	if w.deps.UI == nil {
		return "", false, nil
	}
	return w.deps.UI.ShowInputBox(ctx, w.extensionID(), opts)
}

// ShowQuickPick asks the user to choose one of items.
func (w *Window) ShowQuickPick(ctx context.Context, items []string, opts QuickPickOptions) (value string, ok bool, err error) {
	if err := w.live(); err != nil {
		return "", false, err
	}
	if len(items) == 0 || w.deps.UI == nil {
		return "", false, nil
	}
	return w.deps.UI.ShowQuickPick(ctx, w.extensionID(), items, opts)
}

// CreateOutputChannel returns a named, append-only log pane. It is disposed
// on unload.
func (w *Window) CreateOutputChannel(name string) (*OutputChannel, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	ch := &OutputChannel{ui: w.deps.UI, state: OutputChannelState{
		ID:          nextHandle("output", w.extensionID()),
		ExtensionID: w.extensionID(),
		Name:        name,
	}}
	w.track(ch)
	ch.push()
	return ch, nil
}

// CreateStatusBarItem returns a hidden status bar item. It is disposed on
// unload.
func (w *Window) CreateStatusBarItem(alignment Alignment, priority int) (*StatusBarItem, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	item := &StatusBarItem{ui: w.deps.UI, state: StatusBarItemState{
		ID:          nextHandle("status", w.extensionID()),
		ExtensionID: w.extensionID(),
		Alignment:   alignment,
		Priority:    priority,
	}}
	w.track(item)
	return item, nil
}

// OutputChannel accumulates text for display.
type OutputChannel struct {
	mu    sync.Mutex
	ui    UI
	buf   strings.Builder
	state OutputChannelState
}

func (c *OutputChannel) push() {
	if c.ui == nil {
		return
	}
	st := c.state
	st.Content = c.buf.String()
	c.ui.UpdateOutputChannel(st)
}

func (c *OutputChannel) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Disposed {
		return
	}
	fn()
	c.push()
}

// Name returns the channel name.
func (c *OutputChannel) Name() string { return c.state.Name }

// Append adds text.
func (c *OutputChannel) Append(text string) {
	c.update(func() { c.buf.WriteString(text) })
}

// AppendLine adds text and a newline.
func (c *OutputChannel) AppendLine(text string) {
	c.update(func() {
		c.buf.WriteString(text)
		c.buf.WriteByte('\n')
	})
}

// Clear empties the channel.
func (c *OutputChannel) Clear() {
	c.update(c.buf.Reset)
}

// Show reveals the channel.
func (c *OutputChannel) Show() {
	c.update(func() { c.state.Visible = true })
}

// Hide conceals the channel.
func (c *OutputChannel) Hide() {
	c.update(func() { c.state.Visible = false })
}

// Content returns everything appended since the last Clear.
func (c *OutputChannel) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Dispose removes the channel. Further writes are ignored.
func (c *OutputChannel) Dispose() {
	c.update(func() {
		c.state.Visible = false
		c.state.Disposed = true
	})
}

// StatusBarItem is a short piece of text in the host status bar.
type StatusBarItem struct {
	mu    sync.Mutex
	ui    UI
	state StatusBarItemState
}

func (s *StatusBarItem) update(fn func(*StatusBarItemState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Disposed {
		return
	}
	fn(&s.state)
	if s.ui != nil {
		s.ui.UpdateStatusBarItem(s.state)
	}
}

// SetText changes the displayed text.
func (s *StatusBarItem) SetText(text string) {
	s.update(func(st *StatusBarItemState) { st.Text = text })
}

// SetTooltip changes the hover text.
func (s *StatusBarItem) SetTooltip(tooltip string) {
	s.update(func(st *StatusBarItemState) { st.Tooltip = tooltip })
}

// SetCommand sets the command run when the item is clicked.
func (s *StatusBarItem) SetCommand(id string) {
	s.update(func(st *StatusBarItemState) { st.Command = id })
}

// Show displays the item.
func (s *StatusBarItem) Show() {
	s.update(func(st *StatusBarItemState) { st.Visible = true })
}

// Hide removes the item from view without disposing it.
func (s *StatusBarItem) Hide() {
	s.update(func(st *StatusBarItemState) { st.Visible = false })
}

// State returns a snapshot of the item.
func (s *StatusBarItem) State() StatusBarItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispose removes the item.
func (s *StatusBarItem) Dispose() {
	s.update(func(st *StatusBarItemState) {
		st.Visible = false
		st.Disposed = true
	})
}
