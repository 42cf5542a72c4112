// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package ui is the window collaborator used when the host runs without a
// front end. Notifications go to a writer and the log; output channel and
// status bar state is kept for inspection; prompts are answered by an
// optional Prompter.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/quayside/quayside/internal/api"
)

// Prompter answers prompts. ok is false when the user dismissed it.
type Prompter interface {
	Prompt(ctx context.Context, extensionID, prompt string, choices []string) (answer string, ok bool)
}

// Headless implements api.UI.
type Headless struct {
	out      io.Writer
	prompter Prompter

	mu       sync.Mutex
	messages []api.Message
	outputs  map[string]api.OutputChannelState
	items    map[string]api.StatusBarItemState
}

var _ api.UI = (*Headless)(nil)

// New creates a headless UI writing notifications and shown output to
// out. A nil prompter dismisses every prompt.
func New(out io.Writer, prompter Prompter) *Headless {
	if out == nil {
		out = io.Discard
	}
	return &Headless{
		out:      out,
		prompter: prompter,
		outputs:  make(map[string]api.OutputChannelState),
		items:    make(map[string]api.StatusBarItemState),
	}
}

// ShowMessage implements api.UI.
func (h *Headless) ShowMessage(ctx context.Context, msg api.Message) {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()

	level := slog.LevelInfo
	switch msg.Severity {
	case api.SeverityWarning:
		level = slog.LevelWarn
	case api.SeverityError:
		level = slog.LevelError
	}
	slog.Log(ctx, level, "extension message", "extension", msg.ExtensionID, "text", msg.Text)
	_, _ = fmt.Fprintf(h.out, "[%s] %s: %s\n", msg.Severity, msg.ExtensionID, msg.Text)
}

// ShowInputBox implements api.UI.
func (h *Headless) ShowInputBox(ctx context.Context, extensionID string, opts api.InputBoxOptions) (string, bool, error) {
	if h.prompter == nil {
		return "", false, nil
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = opts.Title
	}
	v, ok := h.prompter.Prompt(ctx, extensionID, prompt, nil)
	if ok && v == "" {
		v = opts.Value
	}
	return v, ok, nil
}

// ShowQuickPick implements api.UI. Answers outside items count as
// dismissed.
func (h *Headless) ShowQuickPick(ctx context.Context, extensionID string, items []string, opts api.QuickPickOptions) (string, bool, error) {
	if h.prompter == nil || len(items) == 0 {
		return "", false, nil
	}
	v, ok := h.prompter.Prompt(ctx, extensionID, opts.Title, items)
	if !ok {
		return "", false, nil
	}
	for _, item := range items {
		if item == v {
			return v, true, nil
		}
	}
	return "", false, nil
}

// UpdateOutputChannel implements api.UI. Text appended to a visible
// channel is echoed to the writer.
func (h *Headless) UpdateOutputChannel(st api.OutputChannelState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.outputs[st.ID]
	if st.Disposed {
		delete(h.outputs, st.ID)
		return
	}
	h.outputs[st.ID] = st
	if !st.Visible {
		return
	}
	added := st.Content
	if prev.Visible && strings.HasPrefix(st.Content, prev.Content) {
		added = st.Content[len(prev.Content):]
	}
	for _, line := range strings.SplitAfter(added, "\n") {
		if line != "" {
			_, _ = fmt.Fprintf(h.out, "%s | %s", st.Name, line)
		}
	}
	if added != "" && !strings.HasSuffix(added, "\n") {
		_, _ = fmt.Fprintln(h.out)
	}
}

// UpdateStatusBarItem implements api.UI.
func (h *Headless) UpdateStatusBarItem(st api.StatusBarItemState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st.Disposed {
		delete(h.items, st.ID)
		return
	}
	h.items[st.ID] = st
}

// Messages returns every notification shown so far.
func (h *Headless) Messages() []api.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]api.Message(nil), h.messages...)
}

// OutputChannels returns live output channels sorted by name.
func (h *Headless) OutputChannels() []api.OutputChannelState {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]api.OutputChannelState, 0, len(h.outputs))
	for _, st := range h.outputs {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StatusBarItems returns visible items, left before right, higher
// priority first.
func (h *Headless) StatusBarItems() []api.StatusBarItemState {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]api.StatusBarItemState, 0, len(h.items))
	for _, st := range h.items {
		if st.Visible {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Alignment != out[j].Alignment {
			return out[i].Alignment < out[j].Alignment
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LinePrompter reads answers from a line-oriented reader such as a
// terminal. EOF dismisses the prompt, and so does cancelling the prompt's
// context. A line typed after a cancelled prompt answers the next one.
type LinePrompter struct {
	turn  chan struct{}
	out   io.Writer
	in    *bufio.Reader
	start sync.Once
	lines chan readLine
	eof   bool
}

type readLine struct {
	text string
	err  error
}

// NewLinePrompter prompts on out and reads from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		turn:  make(chan struct{}, 1),
		out:   out,
		in:    bufio.NewReader(in),
		lines: make(chan readLine),
	}
}

// readLines runs for the life of the reader; a blocked read cannot be
// interrupted.
func (p *LinePrompter) readLines() {
	for {
		line, err := p.in.ReadString('\n')
		p.lines <- readLine{text: line, err: err}
		if err != nil {
			return
		}
	}
}

// Prompt implements Prompter. A numeric answer picks from choices.
func (p *LinePrompter) Prompt(ctx context.Context, extensionID, prompt string, choices []string) (string, bool) {
	select {
	case p.turn <- struct{}{}:
	case <-ctx.Done():
		return "", false
	}
	defer func() { <-p.turn }()
	if p.eof {
		return "", false
	}
	p.start.Do(func() { go p.readLines() })

	for i, c := range choices {
		_, _ = fmt.Fprintf(p.out, "  %d) %s\n", i+1, c)
	}
	_, _ = fmt.Fprintf(p.out, "%s [%s]: ", prompt, extensionID)

	var got readLine
	select {
	case got = <-p.lines:
	case <-ctx.Done():
		return "", false
	}
	if got.err != nil {
		p.eof = true
		if got.text == "" {
			return "", false
		}
	}
	line := strings.TrimSpace(got.text)
	var n int
	if _, err := fmt.Sscanf(line, "%d", &n); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	return line, true
}
