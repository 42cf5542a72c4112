// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package sandbox

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/configuration"
	"github.com/quayside/quayside/internal/memento"
	"github.com/quayside/quayside/pkg/extproto"
)

// CodeBadCall is returned for calls naming an unknown method or passing
// malformed arguments.
const CodeBadCall = "SANDBOX_BAD_CALL"

type callFunc func(ctx context.Context, a args) (any, error)

// dispatcher serves Capability API calls for one extension. Handles to
// output channels and status bar items live here; the API's tracker
// disposes the underlying objects on unload.
type dispatcher struct {
	m       *module
	methods map[string]callFunc

	mu      sync.Mutex
	outputs map[string]*api.OutputChannel
	items   map[string]*api.StatusBarItem
}

func newDispatcher(m *module) *dispatcher {
	d := &dispatcher{
		m:       m,
		outputs: make(map[string]*api.OutputChannel),
		items:   make(map[string]*api.StatusBarItem),
	}
	d.methods = map[string]callFunc{
		extproto.MethodCommandsRegister: d.registerCommand,
		extproto.MethodCommandsExecute:  d.executeCommand,
		extproto.MethodCommandsList:     d.listCommands,

		extproto.MethodEventsEmit: d.emit,
		extproto.MethodEventsOn:   d.on,

		extproto.MethodShowMessage:   d.showMessage,
		extproto.MethodShowInputBox:  d.showInputBox,
		extproto.MethodShowQuickPick: d.showQuickPick,

		extproto.MethodOutputCreate:     d.createOutput,
		extproto.MethodOutputAppend:     d.output(func(c *api.OutputChannel, a args) { c.Append(a.string(1)) }),
		extproto.MethodOutputAppendLine: d.output(func(c *api.OutputChannel, a args) { c.AppendLine(a.string(1)) }),
		extproto.MethodOutputClear:      d.output(func(c *api.OutputChannel, _ args) { c.Clear() }),
		extproto.MethodOutputShow:       d.output(func(c *api.OutputChannel, _ args) { c.Show() }),
		extproto.MethodOutputHide:       d.output(func(c *api.OutputChannel, _ args) { c.Hide() }),
		extproto.MethodOutputDispose:    d.disposeOutput,

		extproto.MethodStatusBarCreate:  d.createItem,
		extproto.MethodStatusBarUpdate:  d.updateItem,
		extproto.MethodStatusBarDispose: d.disposeItem,

		extproto.MethodConfigGet:        d.configGet,
		extproto.MethodConfigUpdate:     d.configUpdate,
		extproto.MethodConfigWatch:      d.configWatch,
		extproto.MethodOpenTextDocument: d.openTextDocument,
		extproto.MethodApplyEdit:        d.applyEdit,

		extproto.MethodStorageGet:    d.storageGet,
		extproto.MethodStorageSet:    d.storageSet,
		extproto.MethodStorageDelete: d.storageDelete,
		extproto.MethodStorageKeys:   d.storageKeys,

		extproto.MethodStateGet:    d.stateGet,
		extproto.MethodStateUpdate: d.stateUpdate,

		extproto.MethodContainersList:  d.listContainers,
		extproto.MethodContainersStart: d.startContainer,
		extproto.MethodContainersStop:  d.stopContainer,
		extproto.MethodContainersExec:  d.execContainer,

		extproto.MethodPodsList:       d.listPods,
		extproto.MethodApplyManifest:  d.applyManifest,
		extproto.MethodDeleteResource: d.deleteResource,

		extproto.MethodRunPlaybook:      d.runPlaybook,
		extproto.MethodValidatePlaybook: d.validatePlaybook,
		extproto.MethodEncryptSecret:    d.encryptSecret,
	}
	return d
}

// Methods lists the methods a sandboxed extension may call.
func Methods() []string {
	d := newDispatcher(&module{})
	out := make([]string, 0, len(d.methods))
	for name := range d.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (d *dispatcher) call(ctx context.Context, method string, raw []any) (result any, err error) {
	fn, ok := d.methods[method]
	if !ok {
		return nil, oops.Code(CodeBadCall).In("sandbox").With("extension", d.m.id).With("method", method).
			Errorf("unknown method %q", method)
	}
	a := args{method: method, values: raw}
	defer func() {
		if r := recover(); r != nil {
			if bad, ok := r.(badArg); ok {
				err = oops.Code(CodeBadCall).In("sandbox").With("extension", d.m.id).With("method", method).
					Errorf("argument %d: %s", bad.index, bad.reason)
				return
			}
			panic(r)
		}
	}()
	return fn(ctx, a)
}

// args reads positional arguments. Malformed arguments abort the call
// with CodeBadCall.
type args struct {
	method string
	values []any
}

type badArg struct {
	index  int
	reason string
}

func (a args) value(i int) any {
	if i < len(a.values) {
		return a.values[i]
	}
	return nil
}

func (a args) string(i int) string {
	switch v := a.value(i).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		panic(badArg{i, "want a string"})
	}
}

func (a args) required(i int) string {
	s := a.string(i)
	if s == "" {
		panic(badArg{i, "is required"})
	}
	return s
}

func (a args) bool(i int) bool {
	v, _ := a.value(i).(bool)
	return v
}

func (a args) int(i int) int {
	switch v := a.value(i).(type) {
	case nil:
		return 0
	case float64:
		return int(v)
	default:
		panic(badArg{i, "want a number"})
	}
}

func (a args) decode(i int, dst any) {
	if err := extproto.Decode(a.value(i), dst); err != nil {
		panic(badArg{i, err.Error()})
	}
}

func (a args) from(i int) []any {
	if i < len(a.values) {
		return a.values[i:]
	}
	return nil
}

func (d *dispatcher) registerCommand(_ context.Context, a args) (any, error) {
	id := a.required(0)
	if _, err := d.m.api.Commands.Register(id, d.m.remote(id)); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *dispatcher) executeCommand(ctx context.Context, a args) (any, error) {
	return d.m.api.Commands.Execute(ctx, a.required(0), a.from(1)...)
}

func (d *dispatcher) listCommands(context.Context, args) (any, error) {
	return d.m.api.Commands.List(), nil
}

func (d *dispatcher) emit(_ context.Context, a args) (any, error) {
	return d.m.api.Events.Emit(a.required(0), a.value(1))
}

// on forwards the extension's own events back to it as "event" envelopes.
func (d *dispatcher) on(_ context.Context, a args) (any, error) {
	name := a.required(0)
	_, err := d.m.api.Events.On(name, func(payload any) {
		_ = d.m.peer.Notify(name, payload)
	})
	return nil, err
}

func (d *dispatcher) showMessage(ctx context.Context, a args) (any, error) {
	return nil, d.m.api.Window.ShowMessage(ctx, a.string(0), api.ParseSeverity(a.string(1)))
}

func (d *dispatcher) showInputBox(ctx context.Context, a args) (any, error) {
	var opts api.InputBoxOptions
	a.decode(0, &opts)
	value, ok, err := d.m.api.Window.ShowInputBox(ctx, opts)
	if err != nil || !ok {
		return nil, err
	}
	return value, nil
}

func (d *dispatcher) showQuickPick(ctx context.Context, a args) (any, error) {
	var items []string
	var opts api.QuickPickOptions
	a.decode(0, &items)
	a.decode(1, &opts)
	value, ok, err := d.m.api.Window.ShowQuickPick(ctx, items, opts)
	if err != nil || !ok {
		return nil, err
	}
	return value, nil
}

func (d *dispatcher) createOutput(_ context.Context, a args) (any, error) {
	ch, err := d.m.api.Window.CreateOutputChannel(a.required(0))
	if err != nil {
		return nil, err
	}
	handle := ulid.Make().String()
	d.mu.Lock()
	d.outputs[handle] = ch
	d.mu.Unlock()
	return handle, nil
}

func (d *dispatcher) lookupOutput(a args) *api.OutputChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.outputs[a.required(0)]
	if !ok {
		panic(badArg{0, "unknown output channel"})
	}
	return ch
}

func (d *dispatcher) output(fn func(c *api.OutputChannel, a args)) callFunc {
	return func(_ context.Context, a args) (any, error) {
		fn(d.lookupOutput(a), a)
		return nil, nil
	}
}

func (d *dispatcher) disposeOutput(_ context.Context, a args) (any, error) {
	ch := d.lookupOutput(a)
	ch.Dispose()
	d.mu.Lock()
	delete(d.outputs, a.required(0))
	d.mu.Unlock()
	return nil, nil
}

func (d *dispatcher) createItem(_ context.Context, a args) (any, error) {
	alignment := api.AlignLeft
	if a.string(0) == "right" {
		alignment = api.AlignRight
	}
	item, err := d.m.api.Window.CreateStatusBarItem(alignment, a.int(1))
	if err != nil {
		return nil, err
	}
	handle := ulid.Make().String()
	d.mu.Lock()
	d.items[handle] = item
	d.mu.Unlock()
	return handle, nil
}

func (d *dispatcher) lookupItem(a args) *api.StatusBarItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	item, ok := d.items[a.required(0)]
	if !ok {
		panic(badArg{0, "unknown status bar item"})
	}
	return item
}

// statusBarUpdate is the second argument of statusBar.update. Absent
// fields are left unchanged.
type statusBarUpdate struct {
	Text    *string `json:"text"`
	Tooltip *string `json:"tooltip"`
	Command *string `json:"command"`
	Visible *bool   `json:"visible"`
}

func (d *dispatcher) updateItem(_ context.Context, a args) (any, error) {
	item := d.lookupItem(a)
	var u statusBarUpdate
	a.decode(1, &u)
	if u.Text != nil {
		item.SetText(*u.Text)
	}
	if u.Tooltip != nil {
		item.SetTooltip(*u.Tooltip)
	}
	if u.Command != nil {
		item.SetCommand(*u.Command)
	}
	if u.Visible != nil {
		if *u.Visible {
			item.Show()
		} else {
			item.Hide()
		}
	}
	return item.State(), nil
}

func (d *dispatcher) disposeItem(_ context.Context, a args) (any, error) {
	item := d.lookupItem(a)
	item.Dispose()
	d.mu.Lock()
	delete(d.items, a.required(0))
	d.mu.Unlock()
	return nil, nil
}

func (d *dispatcher) configGet(_ context.Context, a args) (any, error) {
	return d.m.api.Workspace.GetConfiguration(a.string(0)).Get(a.string(1), a.value(2)), nil
}

func (d *dispatcher) configUpdate(_ context.Context, a args) (any, error) {
	return nil, d.m.api.Workspace.GetConfiguration(a.string(0)).Update(a.required(1), a.value(2))
}

func (d *dispatcher) configWatch(_ context.Context, a args) (any, error) {
	section := a.string(0)
	event := extproto.ConfigurationEvent(section)
	_, err := d.m.api.Workspace.OnDidChangeConfiguration(section, func(ev configuration.ChangeEvent) {
		_ = d.m.peer.Notify(event, ev.Key)
	})
	return nil, err
}

func (d *dispatcher) openTextDocument(ctx context.Context, a args) (any, error) {
	doc, err := d.m.api.Workspace.OpenTextDocument(ctx, a.required(0))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"uri":        doc.URI,
		"languageId": doc.LanguageID,
		"text":       doc.Text(),
		"lineCount":  doc.LineCount(),
	}, nil
}

func (d *dispatcher) applyEdit(ctx context.Context, a args) (any, error) {
	var edit api.WorkspaceEdit
	a.decode(0, &edit)
	return d.m.api.Workspace.ApplyEdit(ctx, edit), nil
}

func (d *dispatcher) storageGet(ctx context.Context, a args) (any, error) {
	return d.m.api.Storage.Get(ctx, a.required(0), a.value(1)), nil
}

func (d *dispatcher) storageSet(ctx context.Context, a args) (any, error) {
	return nil, d.m.api.Storage.Set(ctx, a.required(0), a.value(1))
}

func (d *dispatcher) storageDelete(ctx context.Context, a args) (any, error) {
	return nil, d.m.api.Storage.Delete(ctx, a.required(0))
}

func (d *dispatcher) storageKeys(ctx context.Context, _ args) (any, error) {
	return d.m.api.Storage.Keys(ctx)
}

func (d *dispatcher) state(a args) *memento.Memento {
	var m *memento.Memento
	switch a.string(0) {
	case extproto.StateGlobal, "":
		m = d.m.api.GlobalState
	case extproto.StateWorkspace:
		m = d.m.api.WorkspaceState
	default:
		panic(badArg{0, "scope must be global or workspace"})
	}
	if m == nil {
		panic(badArg{0, "no memento store is configured"})
	}
	return m
}

func (d *dispatcher) stateGet(ctx context.Context, a args) (any, error) {
	return d.state(a).Get(ctx, a.required(1), a.value(2)), nil
}

func (d *dispatcher) stateUpdate(ctx context.Context, a args) (any, error) {
	return nil, d.state(a).Update(ctx, a.required(1), a.value(2))
}

func (d *dispatcher) listContainers(ctx context.Context, a args) (any, error) {
	return d.m.api.Containers.List(ctx, a.bool(0))
}

func (d *dispatcher) startContainer(ctx context.Context, a args) (any, error) {
	return nil, d.m.api.Containers.Start(ctx, a.string(0))
}

func (d *dispatcher) stopContainer(ctx context.Context, a args) (any, error) {
	return nil, d.m.api.Containers.Stop(ctx, a.string(0))
}

func (d *dispatcher) execContainer(ctx context.Context, a args) (any, error) {
	var cmd []string
	a.decode(1, &cmd)
	return d.m.api.Containers.Exec(ctx, a.string(0), cmd)
}

func (d *dispatcher) listPods(ctx context.Context, a args) (any, error) {
	return d.m.api.Orchestration.ListPods(ctx, a.string(0))
}

func (d *dispatcher) applyManifest(ctx context.Context, a args) (any, error) {
	return d.m.api.Orchestration.ApplyManifest(ctx, a.string(0))
}

func (d *dispatcher) deleteResource(ctx context.Context, a args) (any, error) {
	return nil, d.m.api.Orchestration.DeleteResource(ctx, a.string(0), a.string(1), a.string(2))
}

func (d *dispatcher) runPlaybook(ctx context.Context, a args) (any, error) {
	var req api.PlaybookRequest
	a.decode(0, &req)
	return d.m.api.Automation.RunPlaybook(ctx, req)
}

func (d *dispatcher) validatePlaybook(ctx context.Context, a args) (any, error) {
	return d.m.api.Automation.ValidatePlaybook(ctx, a.string(0))
}

func (d *dispatcher) encryptSecret(ctx context.Context, a args) (any, error) {
	return d.m.api.Automation.EncryptSecret(ctx, a.string(0), a.string(1))
}
