// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package lua

import (
	"context"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/logging"
)

// host builds the global "host" table a script talks to. Every function
// follows the value, err convention: on failure the first result is nil
// and the second is a message.
type host struct {
	m   *module
	api *api.API
}

func newHostTable(L *lua.LState, m *module, ec *extension.Context) *lua.LTable {
	h := &host{m: m, api: ec.API}

	root := L.NewTable()
	L.SetFuncs(root, map[string]lua.LGFunction{
		"log":    h.log,
		"new_id": h.newID,
	})
	root.RawSetString("commands", h.namespace(L, map[string]lua.LGFunction{
		"register": h.registerCommand,
		"execute":  h.executeCommand,
		"list":     h.listCommands,
	}))
	root.RawSetString("events", h.namespace(L, map[string]lua.LGFunction{
		"emit": h.emit,
		"on":   h.on,
	}))
	root.RawSetString("window", h.namespace(L, map[string]lua.LGFunction{
		"show_message":          h.showMessage,
		"create_output_channel": h.createOutputChannel,
	}))
	root.RawSetString("storage", h.namespace(L, map[string]lua.LGFunction{
		"get":    h.storageGet,
		"set":    h.storageSet,
		"delete": h.storageDelete,
		"keys":   h.storageKeys,
	}))
	root.RawSetString("config", h.namespace(L, map[string]lua.LGFunction{
		"get":    h.configGet,
		"update": h.configUpdate,
	}))
	root.RawSetString("containers", h.namespace(L, map[string]lua.LGFunction{
		"list":  h.listContainers,
		"start": h.startContainer,
		"stop":  h.stopContainer,
		"exec":  h.execContainer,
	}))
	root.RawSetString("orchestration", h.namespace(L, map[string]lua.LGFunction{
		"list_pods": h.listPods,
	}))
	root.RawSetString("automation", h.namespace(L, map[string]lua.LGFunction{
		"validate":     h.validatePlaybook,
		"run_playbook": h.runPlaybook,
	}))
	return root
}

func (h *host) namespace(L *lua.LState, fns map[string]lua.LGFunction) *lua.LTable {
	t := L.NewTable()
	L.SetFuncs(t, fns)
	return t
}

func pushError(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func pushSuccess(L *lua.LState, v lua.LValue) int {
	L.Push(v)
	L.Push(lua.LNil)
	return 2
}

// ctx returns the context of the call running on L.
func (h *host) ctx(L *lua.LState) context.Context {
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithExtension(ctx, h.m.id)
}

func (h *host) log(L *lua.LState) int {
	level := strings.ToLower(L.CheckString(1))
	msg := L.CheckString(2)

	attrs := []any{"extension", h.m.id}
	if fields := L.OptTable(3, nil); fields != nil {
		for _, k := range sortedKeys(fields) {
			attrs = append(attrs, k, fromLua(fields.RawGetString(k)))
		}
	}

	ctx := h.ctx(L)
	switch level {
	case "debug":
		slog.DebugContext(ctx, msg, attrs...)
	case "warn", "warning":
		slog.WarnContext(ctx, msg, attrs...)
	case "error":
		slog.ErrorContext(ctx, msg, attrs...)
	default:
		slog.InfoContext(ctx, msg, attrs...)
	}
	return 0
}

func (h *host) newID(L *lua.LState) int {
	L.Push(lua.LString(ulid.Make().String()))
	return 1
}

func (h *host) registerCommand(L *lua.LState) int {
	id := L.CheckString(1)
	fn := L.CheckFunction(2)
	if _, err := h.api.Commands.Register(id, h.m.handler(id, fn)); err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) executeCommand(L *lua.LState) int {
	id := L.CheckString(1)
	args := make([]any, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, fromLua(L.Get(i)))
	}
	result, err := h.api.Commands.Execute(h.ctx(L), id, args...)
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, toLua(L, result))
}

func (h *host) listCommands(L *lua.LState) int {
	L.Push(toLua(L, h.api.Commands.List()))
	return 1
}

func (h *host) emit(L *lua.LState) int {
	name := L.CheckString(1)
	n, err := h.api.Events.Emit(name, fromLua(L.Get(2)))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LNumber(n))
}

// on subscribes fn to one of the extension's events. Delivery is queued
// onto the state, so fn runs after the emitting call returns.
func (h *host) on(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	_, err := h.api.Events.On(name, func(payload any) {
		h.m.post(func(L *lua.LState) error {
			return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, toLua(L, payload))
		})
	})
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) showMessage(L *lua.LState) int {
	text := L.CheckString(1)
	severity := api.ParseSeverity(L.OptString(2, "info"))
	if err := h.api.Window.ShowMessage(h.ctx(L), text, severity); err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) createOutputChannel(L *lua.LState) int {
	ch, err := h.api.Window.CreateOutputChannel(L.CheckString(1))
	if err != nil {
		return pushError(L, err)
	}
	t := L.NewTable()
	L.SetFuncs(t, map[string]lua.LGFunction{
		"append": func(L *lua.LState) int {
			ch.Append(L.CheckString(1))
			return 0
		},
		"append_line": func(L *lua.LState) int {
			ch.AppendLine(L.CheckString(1))
			return 0
		},
		"clear": func(*lua.LState) int {
			ch.Clear()
			return 0
		},
		"show": func(*lua.LState) int {
			ch.Show()
			return 0
		},
		"content": func(L *lua.LState) int {
			L.Push(lua.LString(ch.Content()))
			return 1
		},
	})
	return pushSuccess(L, t)
}

func (h *host) storageGet(L *lua.LState) int {
	key := L.CheckString(1)
	def := fromLua(L.Get(2))
	L.Push(toLua(L, h.api.Storage.Get(h.ctx(L), key, def)))
	return 1
}

func (h *host) storageSet(L *lua.LState) int {
	key := L.CheckString(1)
	if err := h.api.Storage.Set(h.ctx(L), key, fromLua(L.Get(2))); err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) storageDelete(L *lua.LState) int {
	if err := h.api.Storage.Delete(h.ctx(L), L.CheckString(1)); err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) storageKeys(L *lua.LState) int {
	keys, err := h.api.Storage.Keys(h.ctx(L))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, toLua(L, keys))
}

func (h *host) configGet(L *lua.LState) int {
	section := L.CheckString(1)
	key := L.OptString(2, "")
	def := fromLua(L.Get(3))
	L.Push(toLua(L, h.api.Workspace.GetConfiguration(section).Get(key, def)))
	return 1
}

func (h *host) configUpdate(L *lua.LState) int {
	section := L.CheckString(1)
	key := L.CheckString(2)
	if err := h.api.Workspace.GetConfiguration(section).Update(key, fromLua(L.Get(3))); err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) listContainers(L *lua.LState) int {
	list, err := h.api.Containers.List(h.ctx(L), L.OptBool(1, false))
	if err != nil {
		return pushError(L, err)
	}
	t := L.CreateTable(len(list), 0)
	for _, c := range list {
		row := L.NewTable()
		row.RawSetString("id", lua.LString(c.ID))
		row.RawSetString("name", lua.LString(c.Name))
		row.RawSetString("image", lua.LString(c.Image))
		row.RawSetString("state", lua.LString(c.State))
		row.RawSetString("status", lua.LString(c.Status))
		row.RawSetString("ports", toLua(L, c.Ports))
		row.RawSetString("labels", toLua(L, c.Labels))
		t.Append(row)
	}
	return pushSuccess(L, t)
}

func (h *host) startContainer(L *lua.LState) int {
	if err := h.api.Containers.Start(h.ctx(L), L.CheckString(1)); err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) stopContainer(L *lua.LState) int {
	if err := h.api.Containers.Stop(h.ctx(L), L.CheckString(1)); err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

func (h *host) execContainer(L *lua.LState) int {
	id := L.CheckString(1)
	res, err := h.api.Containers.Exec(h.ctx(L), id, stringList(L.CheckTable(2)))
	if err != nil {
		return pushError(L, err)
	}
	t := L.NewTable()
	t.RawSetString("exit_code", lua.LNumber(res.ExitCode))
	t.RawSetString("stdout", lua.LString(res.Stdout))
	t.RawSetString("stderr", lua.LString(res.Stderr))
	return pushSuccess(L, t)
}

func (h *host) listPods(L *lua.LState) int {
	pods, err := h.api.Orchestration.ListPods(h.ctx(L), L.OptString(1, ""))
	if err != nil {
		return pushError(L, err)
	}
	t := L.CreateTable(len(pods), 0)
	for _, p := range pods {
		row := L.NewTable()
		row.RawSetString("name", lua.LString(p.Name))
		row.RawSetString("namespace", lua.LString(p.Namespace))
		row.RawSetString("phase", lua.LString(p.Phase))
		row.RawSetString("node", lua.LString(p.Node))
		row.RawSetString("ready", lua.LString(p.Ready))
		row.RawSetString("restarts", lua.LNumber(p.Restarts))
		t.Append(row)
	}
	return pushSuccess(L, t)
}

func (h *host) validatePlaybook(L *lua.LState) int {
	res, err := h.api.Automation.ValidatePlaybook(h.ctx(L), L.CheckString(1))
	if err != nil {
		return pushError(L, err)
	}
	t := L.NewTable()
	t.RawSetString("valid", lua.LBool(res.Valid))
	t.RawSetString("errors", toLua(L, res.Errors))
	return pushSuccess(L, t)
}

// runPlaybook takes the playbook path and an optional table with
// inventory, extra_vars and check.
func (h *host) runPlaybook(L *lua.LState) int {
	req := api.PlaybookRequest{Playbook: L.CheckString(1)}
	if opts := L.OptTable(2, nil); opts != nil {
		req.Inventory = lua.LVAsString(opts.RawGetString("inventory"))
		req.Check = lua.LVAsBool(opts.RawGetString("check"))
		if vars, ok := opts.RawGetString("extra_vars").(*lua.LTable); ok {
			req.ExtraVars = stringMap(vars)
		}
	}
	res, err := h.api.Automation.RunPlaybook(h.ctx(L), req)
	if err != nil {
		return pushError(L, err)
	}
	t := L.NewTable()
	t.RawSetString("ok", lua.LBool(res.OK))
	t.RawSetString("exit_code", lua.LNumber(res.ExitCode))
	t.RawSetString("output", lua.LString(res.Output))
	return pushSuccess(L, t)
}
