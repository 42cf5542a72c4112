// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package lua

import (
	"fmt"
	"math"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// maxDepth bounds conversion of nested tables, which may be cyclic.
const maxDepth = 32

// toLua converts a Go value produced by the host into a Lua value.
// Unknown types become their fmt representation.
func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case []string:
		t := L.CreateTable(len(x), 0)
		for _, s := range x {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.CreateTable(len(x), 0)
		for _, e := range x {
			t.Append(toLua(L, e))
		}
		return t
	case map[string]string:
		t := L.CreateTable(0, len(x))
		for k, s := range x {
			t.RawSetString(k, lua.LString(s))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(x))
		for k, e := range x {
			t.RawSetString(k, toLua(L, e))
		}
		return t
	case error:
		return lua.LString(x.Error())
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

// fromLua converts a Lua value into plain Go data: nil, bool, string,
// float64 (int64 when integral), []any for sequences and map[string]any
// for other tables. Functions and userdata become nil.
func fromLua(v lua.LValue) any {
	return fromLuaDepth(v, 0)
}

func fromLuaDepth(v lua.LValue, depth int) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LString:
		return string(x)
	case lua.LNumber:
		f := float64(x)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case *lua.LTable:
		if depth >= maxDepth {
			return nil
		}
		return tableToGo(x, depth+1)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, depth int) any {
	n := t.Len()
	keys := 0
	t.ForEach(func(_, _ lua.LValue) { keys++ })

	if n > 0 && n == keys {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, fromLuaDepth(t.RawGetInt(i), depth))
		}
		return out
	}

	out := make(map[string]any, keys)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLuaDepth(v, depth)
	})
	return out
}

// stringList reads a sequence of strings; non-string entries are skipped.
func stringList(t *lua.LTable) []string {
	if t == nil {
		return nil
	}
	var out []string
	for i := 1; i <= t.Len(); i++ {
		if s, ok := t.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// stringMap reads string keys and values; anything else is skipped.
func stringMap(t *lua.LTable) map[string]string {
	if t == nil {
		return nil
	}
	out := make(map[string]string)
	t.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		out[string(ks)] = lua.LVAsString(v)
	})
	return out
}

// sortedKeys is used where deterministic table iteration matters.
func sortedKeys(t *lua.LTable) []string {
	var keys []string
	t.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			keys = append(keys, string(s))
		}
	})
	sort.Strings(keys)
	return keys
}
