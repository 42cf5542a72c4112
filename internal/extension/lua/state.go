// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package lua runs script extensions in a sandboxed gopher-lua state. Each
// extension owns one state, driven by a single goroutine, so scripts never
// observe concurrent calls.
package lua

import (
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

type library struct {
	name string
	open lua.LGFunction
}

// Scripts get base, table, string and math. os, io, debug and package
// are never opened.
func safeLibraries() []library {
	return []library{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// Base functions that reach the filesystem or compile arbitrary chunks.
var blockedGlobals = []string{"dofile", "loadfile", "loadstring", "load", "require", "collectgarbage"}

// newState creates a state with only the safe libraries and a bounded
// call stack.
func newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       256,
		RegistrySize:        1024 * 20,
		IncludeGoStackTrace: false,
	})
	for _, lib := range safeLibraries() {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, oops.In("lua").With("library", lib.name).Wrapf(err, "open library")
		}
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}
