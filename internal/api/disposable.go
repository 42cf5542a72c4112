// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"fmt"
	"log/slog"
	"sync"
)

// Disposable releases something an extension acquired through the API.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable. The function runs at most once.
func DisposeFunc(fn func()) Disposable {
	return &onceDisposable{fn: fn}
}

type onceDisposable struct {
	once sync.Once
	fn   func()
}

func (d *onceDisposable) Dispose() {
	d.once.Do(d.fn)
}

// Disposables is an ordered list of resources owned by one extension
// instance. Dispose releases them in reverse order of acquisition. Once
// disposed, anything added is released immediately.
type Disposables struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add appends d and returns it.
func (ds *Disposables) Add(d Disposable) Disposable {
	ds.mu.Lock()
	if ds.disposed {
		ds.mu.Unlock()
		safeDispose(d)
		return d
	}
	ds.items = append(ds.items, d)
	ds.mu.Unlock()
	return d
}

// Len returns the number of resources not yet released.
func (ds *Disposables) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.items)
}

// Dispose releases every resource. A panicking disposer is logged and the
// rest still run.
func (ds *Disposables) Dispose() {
	ds.mu.Lock()
	items := ds.items
	ds.items = nil
	ds.disposed = true
	ds.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		safeDispose(items[i])
	}
}

func safeDispose(d Disposable) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("disposer panicked", "panic", fmt.Sprint(r))
		}
	}()
	d.Dispose()
}
