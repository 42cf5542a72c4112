// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package extproto is the isolation channel between the host and a
// sandboxed extension process. Both sides exchange Envelopes over one
// bidirectional gRPC stream; each envelope is a discriminated record whose
// Type says how to read it.
//
// The host opens with "load" and the extension answers "loaded" or
// "error". After that either side may send requests: the host sends
// "execute" and "deactivate", the extension sends "call" for Capability
// API operations. Every request carries an ID echoed by its reply.
// "event" envelopes are one-way deliveries from host to extension. A
// "cancel" envelope carries the ID of a request its sender stopped waiting
// for; the receiver cancels the handler's context.
package extproto

import (
	"errors"
	"fmt"

	"github.com/quayside/quayside/pkg/errutil"
)

// Type discriminates envelopes.
type Type string

// Envelope types.
const (
	TypeLoad        Type = "load"
	TypeLoaded      Type = "loaded"
	TypeError       Type = "error"
	TypeExecute     Type = "execute"
	TypeResult      Type = "result"
	TypeDeactivate  Type = "deactivate"
	TypeDeactivated Type = "deactivated"
	TypeCall        Type = "call"
	TypeReturn      Type = "return"
	TypeEvent       Type = "event"
	TypeCancel      Type = "cancel"
)

// replies maps each request type to its success reply.
var replies = map[Type]Type{
	TypeLoad:       TypeLoaded,
	TypeExecute:    TypeResult,
	TypeDeactivate: TypeDeactivated,
	TypeCall:       TypeReturn,
}

// ReplyType returns the success reply for a request type.
func ReplyType(t Type) (Type, bool) {
	r, ok := replies[t]
	return r, ok
}

// IsReply reports whether t answers a request.
func (t Type) IsReply() bool {
	switch t {
	case TypeLoaded, TypeResult, TypeDeactivated, TypeReturn, TypeError:
		return true
	}
	return false
}

// IsRequest reports whether t expects a reply.
func (t Type) IsRequest() bool {
	_, ok := replies[t]
	return ok
}

// Envelope is one message on the channel. Fields not used by a type are
// left zero.
type Envelope struct {
	Type Type
	// ID correlates a request with its reply. Events carry zero.
	ID uint64

	// load
	ExtensionPath string
	Manifest      map[string]any
	Context       map[string]any

	// loaded: ids of extension-private commands
	Exports []string

	// execute: command id; call: API method; event: event name
	Method string
	Args   []any

	// loaded, result, return, event
	Value any

	// error
	Error *Error
}

// Error is a failure carried across the channel.
type Error struct {
	Code    string
	Message string
}

// RemoteError is returned by Peer.Request when the other side answered
// with an error envelope.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorFrom converts a local error for the wire, keeping its oops code.
// A RemoteError passed back unchanged keeps the code it arrived with.
func ErrorFrom(err error) *Error {
	if err == nil {
		return nil
	}
	var remote *RemoteError
	if errors.As(err, &remote) && errutil.Code(err) == "" {
		return &Error{Code: remote.Code, Message: remote.Message}
	}
	return &Error{Code: errutil.Code(err), Message: errutil.Message(err)}
}
