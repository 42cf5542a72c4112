// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package bus is the process-wide publish/subscribe channel used for runtime
// lifecycle notifications and configuration changes.
package bus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Handler receives an emitted topic and its payload.
type Handler func(topic string, payload any)

// Unsubscribe stops future deliveries to a subscription. It is safe to call
// more than once and after the topic has already fired.
type Unsubscribe func()

type subscription struct {
	id      uint64
	topic   string
	prefix  bool
	handler Handler
}

func (s *subscription) matches(topic string) bool {
	if s.prefix {
		return SectionMatches(s.topic, topic)
	}
	return s.topic == topic
}

// Bus delivers events synchronously, in subscription order, to every current
// subscriber of a topic. A panicking subscriber is logged and skipped.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
	next uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// On subscribes handler to exactly topic.
func (b *Bus) On(topic string, handler Handler) Unsubscribe {
	return b.subscribe(topic, false, handler)
}

// OnPrefix subscribes handler to topic and every topic below it at a '.'
// boundary: "configuration.docker" receives "configuration.docker.socketPath"
// but not "configuration.dockerx".
func (b *Bus) OnPrefix(topic string, handler Handler) Unsubscribe {
	return b.subscribe(topic, true, handler)
}

func (b *Bus) subscribe(topic string, prefix bool, handler Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	sub := &subscription{id: b.next, topic: topic, prefix: prefix, handler: handler}
	b.subs = append(b.subs, sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(sub.id) })
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Emit invokes every subscriber of topic and returns how many were invoked.
// Subscribers added or removed by a handler take effect from the next Emit.
func (b *Bus) Emit(topic string, payload any) int {
	b.mu.RLock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matches(topic) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		deliver(s, topic, payload)
	}
	return len(targets)
}

func deliver(s *subscription, topic string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event subscriber panicked",
				"topic", topic,
				"subscription", s.topic,
				"panic", fmt.Sprint(r))
		}
	}()
	s.handler(topic, payload)
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// SectionMatches reports whether changed equals section or lies below it at a
// '.' boundary. An empty section matches everything.
func SectionMatches(section, changed string) bool {
	if section == "" || section == changed {
		return true
	}
	return strings.HasPrefix(changed, section) && changed[len(section)] == '.'
}
