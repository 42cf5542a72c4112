// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

//go:build integration

package memento_test

import (
	"strings"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/quayside/quayside/internal/memento"
	mementopg "github.com/quayside/quayside/internal/memento/postgres"
)

var _ = Describe("Postgres memento store", func() {
	var (
		store *mementopg.Store
		ext   string
	)

	BeforeEach(func() {
		store = connect()
		ext = "acme." + strings.ToLower(ulid.Make().String())
		DeferCleanup(func() {
			for _, scope := range []memento.Scope{memento.ScopeGlobal, memento.ScopeWorkspace} {
				_ = store.Clear(ctx, memento.Partition{Scope: scope, ExtensionID: ext})
			}
		})
	})

	Describe("Memento values", func() {
		It("round-trips JSON values through the store", func() {
			m := memento.New(store, memento.ScopeGlobal, ext)
			Expect(m.Update(ctx, "counter", 3)).To(Succeed())
			Expect(m.Update(ctx, "tags", []string{"a", "b"})).To(Succeed())

			Expect(m.Get(ctx, "counter", 0)).To(BeEquivalentTo(3))
			Expect(m.Get(ctx, "missing", "fallback")).To(Equal("fallback"))

			var tags []string
			Expect(m.GetInto(ctx, "tags", &tags)).To(BeTrue())
			Expect(tags).To(Equal([]string{"a", "b"}))
		})

		It("survives a reconnect", func() {
			Expect(memento.New(store, memento.ScopeWorkspace, ext).Update(ctx, "last", "deploy")).To(Succeed())

			reopened := connect()
			Expect(memento.New(reopened, memento.ScopeWorkspace, ext).Get(ctx, "last", nil)).To(Equal("deploy"))
		})

		It("stores null on Update with nil", func() {
			m := memento.New(store, memento.ScopeGlobal, ext)
			Expect(m.Update(ctx, "blank", true)).To(Succeed())
			Expect(m.Update(ctx, "blank", nil)).To(Succeed())

			Expect(m.Get(ctx, "blank", "fallback")).To(BeNil())
			keys, err := m.Keys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(ContainElement("blank"))
		})

		It("removes a key on Delete", func() {
			m := memento.New(store, memento.ScopeGlobal, ext)
			Expect(m.Update(ctx, "gone", true)).To(Succeed())
			Expect(m.Delete(ctx, "gone")).To(Succeed())

			keys, err := m.Keys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).NotTo(ContainElement("gone"))
		})
	})

	Describe("Partitions", func() {
		It("keeps scopes and extensions apart", func() {
			global := memento.New(store, memento.ScopeGlobal, ext)
			workspace := memento.New(store, memento.ScopeWorkspace, ext)
			other := memento.New(store, memento.ScopeGlobal, ext+".other")
			DeferCleanup(func() { _ = other.Clear(ctx) })

			Expect(global.Update(ctx, "k", "global")).To(Succeed())
			Expect(workspace.Update(ctx, "k", "workspace")).To(Succeed())
			Expect(other.Update(ctx, "k", "other")).To(Succeed())

			Expect(global.Get(ctx, "k", nil)).To(Equal("global"))
			Expect(workspace.Get(ctx, "k", nil)).To(Equal("workspace"))

			Expect(global.Clear(ctx)).To(Succeed())
			Expect(global.Get(ctx, "k", nil)).To(BeNil())
			Expect(workspace.Get(ctx, "k", nil)).To(Equal("workspace"))
			Expect(other.Get(ctx, "k", nil)).To(Equal("other"))
		})

		It("lists keys in lexical order", func() {
			m := memento.New(store, memento.ScopeGlobal, ext)
			for _, k := range []string{"zeta", "alpha", "mid"} {
				Expect(m.Update(ctx, k, 1)).To(Succeed())
			}
			keys, err := m.Keys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(Equal([]string{"alpha", "mid", "zeta"}))
		})
	})

	Describe("Migrations", func() {
		It("reports the applied version", func() {
			m, err := mementopg.NewMigrator(env.connStr)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = m.Close() }()

			version, dirty, err := m.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(dirty).To(BeFalse())
			Expect(version).To(BeNumerically(">=", 1))

			Expect(m.Up()).To(Succeed(), "re-applying is a no-op")
		})
	})
})
