// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

//go:build integration

package runtime_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/quayside/quayside/internal/backend"
	"github.com/quayside/quayside/internal/bus"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/pkg/errutil"
)

const notesManifest = `id: notes
name: Notes
version: 1.0.0
main: main.lua
activationEvents:
  - onCommand:notes.add
  - onCommand:notes.get
contributes:
  commands:
    - command: notes.add
      title: Add Note
  configuration:
    properties:
      notes.prefix:
        type: string
        default: "- "
`

const notesScript = `
function activate(ctx)
	host.commands.register("notes.add", function(text)
		local n = host.storage.get("count", 0) + 1
		host.storage.set("count", n)
		host.storage.set("note" .. n, host.config.get("notes", "prefix", "") .. text)
		return n
	end)
	host.commands.register("notes.get", function(n)
		return host.storage.get("note" .. n)
	end)
end
`

const brokenScript = `
function activate(ctx)
	error("cannot start")
end
`

var _ = Describe("Extension runtime", func() {
	var (
		extDir  string
		storeDB string
	)

	BeforeEach(func() {
		extDir = GinkgoT().TempDir()
		storeDB = filepath.Join(GinkgoT().TempDir(), "memento.db")
		writePackage(extDir, "notes", map[string]string{
			"extension.yaml": notesManifest,
			"main.lua":       notesScript,
		})
	})

	Describe("Startup", func() {
		It("loads eager built-ins and holds lazy extensions pending", func() {
			h := newHost(extDir, storeDB, false)
			defer h.close()

			report := h.loadAll()
			Expect(report.Failed).To(BeEmpty())
			Expect(report.Loaded).To(ContainElement("container-insights"))
			Expect(report.Pending).To(ContainElements("notes", "orchestration-assistant", "automation-helper"))
		})

		It("reports a failing activation without affecting the others", func() {
			writePackage(extDir, "broken", map[string]string{
				"extension.yaml": "id: broken\nname: Broken\nversion: 1.0.0\nmain: main.lua\nactivationEvents: [\"*\"]\n",
				"main.lua":       brokenScript,
			})
			h := newHost(extDir, storeDB, false)
			defer h.close()

			report := h.loadAll()
			Expect(report.Failed).To(HaveKey("broken"))
			Expect(errutil.Code(report.Failed["broken"])).To(Equal(extension.CodeActivationFailed))
			Expect(states(h.rt)).To(HaveKeyWithValue("container-insights", extension.StateActive))
		})
	})

	Describe("Lazy activation and persistence", func() {
		It("activates on first command and keeps state across restarts", func() {
			h := newHost(extDir, storeDB, false)
			h.loadAll()

			n, err := h.rt.ExecuteCommand(h.ctx, "notes.add", "buy milk")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeEquivalentTo(1))
			Expect(states(h.rt)).To(HaveKeyWithValue("notes", extension.StateActive))
			h.close()

			again := newHost(extDir, storeDB, false)
			defer again.close()
			again.loadAll()

			note, err := again.rt.ExecuteCommand(again.ctx, "notes.get", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(note).To(Equal("- buy milk"))

			n, err = again.rt.ExecuteCommand(again.ctx, "notes.add", "call home")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeEquivalentTo(2))
		})

		It("applies configuration changes to later calls", func() {
			h := newHost(extDir, storeDB, false)
			defer h.close()
			h.loadAll()

			_, err := h.rt.ExecuteCommand(h.ctx, "notes.add", "first")
			Expect(err).NotTo(HaveOccurred())
			Expect(h.rt.Configuration().Update("", "notes.prefix", "* ")).To(Succeed())
			_, err = h.rt.ExecuteCommand(h.ctx, "notes.add", "second")
			Expect(err).NotTo(HaveOccurred())

			Expect(h.rt.ExecuteCommand(h.ctx, "notes.get", 2)).To(Equal("* second"))
		})

		It("removes commands on unload", func() {
			h := newHost(extDir, storeDB, false)
			defer h.close()
			h.loadAll()
			_, err := h.rt.ExecuteCommand(h.ctx, "notes.add", "x")
			Expect(err).NotTo(HaveOccurred())

			Expect(h.rt.Unload(h.ctx, "notes")).To(Succeed())
			Expect(h.rt.Registry().ListAll()).NotTo(ContainElement("notes.add"))
		})
	})

	Describe("Built-ins over backends", func() {
		It("summarizes containers through the docker adapter", func() {
			h := newHost(extDir, storeDB, false)
			defer h.close()
			h.runner.Responses["docker ps --no-trunc --format {{json .}} --all"] = backend.Result{
				Stdout: `{"ID":"1","Names":"api","Image":"app","State":"running"}` + "\n",
			}
			h.loadAll()

			_, err := h.rt.ExecuteCommand(h.ctx, "containers.summary")
			Expect(err).NotTo(HaveOccurred())

			items := h.ui.StatusBarItems()
			Expect(items).NotTo(BeEmpty())
			Expect(items[0].Text).To(Equal("1/1 running"))
		})
	})

	Describe("Sandboxed extensions", func() {
		BeforeEach(func() {
			if echoRoot == "" {
				Skip("go toolchain not available to build the echo extension")
			}
		})

		It("runs the echo extension in a child process", func() {
			h := newHost(echoRoot, storeDB, true)
			defer h.close()
			report := h.loadAll()
			Expect(report.Pending).To(ContainElement("echo"))

			got, err := h.rt.ExecuteCommand(h.ctx, "echo.say", "hello", 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("hello 42"))
			Expect(states(h.rt)).To(HaveKeyWithValue("echo", extension.StateActive))
			Expect(hasLine(outputContent(h.ui, "Echo"), "hello 42")).To(BeTrue())

			h.rt.Bus().Emit(bus.PluginTopic("echo", "say"), "from the bus")
			Eventually(func() any {
				n, _ := h.rt.ExecuteCommand(h.ctx, "echo.count")
				return n
			}).Should(BeEquivalentTo(1))

			Expect(h.rt.Unload(h.ctx, "echo")).To(Succeed())
			_, err = h.rt.ExecuteCommand(h.ctx, "echo.count")
			Expect(err).To(HaveOccurred())
		})
	})
})
