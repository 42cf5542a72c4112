// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package sandbox_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/bus"
	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/extension/sandbox"
	"github.com/quayside/quayside/internal/ui"
	"github.com/quayside/quayside/pkg/errutil"
	"github.com/quayside/quayside/pkg/extproto"
	"github.com/quayside/quayside/pkg/extsdk"
)

// process stands in for a go-plugin child: the extension runs in an
// extsdk.Session on the far end of an in-memory pipe.
type process struct {
	host   extproto.Stream
	child  extproto.Stream
	cancel context.CancelFunc
	done   chan struct{}
	killed atomic.Bool
}

func spawn(ext extsdk.Extension) *process {
	host, child := extproto.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	p := &process{host: host, child: child, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		_ = extsdk.NewSession(ext, child).Run(ctx)
	}()
	return p
}

func (p *process) Open(context.Context) (extproto.Stream, error) { return p.host, nil }

func (p *process) Kill() {
	p.killed.Store(true)
	p.cancel()
	<-p.done
}

type sampler struct {
	block       bool
	activateErr error
	deactivated atomic.Bool
}

func (p *sampler) Activate(ctx context.Context, h *extsdk.Host) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.activateErr != nil {
		return p.activateErr
	}
	register := func(id string, fn extsdk.Handler) error {
		return h.RegisterCommand(ctx, id, fn)
	}
	if err := register("sampler.greet", func(ctx context.Context, args ...any) (any, error) {
		name, _ := args[0].(string)
		return "hello, " + name + " from " + h.ExtensionID(), nil
	}); err != nil {
		return err
	}
	if err := register("sampler.relay", func(ctx context.Context, args ...any) (any, error) {
		return h.ExecuteCommand(ctx, "sampler.secret")
	}); err != nil {
		return err
	}
	if err := register("sampler.containers", func(ctx context.Context, _ ...any) (any, error) {
		list, err := h.ListContainers(ctx, true)
		if err != nil {
			return nil, err
		}
		return len(list), nil
	}); err != nil {
		return err
	}
	if err := register("sampler.fail", func(context.Context, ...any) (any, error) {
		return nil, oops.Code("SAMPLER_BROKEN").Errorf("broken on purpose")
	}); err != nil {
		return err
	}
	h.RegisterLocalCommand("sampler.secret", func(context.Context, ...any) (any, error) {
		return "hidden", nil
	})
	h.RegisterLocalCommand("sampler.lastTick", func(ctx context.Context, _ ...any) (any, error) {
		return h.StorageGet(ctx, "last_tick", nil)
	})
	return h.On(ctx, "tick", func(payload any) {
		_ = h.StorageSet(context.Background(), "last_tick", payload)
	})
}

func (p *sampler) Deactivate(context.Context) error {
	p.deactivated.Store(true)
	return nil
}

type containers struct{}

func (containers) ListContainers(context.Context, bool) ([]api.Container, error) {
	return []api.Container{{ID: "a"}, {ID: "b"}}, nil
}
func (containers) StartContainer(context.Context, string) error { return nil }
func (containers) StopContainer(context.Context, string) error  { return nil }
func (containers) ExecContainer(context.Context, string, []string) (api.ExecResult, error) {
	return api.ExecResult{}, nil
}

type harness struct {
	rt   *extension.Runtime
	proc atomic.Pointer[process]
	dir  string
}

func newHarness(t *testing.T, ext extsdk.Extension, timeout time.Duration) *harness {
	t.Helper()
	return newHarnessWith(t, ext, timeout, api.Deps{Containers: containers{}})
}

func newHarnessWith(t *testing.T, ext extsdk.Extension, timeout time.Duration, deps api.Deps) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir()}
	bin := filepath.Join(h.dir, "bin", "sampler")
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0o755))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755)) // #nosec G306 -- must be executable

	factory := sandbox.FactoryFunc(func(_ context.Context, path string) (sandbox.Client, error) {
		assert.Equal(t, bin, path)
		p := spawn(ext)
		h.proc.Store(p)
		return p, nil
	})
	rt, err := extension.New(extension.Options{
		Loaders:     []extension.Loader{sandbox.NewLoader(factory)},
		LoadTimeout: timeout,
		Deps:        deps,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	h.rt = rt
	return h
}

func (h *harness) load(ctx context.Context, caps ...string) (*extension.Instance, error) {
	return h.rt.Load(ctx, h.dir, &extension.Manifest{
		ID: "sampler", Name: "Sampler", Version: "0.3.0", Main: "bin/sampler", Capabilities: caps,
	})
}

func TestSandbox_Commands(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	h := newHarness(t, &sampler{}, 0)
	inst, err := h.load(ctx)
	require.NoError(t, err)
	assert.Equal(t, extension.StrategySandboxed, inst.Entry.Strategy)

	out, err := h.rt.ExecuteCommand(ctx, "sampler.greet", "ada")
	require.NoError(t, err)
	assert.Equal(t, "hello, ada from sampler", out)

	out, err = h.rt.ExecuteCommand(ctx, "sampler.relay")
	require.NoError(t, err)
	assert.Equal(t, "hidden", out)

	assert.Contains(t, h.rt.Registry().ListAll(), "sampler.greet")
	assert.NotContains(t, h.rt.Registry().ListAll(), "sampler.secret")
	assert.Contains(t, h.rt.CommandIDs(), "sampler.secret")

	require.NoError(t, h.rt.Unload(ctx, "sampler"))
}

func TestSandbox_ErrorsKeepTheirCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &sampler{}, 0)
	_, err := h.load(ctx)
	require.NoError(t, err)

	_, err = h.rt.ExecuteCommand(ctx, "sampler.fail")
	errutil.AssertErrorCode(t, err, "SAMPLER_BROKEN")
	assert.Contains(t, err.Error(), "broken on purpose")
}

func TestSandbox_CapabilityChecksCrossTheChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("denied", func(t *testing.T) {
		h := newHarness(t, &sampler{}, 0)
		_, err := h.load(ctx)
		require.NoError(t, err)
		_, err = h.rt.ExecuteCommand(ctx, "sampler.containers")
		errutil.AssertErrorCode(t, err, "CAPABILITY_DENIED")
	})

	t.Run("granted", func(t *testing.T) {
		h := newHarness(t, &sampler{}, 0)
		_, err := h.load(ctx, "container-ops.list")
		require.NoError(t, err)
		out, err := h.rt.ExecuteCommand(ctx, "sampler.containers")
		require.NoError(t, err)
		assert.EqualValues(t, 2, out)
	})
}

func TestSandbox_EventsReachTheChild(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &sampler{}, 0)
	_, err := h.load(ctx)
	require.NoError(t, err)

	assert.Positive(t, h.rt.Bus().Emit(bus.PluginTopic("sampler", "tick"), 7))

	assert.Eventually(t, func() bool {
		out, err := h.rt.ExecuteCommand(ctx, "sampler.lastTick")
		return err == nil && out == float64(7)
	}, time.Second, 10*time.Millisecond)
}

func TestSandbox_UnloadDeactivatesAndKills(t *testing.T) {
	ctx := context.Background()
	ext := &sampler{}
	h := newHarness(t, ext, 0)
	_, err := h.load(ctx)
	require.NoError(t, err)

	require.NoError(t, h.rt.Unload(ctx, "sampler"))
	assert.True(t, ext.deactivated.Load())
	assert.True(t, h.proc.Load().killed.Load())

	_, err = h.rt.ExecuteCommand(ctx, "sampler.greet", "x")
	errutil.AssertErrorCode(t, err, command.CodeNotFound)
}

func TestSandbox_ActivateFailure(t *testing.T) {
	h := newHarness(t, &sampler{activateErr: oops.Errorf("no cluster")}, 0)
	_, err := h.load(context.Background())
	errutil.AssertErrorCode(t, err, extension.CodeActivationFailed)
	assert.True(t, h.proc.Load().killed.Load())
	assert.Empty(t, h.rt.Registry().ListAll())
}

func TestSandbox_DeadChannelIsIsolationFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &sampler{}, 0)
	_, err := h.load(ctx)
	require.NoError(t, err)

	require.NoError(t, h.proc.Load().child.Close())

	_, err = h.rt.ExecuteCommand(ctx, "sampler.greet", "x")
	errutil.AssertErrorCode(t, err, extension.CodeIsolationFailed)
}

func TestSandbox_StartFailure(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "run")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755)) // #nosec G306 -- must be executable

	factory := sandbox.FactoryFunc(func(context.Context, string) (sandbox.Client, error) {
		return nil, oops.Errorf("exec format error")
	})
	rt, err := extension.New(extension.Options{Loaders: []extension.Loader{sandbox.NewLoader(factory)}})
	require.NoError(t, err)

	_, err = rt.Load(context.Background(), dir, &extension.Manifest{ID: "bad", Name: "bad", Version: "1.0.0", Main: "run"})
	errutil.AssertErrorCode(t, err, extension.CodeIsolationFailed)
}

func TestSandbox_HungActivateTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, &sampler{block: true}, 100*time.Millisecond)
	_, err := h.load(context.Background())
	errutil.AssertErrorCode(t, err, extension.CodeLoadTimeout)
	assert.True(t, h.proc.Load().killed.Load())
}

func TestMethods(t *testing.T) {
	methods := sandbox.Methods()
	assert.Contains(t, methods, extproto.MethodCommandsRegister)
	assert.Contains(t, methods, extproto.MethodEncryptSecret)
	assert.IsIncreasing(t, methods)
}

// asker prompts the user from inside a command.
type asker struct{}

func (asker) Activate(ctx context.Context, h *extsdk.Host) error {
	return h.RegisterCommand(ctx, "asker.ask", func(ctx context.Context, _ ...any) (any, error) {
		return h.Call(ctx, extproto.MethodShowInputBox, map[string]any{"prompt": "name?"})
	})
}

// stuckPrompter never answers and ignores cancellation.
type stuckPrompter struct {
	entered chan struct{}
	release chan struct{}
}

func (p *stuckPrompter) Prompt(context.Context, string, string, []string) (string, bool) {
	close(p.entered)
	<-p.release
	return "", false
}

func TestSandbox_UnloadDoesNotWaitForBlockedHostCall(t *testing.T) {
	prompter := &stuckPrompter{entered: make(chan struct{}), release: make(chan struct{})}
	defer close(prompter.release)

	ctx := context.Background()
	h := newHarnessWith(t, asker{}, 0, api.Deps{UI: ui.New(nil, prompter)})
	_, err := h.load(ctx, "notifications")
	require.NoError(t, err)

	go func() { _, _ = h.rt.ExecuteCommand(ctx, "asker.ask") }()
	select {
	case <-prompter.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("command never reached the prompt")
	}

	unloaded := make(chan error, 1)
	go func() { unloaded <- h.rt.Unload(ctx, "sampler") }()
	select {
	case err := <-unloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("unload blocked on an in-flight host call")
	}
	assert.True(t, h.proc.Load().killed.Load())
	assert.NotContains(t, h.rt.Registry().ListAll(), "asker.ask")
}
