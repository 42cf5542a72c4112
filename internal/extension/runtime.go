// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/bus"
	"github.com/quayside/quayside/internal/capability"
	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/configuration"
	"github.com/quayside/quayside/internal/logging"
	"github.com/quayside/quayside/internal/memento"
	"github.com/quayside/quayside/pkg/errutil"
)

// DefaultLoadTimeout bounds a load, including activation, when the caller
// sets no shorter deadline.
const DefaultLoadTimeout = 30 * time.Second

// DefaultHostVersion is checked against engines.quayside when Options
// leaves HostVersion empty.
const DefaultHostVersion = "1.0.0"

// Options configures a Runtime.
type Options struct {
	HostVersion string
	LoadTimeout time.Duration
	Loaders     []Loader
	// Deps are the shared collaborators. Missing registry, bus,
	// configuration, store and enforcer are created fresh; the runtime
	// installs itself as the Executor.
	Deps   api.Deps
	Tracer trace.Tracer
}

type failure struct {
	candidate Candidate
	strategy  Strategy
	err       error
}

// Runtime owns the loaded extension instances and drives their lifecycle.
type Runtime struct {
	deps          api.Deps
	hostVersion   *semver.Version
	loadTimeout   time.Duration
	loaders       map[Strategy]Loader
	tracer        trace.Tracer
	contributions *Contributions
	activations   singleflight.Group

	mu        sync.RWMutex
	instances map[string]*Instance
	loading   map[string]bool
	pending   map[string]Candidate
	// activating holds lazy candidates taken from pending by Activate
	// until their load finishes, so later triggers join that load.
	activating map[string]Candidate
	failed     map[string]failure
}

// New creates a runtime.
func New(opts Options) (*Runtime, error) {
	hv := opts.HostVersion
	if hv == "" {
		hv = DefaultHostVersion
	}
	version, err := semver.NewVersion(hv)
	if err != nil {
		return nil, oops.In("extension").With("host_version", hv).Wrapf(err, "host version must be semantic")
	}

	r := &Runtime{
		deps:          opts.Deps,
		hostVersion:   version,
		loadTimeout:   opts.LoadTimeout,
		loaders:       make(map[Strategy]Loader),
		tracer:        opts.Tracer,
		contributions: NewContributions(),
		instances:     make(map[string]*Instance),
		loading:       make(map[string]bool),
		pending:       make(map[string]Candidate),
		activating:    make(map[string]Candidate),
		failed:        make(map[string]failure),
	}
	if r.loadTimeout <= 0 {
		r.loadTimeout = DefaultLoadTimeout
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("github.com/quayside/quayside/internal/extension")
	}
	for _, l := range opts.Loaders {
		r.loaders[l.Strategy()] = l
	}

	if r.deps.Registry == nil {
		r.deps.Registry = command.NewRegistry()
	}
	if r.deps.Bus == nil {
		r.deps.Bus = bus.New()
	}
	if r.deps.Configuration == nil {
		r.deps.Configuration = configuration.NewService(r.deps.Bus, nil)
	}
	if r.deps.Store == nil {
		r.deps.Store = memento.NewMemoryStore()
	}
	if r.deps.Enforcer == nil {
		r.deps.Enforcer = capability.NewEnforcer()
	}
	r.deps.Executor = r
	return r, nil
}

// Registry returns the global command registry.
func (r *Runtime) Registry() *command.Registry { return r.deps.Registry }

// Bus returns the event bus.
func (r *Runtime) Bus() *bus.Bus { return r.deps.Bus }

// Configuration returns the configuration service.
func (r *Runtime) Configuration() *configuration.Service { return r.deps.Configuration }

// Contributions returns the contribution registry of loaded extensions.
func (r *Runtime) Contributions() *Contributions { return r.contributions }

// HostVersion returns the version engines constraints are checked against.
func (r *Runtime) HostVersion() *semver.Version { return r.hostVersion }

// Load reads the manifest from path when m is nil, then loads and
// activates the extension. On any failure nothing the extension registered
// survives and the extension is not in the loaded set.
func (r *Runtime) Load(ctx context.Context, path string, m *Manifest) (*Instance, error) {
	if m == nil {
		var err error
		if m, err = ReadManifest(path); err != nil {
			return nil, err
		}
	} else if err := m.Validate(); err != nil {
		return nil, err
	}
	return r.load(ctx, Candidate{Path: path, Manifest: m})
}

func (r *Runtime) load(ctx context.Context, c Candidate) (inst *Instance, err error) {
	m := c.Manifest
	if err := r.reserve(m.ID); err != nil {
		return nil, err
	}
	defer r.release(m.ID)

	ctx = logging.WithExtension(ctx, m.ID)
	ctx, span := r.tracer.Start(ctx, "Runtime.Load",
		trace.WithAttributes(
			attribute.String("extension.id", m.ID),
			attribute.String("extension.version", m.Version),
		))
	defer span.End()

	start := time.Now()
	var entry Entry
	defer func() {
		if err == nil {
			recordLoad(entry.Strategy, LoadSuccess, time.Since(start))
			return
		}
		status := LoadFailure
		if errutil.HasCode(err, CodeLoadTimeout) {
			status = LoadTimeout
		}
		recordLoad(entry.Strategy, status, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.fail(ctx, c, entry.Strategy, err)
	}()

	if err := r.checkEngine(m); err != nil {
		return nil, err
	}
	if err := r.checkDependencies(ctx, m); err != nil {
		return nil, err
	}
	entry, err = ResolveEntry(c.Path, m)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("extension.strategy", string(entry.Strategy)))

	loader, ok := r.loaders[entry.Strategy]
	if !ok {
		return nil, oops.Code(CodeIsolationFailed).
			In("extension").
			With("extension", m.ID).
			With("strategy", entry.Strategy).
			Errorf("no loader is available for %s extensions", entry.Strategy)
	}

	lctx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()
	return r.start(lctx, c, entry, loader)
}

func (r *Runtime) reserve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; ok || r.loading[id] {
		return ErrDuplicateID(id)
	}
	r.loading[id] = true
	delete(r.pending, id)
	delete(r.failed, id)
	return nil
}

func (r *Runtime) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loading, id)
}

func (r *Runtime) fail(ctx context.Context, c Candidate, strategy Strategy, err error) {
	r.mu.Lock()
	r.failed[c.Manifest.ID] = failure{candidate: c, strategy: strategy, err: err}
	r.mu.Unlock()

	errutil.LogErrorContext(ctx, slog.Default(), "extension failed to load", err)
	r.emit(c.Manifest, strategy, bus.EventFailed, err)
}

func (r *Runtime) emit(m *Manifest, strategy Strategy, event string, err error) {
	ev := bus.LifecycleEvent{ExtensionID: m.ID, Version: m.Version, Strategy: string(strategy)}
	if err != nil {
		ev.Error = err.Error()
	}
	r.deps.Bus.Emit(bus.PluginTopic(m.ID, event), ev)
}

func (r *Runtime) checkEngine(m *Manifest) error {
	if m.Engines.Quayside == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.Engines.Quayside)
	if err != nil {
		return manifestErr(m.ID).Wrapf(err, "engines.quayside")
	}
	if !c.Check(r.hostVersion) {
		return oops.Code(CodeEngineIncompatible).
			In("extension").
			With("extension", m.ID).
			With("engine", m.Engines.Quayside).
			With("host_version", r.hostVersion.String()).
			Errorf("extension %s requires quayside %s, host is %s", m.ID, m.Engines.Quayside, r.hostVersion)
	}
	return nil
}

// checkDependencies requires every dependency to be active at a satisfying
// version. Pending dependencies are loaded first.
func (r *Runtime) checkDependencies(ctx context.Context, m *Manifest) error {
	deps := make([]string, 0, len(m.Dependencies))
	for id := range m.Dependencies {
		deps = append(deps, id)
	}
	sort.Strings(deps)

	for _, dep := range deps {
		unsatisfied := oops.Code(CodeDependencyUnsatisfied).
			In("extension").
			With("extension", m.ID).
			With("dependency", dep).
			With("constraint", m.Dependencies[dep])

		r.mu.RLock()
		inst, loaded := r.instances[dep]
		cand, pending := r.pending[dep]
		r.mu.RUnlock()

		if !loaded && pending {
			var err error
			if inst, err = r.load(ctx, cand); err != nil {
				return classify(unsatisfied, err, "dependency %s failed to load", dep)
			}
			loaded = true
		}
		if !loaded {
			return unsatisfied.Errorf("dependency %s is not loaded", dep)
		}

		c, err := semver.NewConstraint(m.Dependencies[dep])
		if err != nil {
			return unsatisfied.Wrapf(err, "invalid constraint")
		}
		if v := inst.Manifest.SemVer(); v == nil || !c.Check(v) {
			return unsatisfied.
				With("version", inst.Manifest.Version).
				Errorf("dependency %s %s does not satisfy %s", dep, inst.Manifest.Version, m.Dependencies[dep])
		}
	}
	return nil
}

// start instantiates and activates under ctx, which carries the load
// deadline. Everything is rolled back on failure.
func (r *Runtime) start(ctx context.Context, c Candidate, entry Entry, loader Loader) (*Instance, error) {
	m := c.Manifest

	if err := r.deps.Enforcer.Grant(m.ID, m.Capabilities); err != nil {
		return nil, classify(manifestErr(m.ID), err, "grant capabilities")
	}
	if m.Contributes.Configuration != nil {
		if err := r.deps.Configuration.Declare(m.ID, m.Contributes.Configuration.Properties); err != nil {
			r.deps.Enforcer.RemoveGrants(m.ID)
			return nil, classify(manifestErr(m.ID), err, "declare configuration")
		}
	}

	tracker := &api.Disposables{}
	a := api.New(m.ID, r.deps, tracker)
	inst := newInstance(m, c.Path, entry, a)

	rollback := func(mod Module) {
		tracker.Dispose()
		r.deps.Registry.RemoveOwner(m.ID)
		if mod != nil {
			if err := mod.Close(); err != nil {
				slog.WarnContext(ctx, "closing extension after failed load", "extension", m.ID, "error", err)
			}
		}
		a.Close()
		r.deps.Configuration.Withdraw(m.ID)
		r.deps.Enforcer.RemoveGrants(m.ID)
		inst.setState(StateFailed)
	}

	mod, err := r.instantiate(ctx, loader, LoadRequest{Manifest: m, Path: c.Path, Entry: entry, API: a})
	if err != nil {
		rollback(nil)
		return nil, err
	}
	r.emit(m, entry.Strategy, bus.EventLoaded, nil)

	ec := &Context{
		ExtensionID:    m.ID,
		ExtensionPath:  c.Path,
		Manifest:       m,
		API:            a,
		GlobalState:    a.GlobalState,
		WorkspaceState: a.WorkspaceState,
		Subscriptions:  tracker,
	}
	if err := r.activate(ctx, mod, ec); err != nil {
		rollback(mod)
		return nil, err
	}

	inst.mu.Lock()
	inst.module = mod
	inst.locals = maps.Clone(mod.Commands())
	inst.LoadedAt = time.Now()
	inst.state = StateActive
	inst.mu.Unlock()

	r.mu.Lock()
	r.instances[m.ID] = inst
	r.mu.Unlock()

	r.contributions.Add(m)
	ActiveExtensions.WithLabelValues(string(entry.Strategy)).Inc()
	r.emit(m, entry.Strategy, bus.EventActivated, nil)
	slog.InfoContext(ctx, "extension activated",
		"extension", m.ID,
		"version", m.Version,
		"strategy", entry.Strategy)
	return inst, nil
}

func timeoutErr(ctx context.Context, m *Manifest, stage string) error {
	return oops.Code(CodeLoadTimeout).
		In("extension").
		With("extension", m.ID).
		With("stage", stage).
		Wrapf(ctx.Err(), "extension %s did not finish %s", m.ID, stage)
}

type loaded struct {
	mod Module
	err error
}

func (r *Runtime) instantiate(ctx context.Context, loader Loader, req LoadRequest) (Module, error) {
	done := make(chan loaded, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- loaded{err: fmt.Errorf("loader panicked: %v", p)}
			}
		}()
		mod, err := loader.Load(ctx, req)
		done <- loaded{mod: mod, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.mod, nil
		}
		if ctx.Err() != nil {
			return nil, timeoutErr(ctx, req.Manifest, "loading")
		}
		if errutil.Code(res.err) != "" {
			return nil, oops.With("extension", req.Manifest.ID).Wrap(res.err)
		}
		return nil, oops.Code(CodeIsolationFailed).
			In("extension").
			With("extension", req.Manifest.ID).
			With("strategy", req.Entry.Strategy).
			Wrapf(res.err, "start %s extension", req.Entry.Strategy)
	case <-ctx.Done():
		go func() {
			if res := <-done; res.mod != nil {
				_ = res.mod.Close()
			}
		}()
		return nil, timeoutErr(ctx, req.Manifest, "loading")
	}
}

func (r *Runtime) activate(ctx context.Context, mod Module, ec *Context) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("activate panicked: %v", p)
			}
		}()
		done <- mod.Activate(ctx, ec)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			return nil
		case errutil.HasCode(err, CodeIsolationFailed):
			return oops.With("extension", ec.ExtensionID).Wrap(err)
		case ctx.Err() != nil:
			return timeoutErr(ctx, ec.Manifest, "activation")
		}
		return classify(oops.Code(CodeActivationFailed).In("extension").With("extension", ec.ExtensionID),
			err, "activate %s", ec.ExtensionID)
	case <-ctx.Done():
		return timeoutErr(ctx, ec.Manifest, "activation")
	}
}

// Unload deactivates and disposes an extension. Unloading an id that is
// not loaded is a no-op. A failing deactivate is logged and disposal
// continues.
func (r *Runtime) Unload(ctx context.Context, id string) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	if ok {
		delete(r.instances, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	ctx = logging.WithExtension(ctx, id)
	ctx, span := r.tracer.Start(ctx, "Runtime.Unload", trace.WithAttributes(attribute.String("extension.id", id)))
	defer span.End()

	inst.setState(StateDisposed)

	dctx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	if err := deactivate(dctx, inst.module); err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "extension deactivate failed", "extension", id, "error", err)
	}
	cancel()

	inst.API.Tracker().Dispose()
	r.deps.Registry.RemoveOwner(id)
	if err := inst.module.Close(); err != nil {
		slog.WarnContext(ctx, "closing extension", "extension", id, "error", err)
	}
	inst.API.Close()
	r.deps.Configuration.Withdraw(id)
	r.deps.Enforcer.RemoveGrants(id)
	r.contributions.Remove(id)

	ActiveExtensions.WithLabelValues(string(inst.Entry.Strategy)).Dec()
	r.emit(inst.Manifest, inst.Entry.Strategy, bus.EventUnloaded, nil)
	slog.InfoContext(ctx, "extension unloaded", "extension", id)
	return nil
}

func deactivate(ctx context.Context, mod Module) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("deactivate panicked: %v", p)
			}
		}()
		done <- mod.Deactivate(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecuteCommand runs id from the global registry or, failing that, from a
// loaded extension's private commands. When neither has it, extensions
// waiting on onCommand:<id> are activated and the lookup is retried once.
func (r *Runtime) ExecuteCommand(ctx context.Context, id string, args ...any) (any, error) {
	ctx, span := r.tracer.Start(ctx, "Runtime.ExecuteCommand", trace.WithAttributes(attribute.String("command.id", id)))
	defer span.End()

	rec := command.NewMetricsRecorder(id)
	defer rec.Record()

	h, tier, ok := r.resolve(id)
	if !ok && r.hasPending(CommandEvent(id)) {
		if err := r.Activate(ctx, CommandEvent(id)); err != nil {
			slog.WarnContext(ctx, "activation for command failed", "command", id, "error", err)
		}
		h, tier, ok = r.resolve(id)
	}
	if !ok {
		rec.SetStatus(command.StatusNotFound)
		err := command.ErrNotFound(id)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rec.SetTier(tier)
	span.SetAttributes(attribute.String("command.tier", tier))
	out, err := command.Invoke(ctx, id, h, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	rec.SetStatus(command.StatusSuccess)
	return out, nil
}

func (r *Runtime) resolve(id string) (command.Handler, string, bool) {
	if h, err := r.deps.Registry.Resolve(id); err == nil {
		return h, command.TierGlobal, true
	}
	for _, inst := range r.active() {
		if h, ok := inst.local(id); ok {
			return h, command.TierLocal, true
		}
	}
	return nil, "", false
}

// active returns loaded instances sorted by id.
func (r *Runtime) active() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CommandIDs returns every executable command id: registered commands and
// the private commands of loaded extensions.
func (r *Runtime) CommandIDs() []string {
	set := make(map[string]struct{})
	for _, id := range r.deps.Registry.ListAll() {
		set[id] = struct{}{}
	}
	for _, inst := range r.active() {
		for _, id := range inst.LocalCommands() {
			set[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// hasPending reports whether event would activate an extension that is
// pending or still being activated by an earlier trigger.
func (r *Runtime) hasPending(event string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, set := range []map[string]Candidate{r.pending, r.activating} {
		for _, c := range set {
			if c.Manifest.ActivatesOn(event) {
				return true
			}
		}
	}
	return false
}

// Activate loads every pending extension that lists event among its
// activation events. When another trigger is already activating a
// matching extension, Activate waits for that load instead of reporting
// it missing.
func (r *Runtime) Activate(ctx context.Context, event string) error {
	r.mu.Lock()
	var matched []Candidate
	for id, c := range r.pending {
		if c.Manifest.ActivatesOn(event) {
			delete(r.pending, id)
			r.activating[id] = c
			matched = append(matched, c)
		}
	}
	for _, c := range r.activating {
		if c.Manifest.ActivatesOn(event) && !containsCandidate(matched, c) {
			matched = append(matched, c)
		}
	}
	r.mu.Unlock()

	ordered, cycle := Order(matched)
	var errs []error
	for _, c := range append(ordered, cycle...) {
		if err := r.activateOnce(ctx, c); err != nil && !errutil.HasCode(err, CodeDuplicateID) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// activateOnce loads a lazy candidate, sharing one load between concurrent
// triggers.
func (r *Runtime) activateOnce(ctx context.Context, c Candidate) error {
	id := c.Manifest.ID
	_, err, _ := r.activations.Do(id, func() (any, error) {
		defer func() {
			r.mu.Lock()
			delete(r.activating, id)
			r.mu.Unlock()
		}()
		_, err := r.load(ctx, c)
		return nil, err
	})
	return err
}

func containsCandidate(cs []Candidate, c Candidate) bool {
	for _, x := range cs {
		if x.Manifest.ID == c.Manifest.ID {
			return true
		}
	}
	return false
}

// LoadReport summarizes LoadAll.
type LoadReport struct {
	Loaded  []string
	Pending []string
	Failed  map[string]error
}

// LoadAll loads candidates in dependency order. Extensions with only lazy
// activation events are held pending until Activate or ExecuteCommand
// triggers them. Individual failures are reported, not returned.
func (r *Runtime) LoadAll(ctx context.Context, cands []Candidate) LoadReport {
	report := LoadReport{Failed: make(map[string]error)}
	ordered, cycle := Order(cands)
	all := append(ordered, cycle...)

	for _, c := range all {
		if !c.Manifest.Eager() {
			r.addPending(c)
		}
	}
	for _, c := range all {
		if !c.Manifest.Eager() {
			continue
		}
		if _, err := r.load(ctx, c); err != nil {
			report.Failed[c.Manifest.ID] = err
		}
	}

	for _, st := range r.List() {
		switch st.State {
		case StateActive:
			report.Loaded = append(report.Loaded, st.ID)
		case StatePending:
			report.Pending = append(report.Pending, st.ID)
		case StateFailed:
			if _, ok := report.Failed[st.ID]; !ok {
				r.mu.RLock()
				report.Failed[st.ID] = r.failed[st.ID].err
				r.mu.RUnlock()
			}
		}
	}
	return report
}

// LoadDir discovers packages under dir and loads them with LoadAll.
func (r *Runtime) LoadDir(ctx context.Context, dir string) (LoadReport, error) {
	cands, err := Discover(dir)
	if err != nil {
		return LoadReport{}, err
	}
	return r.LoadAll(ctx, cands), nil
}

func (r *Runtime) addPending(c Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.Manifest.ID
	if _, ok := r.instances[id]; ok || r.loading[id] {
		slog.Warn("extension already loaded, not deferring", "extension", id)
		return
	}
	if _, ok := r.pending[id]; ok {
		slog.Warn("extension already pending", "extension", id)
		return
	}
	r.pending[id] = c
}

// Get returns a loaded instance.
func (r *Runtime) Get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// List reports every extension the runtime knows about, sorted by id.
func (r *Runtime) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.instances)+len(r.pending)+len(r.activating)+len(r.failed))
	for _, inst := range r.instances {
		out = append(out, Status{
			ID:       inst.ID(),
			Name:     inst.Manifest.Name,
			Version:  inst.Manifest.Version,
			State:    inst.State(),
			Strategy: inst.Entry.Strategy,
			Path:     inst.Path,
		})
	}
	for id, c := range r.pendingLocked() {
		out = append(out, Status{
			ID:      id,
			Name:    c.Manifest.Name,
			Version: c.Manifest.Version,
			State:   StatePending,
			Path:    c.Path,
		})
	}
	for id, f := range r.failed {
		if _, ok := r.instances[id]; ok {
			continue
		}
		out = append(out, Status{
			ID:       id,
			Name:     f.candidate.Manifest.Name,
			Version:  f.candidate.Manifest.Version,
			State:    StateFailed,
			Strategy: f.strategy,
			Path:     f.candidate.Path,
			Error:    f.err.Error(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// pendingLocked returns candidates not yet loading: pending ones and those
// an Activate call has taken but not reserved yet.
func (r *Runtime) pendingLocked() map[string]Candidate {
	out := maps.Clone(r.pending)
	for id, c := range r.activating {
		_, loaded := r.instances[id]
		_, failed := r.failed[id]
		if !r.loading[id] && !loaded && !failed {
			out[id] = c
		}
	}
	return out
}

// Close unloads every extension concurrently and forgets pending ones.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	r.pending = make(map[string]Candidate)
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			return r.Unload(gctx, id)
		})
	}
	return g.Wait()
}
