// Package taup ties the velocity, slowness, tau and phase packages together.
// An Engine owns the surface tau model of each velocity model it has seen and
// a cache of depth-corrected models, so repeated queries at the same source
// depth only pay for phase interpretation.
package taup

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chrissnell/taup/pkg/phase"
	"github.com/chrissnell/taup/pkg/slowness"
	"github.com/chrissnell/taup/pkg/tau"
	"github.com/chrissnell/taup/pkg/velocity"
	"go.uber.org/zap"
)

// DefaultPhases is used when a query names no phases.
var DefaultPhases = []string{"p", "s", "P", "S", "Pn", "Sn", "PcP", "ScS", "Pdiff", "Sdiff", "PKP", "SKS", "PKiKP", "PKIKP", "pP", "sS", "PP", "SS"}

type modelEntry struct {
	once  sync.Once
	cache *tau.DepthCache
	err   error
}

// Engine builds and memoizes tau models by name. It is safe for concurrent
// use.
type Engine struct {
	sampling  slowness.Options
	phaseOpts phase.Options
	defaults  []string
	cacheSize int
	log       *zap.SugaredLogger

	mu      sync.Mutex
	custom  map[string]*velocity.Model
	entries map[string]*modelEntry
}

type Option func(*Engine)

func WithSampling(o slowness.Options) Option {
	return func(e *Engine) { e.sampling = o }
}

func WithPhaseOptions(o phase.Options) Option {
	return func(e *Engine) { e.phaseOpts = o }
}

// WithDefaultPhases replaces DefaultPhases for queries that name no phases.
// An empty list keeps DefaultPhases.
func WithDefaultPhases(names []string) Option {
	return func(e *Engine) {
		if len(names) > 0 {
			e.defaults = append([]string(nil), names...)
		}
	}
}

// WithCacheSize bounds how many source depths are kept per model. Queries
// arrive with arbitrary depths, so the cache evicts the least recently used.
func WithCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithModel registers a velocity model under its name, shadowing any
// built-in model of the same name.
func WithModel(m *velocity.Model) Option {
	return func(e *Engine) { e.custom[m.Name] = m }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		sampling:  slowness.DefaultOptions(),
		phaseOpts: phase.DefaultOptions(),
		defaults:  DefaultPhases,
		cacheSize: tau.DefaultCacheSize,
		log:       zap.NewNop().Sugar(),
		custom:    make(map[string]*velocity.Model),
		entries:   make(map[string]*modelEntry),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DefaultPhases returns the phases used when a query names none.
func (e *Engine) DefaultPhases() []string {
	return append([]string(nil), e.defaults...)
}

// Models lists every model name the engine can build.
func (e *Engine) Models() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := velocity.Names()
	for n := range e.custom {
		if _, err := velocity.Lookup(n); err != nil {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func (e *Engine) velocityModel(name string) (*velocity.Model, error) {
	e.mu.Lock()
	m, ok := e.custom[name]
	e.mu.Unlock()
	if ok {
		return m.Clone(), nil
	}
	return velocity.Lookup(name)
}

// depthCache returns the cache for model, building its surface tau model on
// first use.
func (e *Engine) depthCache(model string) (*tau.DepthCache, error) {
	e.mu.Lock()
	entry, ok := e.entries[model]
	if !ok {
		entry = &modelEntry{}
		e.entries[model] = entry
	}
	e.mu.Unlock()

	entry.once.Do(func() {
		vMod, err := e.velocityModel(model)
		if err != nil {
			entry.err = err
			return
		}
		sMod, err := slowness.New(vMod, slowness.WithOptions(e.sampling), slowness.WithLogger(e.log))
		if err != nil {
			entry.err = err
			return
		}
		tMod, err := tau.New(sMod, tau.WithLogger(e.log))
		if err != nil {
			entry.err = err
			return
		}
		entry.cache = tau.NewDepthCache(tMod, e.cacheSize)
		e.log.Infow("built tau model", "model", model, "branches", tMod.NumBranches(), "ray_params", tMod.NumRayParams())
	})
	if entry.err != nil {
		return nil, fmt.Errorf("model %q: %w", model, entry.err)
	}
	return entry.cache, nil
}

// TauModel returns model corrected for a source at depth km.
func (e *Engine) TauModel(model string, depth float64) (*tau.Model, error) {
	c, err := e.depthCache(model)
	if err != nil {
		return nil, err
	}
	return c.DepthCorrect(depth)
}

// Phase interprets name for model and source depth.
func (e *Engine) Phase(name, model string, depth float64) (*phase.Phase, error) {
	tMod, err := e.TauModel(model, depth)
	if err != nil {
		return nil, err
	}
	return phase.New(name, tMod, phase.WithOptions(e.phaseOpts), phase.WithLogger(e.log))
}

// Phases interprets every name against the same source model. Duplicate
// names are dropped.
func (e *Engine) Phases(names []string, model string, depth float64) ([]*phase.Phase, error) {
	tMod, err := e.TauModel(model, depth)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(names))
	out := make([]*phase.Phase, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		ph, err := phase.New(n, tMod, phase.WithOptions(e.phaseOpts), phase.WithLogger(e.log))
		if err != nil {
			return nil, err
		}
		out = append(out, ph)
	}
	return out, nil
}

// Reset drops every memoized tau model.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.entries = make(map[string]*modelEntry)
	e.mu.Unlock()
}
