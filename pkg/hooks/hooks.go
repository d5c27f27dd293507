// Package hooks implements the Hook Registry & Executor: named hooks
// (built-in or operator-registered) invoked in fixed phase order around
// each migration unit, each phase's failures isolated to its own
// savepoint by the Migration Engine.
//
// Plugins are registered by an explicit call at process start (Register),
// or loaded from a declarative YAML manifest (LoadManifest) naming
// (name, phase) pairs that must already be Registered — there is no
// dynamic code loading.
package hooks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
)

// Phase is one of the fixed points in a unit's lifecycle where hooks run.
type Phase string

const (
	BeforeValidation Phase = "BEFORE_VALIDATION"
	BeforeDDL        Phase = "BEFORE_DDL"
	AfterDDL         Phase = "AFTER_DDL"
	AfterValidation  Phase = "AFTER_VALIDATION"
	Cleanup          Phase = "CLEANUP"
	OnError          Phase = "ON_ERROR"
)

// Order is the fixed phase sequence hooks run in. ON_ERROR
// is deliberately absent: it only runs outside the normal sequence, after a
// failed unit's transaction has already rolled back.
var Order = []Phase{BeforeValidation, BeforeDDL, AfterDDL, AfterValidation, Cleanup}

// Direction is the migration direction a HookContext is running under.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Context is the per-unit record passed to hooks. It is owned
// by the Migration Engine for exactly one unit's lifetime; hooks may read
// and write Scratchpad but must not retain a reference past the call that
// handed it to them.
type Context struct {
	MigrationName    string
	MigrationVersion string
	Direction        Direction
	Scratchpad       map[string]any
}

// NewContext creates a fresh HookContext for one unit's apply/rollback.
func NewContext(version, name string, dir Direction) *Context {
	return &Context{
		MigrationName:    name,
		MigrationVersion: version,
		Direction:        dir,
		Scratchpad:       make(map[string]any),
	}
}

// Fn is a registered hook body. It receives the live transaction so all
// side effects flow through the engine's current connection — no hook
// performs its own I/O against a separate connection — and the shared
// HookContext.
type Fn func(ctx context.Context, tx *sql.Tx, hc *Context) error

// registeredHook pairs a hook body with the name it was registered under.
type registeredHook struct {
	name string
	fn   Fn
}

// Registry resolves named hooks and invokes them in phase order. Hooks of
// the same phase run in registration order.
type Registry struct {
	byPhase map[Phase][]registeredHook
	byName  map[string]Fn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPhase: make(map[Phase][]registeredHook),
		byName:  make(map[string]Fn),
	}
}

// Register binds a named hook to a phase, in call order. Operators link
// their hook package and call Register during initialization, rather than
// relying on dynamic discovery.
func (r *Registry) Register(phase Phase, name string, fn Fn) {
	r.byPhase[phase] = append(r.byPhase[phase], registeredHook{name: name, fn: fn})
	r.byName[name] = fn
}

// ManifestEntry is one (name, phase) binding in a hook plugin manifest
// file, for the declarative alternative to calling Register directly.
type ManifestEntry struct {
	Name  string `yaml:"name"`
	Phase Phase  `yaml:"phase"`
}

// Manifest is a list of hook bindings. Every name referenced must already
// have been registered via Register before LoadManifest runs, since this
// rewrite has no dynamic plugin loading.
type Manifest struct {
	Hooks []ManifestEntry `yaml:"hooks"`
}

// LoadManifest parses a YAML hook manifest and binds each entry's name to
// its phase, looking the name up in already-registered hooks.
func (r *Registry) LoadManifest(data []byte) error {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return &errcat.ConfigError{Code: "MIGR_040", Message: "invalid hook manifest: " + err.Error()}
	}
	for _, e := range m.Hooks {
		fn, ok := r.byName[e.Name]
		if !ok {
			return &errcat.ConfigError{
				Code:    "MIGR_041",
				Message: fmt.Sprintf("hook manifest references unregistered hook %q", e.Name),
			}
		}
		r.byPhase[e.Phase] = append(r.byPhase[e.Phase], registeredHook{name: e.Name, fn: fn})
	}
	return nil
}

// Run invokes every hook registered for phase, in registration order,
// within the given transaction (the caller is responsible for the
// savepoint around this call). The first hook to fail aborts the phase and
// returns a HookError naming that hook and phase.
func (r *Registry) Run(ctx context.Context, tx *sql.Tx, phase Phase, hc *Context) error {
	for _, h := range r.byPhase[phase] {
		if err := h.fn(ctx, tx, hc); err != nil {
			return &errcat.HookError{HookName: h.name, Phase: string(phase), Err: err}
		}
	}
	return nil
}

// RunOnError invokes ON_ERROR hooks best-effort in a fresh transaction
// (, run *after* rollback): failures are collected and
// returned but never propagated as the unit's failure.
func (r *Registry) RunOnError(ctx context.Context, tx *sql.Tx, hc *Context) []error {
	var errs []error
	for _, h := range r.byPhase[OnError] {
		if err := h.fn(ctx, tx, hc); err != nil {
			errs = append(errs, &errcat.HookError{HookName: h.name, Phase: string(OnError), Err: err})
		}
	}
	return errs
}

// Names returns the registered hook names for phase, in registration
// order (used for `migrate status`/diagnostics rendering).
func (r *Registry) Names(phase Phase) []string {
	hooks := r.byPhase[phase]
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.name
	}
	return names
}

// AllPhases returns every phase with at least one registered hook, sorted
// by the fixed Order (ON_ERROR last).
func (r *Registry) AllPhases() []Phase {
	var phases []Phase
	for _, p := range append(append([]Phase{}, Order...), OnError) {
		if len(r.byPhase[p]) > 0 {
			phases = append(phases, p)
		}
	}
	sort.SliceStable(phases, func(i, j int) bool { return false }) // preserve Order's sequence
	return phases
}
