// Package logger provides the structured logging interface used across the
// confiture core: a small interface backed by pterm for real use and a
// no-op implementation for library/test contexts.
package logger

import "github.com/pterm/pterm"

// Logger is responsible for logging every phase of migration, seed and
// comparator activity. Nothing in the core talks to stdout directly;
// everything flows through this interface so the CLI can format output
// (JSON/CSV/human) independently of the core.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	LogUnitStart(version, name, direction string)
	LogUnitComplete(version, name, direction string)
	LogUnitRollback(version, name string)

	LogHookStart(phase, name string)
	LogHookComplete(phase, name string)

	LogLockAcquire(key int64)
	LogLockRelease(key int64)

	LogSeedFileStart(path string, rows int)
	LogSeedFileComplete(path string, rows int)
}

type ptermLogger struct {
	l pterm.Logger
}

// New returns a Logger backed by pterm's default structured logger.
func New() Logger {
	return &ptermLogger{l: pterm.DefaultLogger}
}

func (p *ptermLogger) Info(msg string, args ...any)  { p.l.Info(msg, p.l.Args(args...)) }
func (p *ptermLogger) Warn(msg string, args ...any)  { p.l.Warn(msg, p.l.Args(args...)) }
func (p *ptermLogger) Error(msg string, args ...any) { p.l.Error(msg, p.l.Args(args...)) }

func (p *ptermLogger) LogUnitStart(version, name, direction string) {
	p.l.Info("starting migration unit", p.l.Args("version", version, "name", name, "direction", direction))
}

func (p *ptermLogger) LogUnitComplete(version, name, direction string) {
	p.l.Info("completed migration unit", p.l.Args("version", version, "name", name, "direction", direction))
}

func (p *ptermLogger) LogUnitRollback(version, name string) {
	p.l.Info("rolled back migration unit", p.l.Args("version", version, "name", name))
}

func (p *ptermLogger) LogHookStart(phase, name string) {
	p.l.Info("running hook", p.l.Args("phase", phase, "hook", name))
}

func (p *ptermLogger) LogHookComplete(phase, name string) {
	p.l.Info("hook completed", p.l.Args("phase", phase, "hook", name))
}

func (p *ptermLogger) LogLockAcquire(key int64) {
	p.l.Info("acquired advisory lock", p.l.Args("key", key))
}

func (p *ptermLogger) LogLockRelease(key int64) {
	p.l.Info("released advisory lock", p.l.Args("key", key))
}

func (p *ptermLogger) LogSeedFileStart(path string, rows int) {
	p.l.Info("loading seed file", p.l.Args("file", path, "rows", rows))
}

func (p *ptermLogger) LogSeedFileComplete(path string, rows int) {
	p.l.Info("loaded seed file", p.l.Args("file", path, "rows", rows))
}

type noopLogger struct{}

// NewNoop returns a Logger that discards everything, for library embedding
// and tests.
func NewNoop() Logger { return &noopLogger{} }

func (noopLogger) Info(string, ...any)               {}
func (noopLogger) Warn(string, ...any)               {}
func (noopLogger) Error(string, ...any)              {}
func (noopLogger) LogUnitStart(_, _, _ string)       {}
func (noopLogger) LogUnitComplete(_, _, _ string)    {}
func (noopLogger) LogUnitRollback(_, _ string)       {}
func (noopLogger) LogHookStart(_, _ string)          {}
func (noopLogger) LogHookComplete(_, _ string)       {}
func (noopLogger) LogLockAcquire(_ int64)            {}
func (noopLogger) LogLockRelease(_ int64)            {}
func (noopLogger) LogSeedFileStart(_ string, _ int)  {}
func (noopLogger) LogSeedFileComplete(_ string, _ int) {}
