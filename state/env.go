// Package state carries per-run program state through context.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"pagesheet/config"
	"pagesheet/sheet"
)

type envKey struct{}

// Overrides are command line settings which win over configuration for the
// command being run. Zero values leave configuration in charge.
type Overrides struct {
	// Capacity is maximum number of rules per page (split, probe).
	Capacity int
	// Fast selects insertion mode (probe), nil keeps profile setting.
	Fast *bool
	// Overwrite allows replacing existing output files (split).
	Overwrite bool
	// ZipCodePage decodes archive file names which are not marked as UTF-8
	// (split).
	ZipCodePage encoding.Encoding
}

// LocalEnv is created once per run and passed to commands in context.
type LocalEnv struct {
	Cfg   *config.Config
	Rpt   *config.Report
	Log   *zap.Logger
	Flags Overrides

	started    time.Time
	undoStdLog func()
}

// EnvFromContext panics when ctx was not prepared by ContextWithEnv.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("program state is missing from context")
	}
	return env
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

// SheetOptions returns store options for the current command.
func (e *LocalEnv) SheetOptions() sheet.Options {
	var opts sheet.Options
	if e.Cfg != nil {
		opts = e.Cfg.Sheet.Options()
	}
	if e.Flags.Capacity > 0 {
		opts.Capacity = e.Flags.Capacity
	}
	if e.Flags.Fast != nil {
		opts.Fast = *e.Flags.Fast
	}
	return opts
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.started)
}

// RedirectStdLog sends standard library log output to our logger until
// RestoreStdLog is called.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log != nil {
		e.undoStdLog = zap.RedirectStdLog(e.Log)
	}
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.undoStdLog != nil {
		e.undoStdLog()
		e.undoStdLog = nil
	}
}
