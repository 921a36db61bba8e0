// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"uistyle/cascade"
	"uistyle/config"
	"uistyle/engine"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// EngineOptions converts engine configuration section into options of the
// style engine.
func (e *LocalEnv) EngineOptions() engine.Options {
	if e.Cfg == nil {
		return engine.Options{}
	}
	return engine.Options{
		Viewport: cascade.Size{
			Width:  e.Cfg.Engine.Viewport.Width,
			Height: e.Cfg.Engine.Viewport.Height,
		},
		RootFontSize: e.Cfg.Engine.RootFontSize,
		Workers:      e.Cfg.Engine.Workers,
	}
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
