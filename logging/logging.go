// Package logging provides the leveled, sugared logger used across the
// supervisor, planner, and action packages.
package logging

import (
	"context"

	"go.uber.org/zap"
)

// Logger is the logging interface used throughout this module. It mirrors
// the call sites of a typical sugared logger: leveled printf-style methods
// plus context-aware variants for per-request correlation.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	CDebugf(ctx context.Context, template string, args ...interface{})
	CInfof(ctx context.Context, template string, args ...interface{})
	CWarnf(ctx context.Context, template string, args ...interface{})
	CErrorf(ctx context.Context, template string, args ...interface{})

	// With returns a child logger that always includes the given
	// structured fields.
	With(keysAndValues ...interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New returns a production-configured Logger backed by zap.
func New(name string) Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{sugar: z.Named(name).Sugar()}
}

// NewTest returns a Logger suitable for use in unit tests: human-readable,
// debug level, writing to stderr.
func NewTest(name string) Logger {
	cfg := zap.NewDevelopmentConfig()
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{sugar: z.Named(name).Sugar()}
}

func (l *zapLogger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }
func (l *zapLogger) Infof(template string, args ...interface{})  { l.sugar.Infof(template, args...) }
func (l *zapLogger) Warnf(template string, args ...interface{})  { l.sugar.Warnf(template, args...) }
func (l *zapLogger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }

// The context-aware variants don't yet pull anything out of the context
// (there is no distributed tracing in this core); they exist so call sites
// don't need to special-case whether a context is available, matching the
// CDebugf/CInfof call sites seen throughout the retrieved RDK sources.
func (l *zapLogger) CDebugf(_ context.Context, template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

func (l *zapLogger) CInfof(_ context.Context, template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *zapLogger) CWarnf(_ context.Context, template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *zapLogger) CErrorf(_ context.Context, template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

func (l *zapLogger) With(keysAndValues ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(keysAndValues...)}
}
