// Package logging builds the logr.Logger used by the CLI and the workflows.
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap-backed logger. verbose selects the development config,
// which also enables V(1) messages such as individual poll attempts.
func New(verbose bool) (logr.Logger, func(), error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	sync := func() { _ = zl.Sync() }
	return zapr.NewLogger(zl), sync, nil
}

// IntoContext stores log in ctx, where the poller and workflows pick it up.
func IntoContext(ctx context.Context, log logr.Logger) context.Context {
	return logr.NewContext(ctx, log)
}

// FromContext returns the logger stored in ctx, or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}
