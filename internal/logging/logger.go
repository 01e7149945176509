// Package logging wraps zap with the key-value, scoped-child-logger style
// used across the retrieval pack's HTTP services.
package logging

import "go.uber.org/zap"

// Logger is a thin wrapper around zap.SugaredLogger.
type Logger struct {
	Sugared *zap.SugaredLogger
}

// New builds a Logger. mode "production" selects zap's JSON production
// config; anything else selects the human-readable development config.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	if mode == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Sugared: z.Sugar()}, nil
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() {
	_ = l.Sugared.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.Sugared.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.Sugared.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.Sugared.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.Sugared.Errorw(msg, kv...) }
func (l *Logger) Fatal(msg string, kv ...any) { l.Sugared.Fatalw(msg, kv...) }

// With returns a child logger scoped with the given key-value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{Sugared: l.Sugared.With(kv...)}
}
