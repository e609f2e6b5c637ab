// Package logging wraps zap for hubmirror. Log lines go to stderr so that
// command output on stdout stays pipeable. A build tags its lines with a
// build ID and the project it is mirroring through the context logger.
package logging

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	buildIDKey
)

var (
	current atomic.Pointer[zap.Logger]
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Config selects the level, encoding and destination of the global logger.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // console or json
	OutputPath string // empty means stderr
}

func parseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Init builds the global logger from cfg.
func Init(cfg Config) error {
	l, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.DisableCaller = true
		zc.DisableStacktrace = true
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	case "json":
		zc = zap.NewProductionConfig()
		zc.Sampling = nil
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	out := cfg.OutputPath
	if out == "" {
		out = "stderr"
	}
	level.SetLevel(l)
	zc.Level = level
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	current.Store(logger)
	return nil
}

// SetLogger replaces the global logger. Tests pass an observer core.
func SetLogger(l *zap.Logger) {
	current.Store(l)
}

// Sync flushes buffered entries.
func Sync() error {
	if l := current.Load(); l != nil {
		return l.Sync()
	}
	return nil
}

// SetLevel changes the level at runtime. Unknown names are ignored.
func SetLevel(name string) {
	if l, err := parseLevel(name); err == nil {
		level.SetLevel(l)
	}
}

// L returns the global logger, creating a JSON stderr logger on first use
// when Init was never called.
func L() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		l = zap.NewNop()
	}
	if current.CompareAndSwap(nil, l) {
		return l
	}
	return current.Load()
}

// S returns the global sugared logger.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// WithContext returns the logger attached to ctx, or the global one.
func WithContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return L()
}

// WithFields returns a context whose logger also carries fields.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, loggerKey, WithContext(ctx).With(fields...))
}

// WithBuildID tags every line logged through ctx with buildID.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	ctx = WithFields(ctx, zap.String("build_id", buildID))
	return context.WithValue(ctx, buildIDKey, buildID)
}

// GetBuildID returns the build ID stored by WithBuildID, or "".
func GetBuildID(ctx context.Context) string {
	id, _ := ctx.Value(buildIDKey).(string)
	return id
}

// WithProject tags every line logged through ctx with the account and
// project being mirrored.
func WithProject(ctx context.Context, accountID, projectID string) context.Context {
	return WithFields(ctx, zap.String("account_id", accountID), zap.String("project_id", projectID))
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// Field shorthands so callers need not import zap.
var (
	String   = zap.String
	Int      = zap.Int
	Duration = zap.Duration
	Strings  = zap.Strings
	Err      = zap.Error
)
