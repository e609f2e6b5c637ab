package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := current.Load()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestWithBuildID(t *testing.T) {
	logs := observe(t)

	ctx := WithBuildID(context.Background(), "b-123")
	assert.Equal(t, "b-123", GetBuildID(ctx))
	WithContext(ctx).Info("fetched", Int("children", 3))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "b-123", fields["build_id"])
	assert.EqualValues(t, 3, fields["children"])
}

func TestWithContextFallsBackToGlobal(t *testing.T) {
	logs := observe(t)

	WithContext(context.Background()).Warn("plain", Err(errors.New("boom")))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "boom", logs.All()[0].ContextMap()["error"])
	assert.Empty(t, GetBuildID(context.Background()))
}

func TestSetLevel(t *testing.T) {
	SetLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	SetLevel("nonsense")
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	SetLevel("INFO")
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestInit(t *testing.T) {
	prev := current.Load()
	t.Cleanup(func() {
		SetLogger(prev)
		SetLevel("info")
	})

	require.NoError(t, Init(Config{Level: "warn", Format: "console"}))
	assert.Equal(t, zapcore.WarnLevel, level.Level())
	assert.NotNil(t, L())
	assert.NotNil(t, S())

	require.NoError(t, Init(Config{Format: "json"}))
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestInitRejectsUnknownValues(t *testing.T) {
	prev := current.Load()
	t.Cleanup(func() { SetLogger(prev) })

	assert.Error(t, Init(Config{Level: "loud"}))
	assert.Error(t, Init(Config{Format: "xml"}))
}

func TestWithProject(t *testing.T) {
	logs := observe(t)

	ctx := WithBuildID(context.Background(), "b-1")
	ctx = WithProject(ctx, "acct", "proj")
	WithContext(ctx).Debug("fill")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "b-1", fields["build_id"])
	assert.Equal(t, "acct", fields["account_id"])
	assert.Equal(t, "proj", fields["project_id"])
}

func TestLazyDefault(t *testing.T) {
	prev := current.Load()
	t.Cleanup(func() { SetLogger(prev) })

	current.Store(nil)
	first := L()
	assert.NotNil(t, first)
	assert.Same(t, first, L())
}
