package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_LevelFiltering(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core), LevelInfo)

	l.Debug("hidden")
	l.Info("shown", String("kind", "position"), Int("count", 2))
	l.Warn("careful", Error(errors.New("boom")))

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "shown", entries[0].Message)
	assert.Equal(t, "position", entries[0].ContextMap()["kind"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])

	l.SetLevel(LevelDebug)
	l.Debug("now shown")
	assert.Equal(t, 3, logs.Len())
	assert.Equal(t, LevelDebug, l.GetLevel())
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core), LevelDebug)

	l.Named("scope").With(String("scope", "s1")).Info("entity created")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "scope", entry.LoggerName)
	assert.Equal(t, "s1", entry.ContextMap()["scope"])
}

func TestLogger_NopAndParse(t *testing.T) {
	l := NewNop()
	l.Error("dropped")
	assert.Equal(t, LevelSilent, l.GetLevel())

	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
