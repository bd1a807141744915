package logging

import (
	"testing"

	"github.com/momentics/cnet/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gotest.tools/v3/assert"
)

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZap(zap.New(core))

	l.Log(api.LevelDebug, 0, "plain")
	l.Log(api.LevelInfo, 1, "using socket %d", 7)
	l.Log(api.LevelWarn, 2, "100%% literal")
	l.Log(api.LevelError, 3, "failed: %s", "boom")

	entries := logs.AllUntimed()
	assert.Equal(t, len(entries), 4)
	assert.Equal(t, entries[0].Message, "plain")
	assert.Equal(t, entries[0].Level, zapcore.DebugLevel)
	assert.Equal(t, entries[1].Message, "using socket 7")
	assert.Equal(t, entries[1].ContextMap()["code"], int64(1))
	// Without args the message is passed through untouched.
	assert.Equal(t, entries[2].Message, "100%% literal")
	assert.Equal(t, entries[3].Level, zapcore.ErrorLevel)
	assert.Equal(t, entries[3].Message, "failed: boom")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	assert.NilError(t, err)
	assert.Equal(t, lvl, zapcore.InfoLevel)

	lvl, err = ParseLevel("debug")
	assert.NilError(t, err)
	assert.Equal(t, lvl, zapcore.DebugLevel)

	_, err = ParseLevel("chatty")
	assert.Check(t, api.IsContractViolation(err))
}

func TestNewLoggerAtomicLevel(t *testing.T) {
	l, level, err := New("warn", false)
	assert.NilError(t, err)
	defer l.Sync()
	assert.Check(t, !l.Core().Enabled(zapcore.InfoLevel))
	level.SetLevel(zapcore.DebugLevel)
	assert.Check(t, l.Core().Enabled(zapcore.DebugLevel))
}
