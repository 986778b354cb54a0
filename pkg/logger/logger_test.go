package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetCapturesEntries(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))
	defer Set(nil)

	Info("session restored", zap.String("user", "u1"))
	Debug("dropped")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "session restored", entry.Message)
	assert.Equal(t, "u1", entry.ContextMap()["user"])
}

func TestInitWithFile(t *testing.T) {
	defer Set(nil)
	err := Init(LogConfig{Level: "debug", Filename: filepath.Join(t.TempDir(), "guardian.log"), MaxSize: 1})
	require.NoError(t, err)
	Warn("written to file")

	assert.Error(t, Init(LogConfig{Level: "loud"}))
}
