package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit_Levels(t *testing.T) {
	t.Cleanup(func() { Logger = nil })

	require.NoError(t, Init("production", ""))
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("development", ""))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("development", "warn"))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))

	assert.Error(t, Init("production", "loud"))
}

func TestGet_Fallback(t *testing.T) {
	Logger = nil
	assert.NotNil(t, Get())
	assert.NotNil(t, Named("graph"))
}
