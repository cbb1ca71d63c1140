package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/erpledger/erpledger/internal/config"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		logger, err := New(config.LogConfig{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), format)
	}

	logger, err := New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
