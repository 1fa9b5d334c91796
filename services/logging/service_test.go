package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewService(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		service, err := NewService(Config{Level: Info, Format: "json", OutputPath: "stdout"})

		require.NoError(t, err)
		assert.NotNil(t, service.Logger())
	})

	t.Run("console format", func(t *testing.T) {
		service, err := NewService(Config{Level: Debug, Format: "console", OutputPath: "stdout"})

		require.NoError(t, err)
		assert.NotNil(t, service.Logger())
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "auth.log")

		service, err := NewService(Config{Level: Warn, Format: "json", OutputPath: logFile})
		require.NoError(t, err)

		service.Warn("refresh token expired")
		require.NoError(t, service.Sync())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "refresh token expired")
	})
}

func TestService_NilSafe(t *testing.T) {
	var service *Service

	assert.NotPanics(t, func() {
		service.Debug("debug")
		service.Info("info")
		service.Warn("warn")
		service.Error("error")
		assert.Nil(t, service.Named("jwt"))
		assert.Nil(t, service.Logger())
		assert.NoError(t, service.Sync())
	})
}

func TestService_Named(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	service := NewFromZap(zap.New(core)).Named("refreshtoken")

	service.Info("rotated", zap.String("owner", "alice"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "refreshtoken", entries[0].LoggerName)
	assert.Equal(t, "alice", entries[0].ContextMap()["owner"])
}

func TestTokenField(t *testing.T) {
	field := TokenField("token", "eyJhbGciOiJIUzI1NiJ9.payload.signature")

	assert.Equal(t, "token", field.Key)
	assert.Len(t, field.String, 16)
	assert.NotContains(t, field.String, "eyJ")

	assert.Equal(t, TokenField("token", "same"), TokenField("token", "same"))
	assert.Empty(t, TokenField("token", "").String)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel(Debug))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel(Warn))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel(Error))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("verbose"))
}
