package tts

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withoutGoogleCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	require.NoError(t, os.Unsetenv("GOOGLE_APPLICATION_CREDENTIALS"))
}

func TestBestEngineFor(t *testing.T) {
	t.Run("Should prefer the remote backend when a URL is set", func(t *testing.T) {
		assert.Equal(t, EngineTypeRemote, bestEngineFor(Config{URL: "http://tts.local"}, "linux"))
	})

	t.Run("Should prefer google when credentials are present", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/creds.json")
		assert.Equal(t, EngineTypeGoogle, bestEngineFor(Config{}, "linux"))
	})

	t.Run("Should fall back to the platform synthesizer", func(t *testing.T) {
		withoutGoogleCredentials(t)
		assert.Equal(t, EngineTypeSAPI, bestEngineFor(Config{}, "windows"))
		assert.Equal(t, EngineTypeSay, bestEngineFor(Config{}, "darwin"))
		assert.Equal(t, EngineTypeESpeak, bestEngineFor(Config{}, "linux"))
	})
}

func TestNewEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Should build the mock engine", func(t *testing.T) {
		engine, err := NewEngine(ctx, Config{Type: "mock"})
		require.NoError(t, err)
		assert.Equal(t, "mock", engine.Name())
	})

	t.Run("Should build the remote engine when auto has a URL", func(t *testing.T) {
		engine, err := NewEngine(ctx, Config{Type: "auto", URL: "http://tts.local"})
		require.NoError(t, err)
		assert.Equal(t, "remote", engine.Name())
	})

	t.Run("Should require a URL for the remote engine", func(t *testing.T) {
		_, err := NewEngine(ctx, Config{Type: "remote"})
		require.Error(t, err)
	})

	t.Run("Should reject unknown engines", func(t *testing.T) {
		_, err := NewEngine(ctx, Config{Type: "gramophone"})
		require.ErrorContains(t, err, "unsupported TTS engine type")
	})
}

func TestAvailableEngines(t *testing.T) {
	withoutGoogleCredentials(t)
	engines := AvailableEngines()
	assert.Contains(t, engines, EngineTypeMock)
	assert.Contains(t, engines, EngineTypeRemote)
	assert.NotContains(t, engines, EngineTypeGoogle)
}
