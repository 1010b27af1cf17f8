package tts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEngine(t *testing.T) {
	t.Run("Should record spoken text", func(t *testing.T) {
		m := NewMockEngine()
		require.NoError(t, m.Speak(context.Background(), "once upon a time"))
		require.NoError(t, m.Speak(context.Background(), "the end"))
		assert.Equal(t, []string{"once upon a time", "the end"}, m.Spoken())
		assert.False(t, m.IsPlaying())
	})

	t.Run("Should stop a long Speak", func(t *testing.T) {
		m := &MockEngine{Delay: time.Hour}
		done := make(chan error, 1)
		go func() { done <- m.Speak(context.Background(), "long") }()

		require.Eventually(t, m.IsPlaying, time.Second, time.Millisecond)
		require.NoError(t, m.Pause())
		assert.False(t, m.IsPlaying())
		require.NoError(t, m.Resume())
		assert.True(t, m.IsPlaying())

		require.NoError(t, m.Stop())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Speak did not return after Stop")
		}
	})

	t.Run("Should return the context error on cancel", func(t *testing.T) {
		m := &MockEngine{Delay: time.Hour}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.Speak(ctx, "x"), context.Canceled)
	})

	t.Run("Should list a voice", func(t *testing.T) {
		voices, err := NewMockEngine().Voices(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"mock-voice"}, voices)
	})
}
