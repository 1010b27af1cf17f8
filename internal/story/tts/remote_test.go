package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu     sync.Mutex
	clips  [][]byte
	paused bool
	stops  int
}

func (p *fakePlayer) Play(_ context.Context, clip io.ReadCloser) error {
	defer clip.Close()
	data, err := io.ReadAll(clip)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.clips = append(p.clips, data)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *fakePlayer) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.paused
}

func TestRemoteEngine(t *testing.T) {
	t.Run("Should post the text and play the returned audio", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/tts", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello there", body["text"])
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3fake"))
		}))
		defer server.Close()

		player := &fakePlayer{}
		engine := newRemoteEngine(Config{URL: server.URL + "/"}, player)
		require.NoError(t, engine.Speak(context.Background(), "hello there"))
		require.Len(t, player.clips, 1)
		assert.Equal(t, []byte("ID3fake"), player.clips[0])
	})

	t.Run("Should retry server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte("audio"))
		}))
		defer server.Close()

		engine := newRemoteEngine(Config{URL: server.URL}, &fakePlayer{})
		audio, err := engine.Synthesize(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, []byte("audio"), audio)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Should fail on client errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad text", http.StatusBadRequest)
		}))
		defer server.Close()

		engine := newRemoteEngine(Config{URL: server.URL}, &fakePlayer{})
		_, err := engine.Synthesize(context.Background(), "x")
		require.ErrorContains(t, err, "400")
	})

	t.Run("Should fail on empty audio", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		engine := newRemoteEngine(Config{URL: server.URL}, &fakePlayer{})
		_, err := engine.Synthesize(context.Background(), "x")
		require.ErrorContains(t, err, "no audio")
	})

	t.Run("Should forward playback controls", func(t *testing.T) {
		player := &fakePlayer{}
		engine := newRemoteEngine(Config{URL: "http://tts.local"}, player)
		require.NoError(t, engine.Pause())
		assert.False(t, engine.IsPlaying())
		require.NoError(t, engine.Resume())
		assert.True(t, engine.IsPlaying())
		require.NoError(t, engine.Stop())
		assert.Equal(t, 1, player.stops)
	})
}
