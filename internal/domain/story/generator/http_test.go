package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloom/internal/domain/story"
)

func TestHTTPGenerator(t *testing.T) {
	t.Run("Should post the prompt and return the story", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/generate-story", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a fox who sings", body["prompt"])

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"story": "The fox **sang**."})
		}))
		defer srv.Close()

		g := NewHTTPGenerator(srv.URL, 5*time.Second)
		item, err := g.Generate(context.Background(), story.Prompt{Text: "  a fox who sings "})
		require.NoError(t, err)
		assert.Equal(t, "The fox **sang**.", item.Content)
		assert.Equal(t, "a fox who sings", item.Description)
		assert.Contains(t, item.ID, "generated-")
	})

	t.Run("Should reject blank prompts without calling the backend", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		_, err := NewHTTPGenerator(srv.URL, time.Second).Generate(context.Background(), story.Prompt{Text: "   "})
		require.ErrorIs(t, err, story.ErrEmptyPrompt)
		assert.Zero(t, calls.Load())
	})

	t.Run("Should retry server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"story":"second time lucky","title":"Luck"}`))
		}))
		defer srv.Close()

		item, err := NewHTTPGenerator(srv.URL, 5*time.Second).Generate(context.Background(), story.Prompt{Text: "luck"})
		require.NoError(t, err)
		assert.Equal(t, "Luck", item.Title)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Should surface client errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad prompt", http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := NewHTTPGenerator(srv.URL, time.Second).Generate(context.Background(), story.Prompt{Text: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
		assert.Contains(t, err.Error(), "bad prompt")
	})

	t.Run("Should fail on an empty story", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"story":"  "}`))
		}))
		defer srv.Close()

		_, err := NewHTTPGenerator(srv.URL, time.Second).Generate(context.Background(), story.Prompt{Text: "x"})
		require.ErrorIs(t, err, ErrEmptyStory)
	})
}

func TestNew(t *testing.T) {
	g, err := New(Config{Type: "library"})
	require.NoError(t, err)
	assert.IsType(t, &LibraryGenerator{}, g)

	g, err = New(Config{Type: "http", URL: "http://localhost:1", Timeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &HTTPGenerator{}, g)

	_, err = New(Config{Type: "carrier-pigeon"})
	require.Error(t, err)
}
