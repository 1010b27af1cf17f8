package nest

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloom/internal/config"
	"storyloom/internal/domain/story"
	"storyloom/internal/domain/story/generator"
	"storyloom/internal/reveal/markdown"
	"storyloom/internal/story/tts"
)

func testConfig() *config.Config {
	return &config.Config{
		Reveal: config.RevealConfig{
			Grain:    "word",
			Interval: time.Millisecond,
			Strategy: "flags",
			Width:    80,
		},
		Generator: config.GeneratorConfig{Type: "library"},
		TTS:       config.TTSConfig{Type: "mock", Speed: 1, Volume: 1},
		Log:       config.LogConfig{Level: "warn"},
	}
}

func newTestLoom(t *testing.T, input string, opts ...Option) (*StoryLoom, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	opts = append([]Option{
		WithIO(strings.NewReader(input), out),
		WithGenerator(generator.NewLibraryGenerator(rand.New(rand.NewPCG(1, 2)))),
	}, opts...)
	s, err := NewStoryLoom(testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, out
}

func TestNewStoryLoom(t *testing.T) {
	t.Run("Should reject an unknown grain", func(t *testing.T) {
		cfg := testConfig()
		cfg.Reveal.Grain = "sentence"
		_, err := NewStoryLoom(cfg)
		require.Error(t, err)
	})

	t.Run("Should reject an unknown generator", func(t *testing.T) {
		cfg := testConfig()
		cfg.Generator.Type = "oracle"
		_, err := NewStoryLoom(cfg)
		require.ErrorContains(t, err, "unsupported story generator type")
	})

	t.Run("Should build the configured engine once", func(t *testing.T) {
		s, _ := newTestLoom(t, "")
		first, err := s.Engine(context.Background())
		require.NoError(t, err)
		second, err := s.Engine(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, "mock", first.Name())
	})
}

func TestReadIdea(t *testing.T) {
	t.Run("Should join arguments", func(t *testing.T) {
		s, _ := newTestLoom(t, "")
		prompt, err := s.ReadIdea([]string{"a", "space", "cat"})
		require.NoError(t, err)
		assert.Equal(t, "a space cat", prompt.Text)
	})

	t.Run("Should ask when no arguments are given", func(t *testing.T) {
		s, out := newTestLoom(t, "  dragons in the garden \n")
		prompt, err := s.ReadIdea(nil)
		require.NoError(t, err)
		assert.Equal(t, "dragons in the garden", prompt.Text)
		assert.Contains(t, out.String(), "What should the story be about?")
	})

	t.Run("Should require an idea", func(t *testing.T) {
		s, _ := newTestLoom(t, "\n")
		_, err := s.ReadIdea(nil)
		require.ErrorIs(t, err, story.ErrEmptyPrompt)
	})
}

func TestTell(t *testing.T) {
	t.Run("Should reveal and read the story", func(t *testing.T) {
		engine := tts.NewMockEngine()
		s, out := newTestLoom(t, "", WithEngine(engine))

		err := s.Tell(context.Background(), story.Prompt{Text: "a cat in a spaceship"}, true)
		require.NoError(t, err)

		text := out.String()
		assert.Contains(t, text, "Generating...")
		assert.Contains(t, text, "# Captain Whiskers' Space Adventure")
		assert.Contains(t, text, "the whole galaxy purred with joy.\n")
		assert.Contains(t, text, "Story finished!")

		spoken := engine.Spoken()
		require.Len(t, spoken, 1)
		assert.True(t, strings.HasPrefix(spoken[0], "Captain Whiskers' Space Adventure\n\n"))
		assert.NotContains(t, spoken[0], "**")
	})

	t.Run("Should reject a blank prompt", func(t *testing.T) {
		s, _ := newTestLoom(t, "")
		err := s.Tell(context.Background(), story.Prompt{Text: "   "}, true)
		require.ErrorIs(t, err, story.ErrEmptyPrompt)
	})

	t.Run("Should tell without a voice", func(t *testing.T) {
		s, out := newTestLoom(t, "")
		s.newEngine = func(context.Context) (tts.Engine, error) {
			return nil, tts.ErrNotAvailable
		}

		err := s.Tell(context.Background(), story.Prompt{Text: "three pigs"}, true)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Reading without voice")
		assert.Contains(t, out.String(), "# The Three Little Pigs")
		assert.NotContains(t, out.String(), "Story finished!")
	})

	t.Run("Should stop when the context ends", func(t *testing.T) {
		engine := &tts.MockEngine{Delay: time.Hour}
		s, _ := newTestLoom(t, "", WithEngine(engine))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		err := s.Tell(ctx, story.Prompt{Text: "garden"}, true)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Should report generator failures", func(t *testing.T) {
		s, _ := newTestLoom(t, "", WithGenerator(failingGenerator{}))
		err := s.Tell(context.Background(), story.Prompt{Text: "anything"}, true)
		require.ErrorContains(t, err, "failed to generate story")
	})
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, story.Prompt) (*story.Item, error) {
	return nil, errors.New("backend down")
}

func TestRunView(t *testing.T) {
	t.Run("Should not start a story that arrives after quitting", func(t *testing.T) {
		engine := tts.NewMockEngine()
		s, _ := newTestLoom(t, "q", WithEngine(engine))

		loaded := make(chan struct{})
		load := func(ctx context.Context) (*story.Item, error) {
			<-ctx.Done()
			close(loaded)
			return &story.Item{Title: "Late", Content: "Too late"}, nil
		}

		result := make(chan error, 1)
		go func() { result <- s.runView(context.Background(), engine, nil, load) }()

		select {
		case err := <-result:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("view did not quit")
		}
		select {
		case <-loaded:
		default:
			t.Fatal("view returned before the loader finished")
		}
		assert.Empty(t, engine.Spoken())
	})
}

func TestReveal(t *testing.T) {
	s, out := newTestLoom(t, "")
	require.NoError(t, s.Reveal(context.Background(), "Hello *world*", true))
	assert.Equal(t, "Hello *world*\n", out.String())
}

func TestRender(t *testing.T) {
	s, _ := newTestLoom(t, "")

	t.Run("Should render a substring frame", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Render(&buf, "**bold** text", 1, markdown.StrategySubstring, "story"))
		assert.Equal(t, "<div class=\"story\">\n<p><strong>bold</strong></p>\n</div>\n", buf.String())
	})

	t.Run("Should clamp the cursor", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Render(&buf, "a b", -1, markdown.StrategyFlags, ""))
		assert.Equal(t, 3, strings.Count(buf.String(), "opacity:1;"))
	})

	t.Run("Should reject an unknown strategy", func(t *testing.T) {
		require.ErrorIs(t, s.Render(&bytes.Buffer{}, "x", 0, "canvas", ""), markdown.ErrUnknownStrategy)
	})
}

func TestSpeechCommands(t *testing.T) {
	t.Run("Should list engine voices", func(t *testing.T) {
		s, out := newTestLoom(t, "", WithEngine(tts.NewMockEngine()))
		require.NoError(t, s.ListVoices(context.Background()))
		assert.Contains(t, out.String(), "mock-voice")
		assert.Contains(t, out.String(), "1 voices")
	})

	t.Run("Should mark the configured engine", func(t *testing.T) {
		s, out := newTestLoom(t, "")
		s.ListEngines()
		assert.Contains(t, out.String(), "* mock")
	})

	t.Run("Should refuse cache commands without a cache", func(t *testing.T) {
		s, _ := newTestLoom(t, "", WithEngine(tts.NewMockEngine()))
		require.ErrorIs(t, s.ShowCacheStatus(context.Background()), ErrNoSpeechCache)
		require.ErrorIs(t, s.ClearSpeechCache(context.Background()), ErrNoSpeechCache)
	})
}
