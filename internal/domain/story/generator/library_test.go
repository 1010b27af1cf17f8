package generator

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloom/internal/domain/story"
)

func TestLibraryGenerator(t *testing.T) {
	g := NewLibraryGenerator(rand.New(rand.NewPCG(1, 2)))

	t.Run("Should match prompt words", func(t *testing.T) {
		item, err := g.Generate(context.Background(), story.Prompt{Text: "a cat in a spaceship"})
		require.NoError(t, err)
		assert.Equal(t, "space-cat", item.ID)
		assert.True(t, strings.HasPrefix(item.Content, "# Captain Whiskers' Space Adventure\n\n"))
	})

	t.Run("Should fall back to a random tale", func(t *testing.T) {
		item, err := g.Generate(context.Background(), story.Prompt{Text: "zzz qqq"})
		require.NoError(t, err)
		assert.NotEmpty(t, item.Content)
	})

	t.Run("Should not modify the catalogue", func(t *testing.T) {
		_, err := g.Generate(context.Background(), story.Prompt{Text: "porridge bears"})
		require.NoError(t, err)
		for _, s := range g.Stories() {
			assert.False(t, strings.HasPrefix(s.Content, "# "))
		}
	})

	t.Run("Should reject blank prompts", func(t *testing.T) {
		_, err := g.Generate(context.Background(), story.Prompt{})
		require.ErrorIs(t, err, story.ErrEmptyPrompt)
	})

	t.Run("Should honour cancelled contexts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.Generate(ctx, story.Prompt{Text: "pigs"})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Should list collections", func(t *testing.T) {
		assert.Len(t, g.Collections(), 2)
		assert.Len(t, g.Stories(), 4)
	})
}
