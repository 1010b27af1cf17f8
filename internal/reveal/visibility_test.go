package reveal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibility(t *testing.T) {
	t.Run("Should show units before the cursor", func(t *testing.T) {
		s := Visibility(0, 1)
		assert.True(t, s.Visible())
		assert.Equal(t, Style{Opacity: 1}, s)
	})

	t.Run("Should hide the unit at and after the cursor", func(t *testing.T) {
		for _, idx := range []int{1, 2, 10} {
			s := Visibility(idx, 1)
			assert.False(t, s.Visible())
			assert.Equal(t, float64(hiddenBlurPx), s.BlurPx)
			assert.Equal(t, float64(hiddenOffsetPx), s.OffsetPx)
		}
	})

	t.Run("Should render inline css", func(t *testing.T) {
		assert.Contains(t, Visibility(0, 1).CSS(), "opacity:1;filter:blur(0px);transform:translateY(0px)")
		assert.Contains(t, Visibility(3, 1).CSS(), "opacity:0;filter:blur(4px);transform:translateY(8px)")
	})
}
