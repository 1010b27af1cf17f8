package reveal

import "fmt"

// Hidden units start blurred and pushed down, then transition into place.
const (
	hiddenBlurPx   = 4
	hiddenOffsetPx = 8
	transition     = "opacity 0.3s ease-out, filter 0.3s ease-out, transform 0.3s ease-out"
)

// Style is the visual state of one unit.
type Style struct {
	Opacity  float64
	BlurPx   float64
	OffsetPx float64
}

// Visibility returns the style of the unit at index for the given cursor.
func Visibility(index, cursor int) Style {
	if index < cursor {
		return Style{Opacity: 1}
	}
	return Style{BlurPx: hiddenBlurPx, OffsetPx: hiddenOffsetPx}
}

func (s Style) Visible() bool {
	return s.Opacity > 0
}

// CSS renders s as an inline style declaration.
func (s Style) CSS() string {
	return fmt.Sprintf("opacity:%g;filter:blur(%gpx);transform:translateY(%gpx);transition:%s",
		s.Opacity, s.BlurPx, s.OffsetPx, transition)
}
