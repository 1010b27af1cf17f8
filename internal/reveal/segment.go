// Package reveal discloses source text one unit at a time on a fixed cadence.
package reveal

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Grain selects the size of a reveal unit.
type Grain string

const (
	GrainChar      Grain = "char"
	GrainGrapheme  Grain = "grapheme"
	GrainWord      Grain = "word"
	GrainWordLoose Grain = "word-loose"
)

func (g Grain) String() string {
	return string(g)
}

// ErrUnknownGrain is returned by NewSegmenter for an unsupported grain.
var ErrUnknownGrain = errors.New("unknown reveal grain")

// Units is an ordered sequence of reveal units.
type Units []string

func (u Units) Len() int {
	return len(u)
}

// Join concatenates every unit.
func (u Units) Join() string {
	return strings.Join(u, "")
}

// Prefix concatenates the first n units. n is clamped to [0, Len].
func (u Units) Prefix(n int) string {
	return strings.Join(u[:clamp(n, len(u))], "")
}

// Offsets returns the byte offset of each unit within Join, followed by the
// total length. The result always has Len()+1 entries.
func (u Units) Offsets() []int {
	offsets := make([]int, len(u)+1)
	pos := 0
	for i, unit := range u {
		offsets[i] = pos
		pos += len(unit)
	}
	offsets[len(u)] = pos
	return offsets
}

// Segmenter splits source text into reveal units.
type Segmenter interface {
	Segment(text string) Units
	// Lossless reports whether Segment(s).Join() == s for every s.
	Lossless() bool
	Grain() Grain
}

// NewSegmenter returns the segmenter for the given grain.
func NewSegmenter(g Grain) (Segmenter, error) {
	switch g {
	case GrainChar:
		return charSegmenter{}, nil
	case GrainGrapheme:
		return graphemeSegmenter{}, nil
	case GrainWord:
		return wordSegmenter{}, nil
	case GrainWordLoose:
		return looseWordSegmenter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGrain, string(g))
	}
}

// Grains lists every supported grain.
func Grains() []Grain {
	return []Grain{GrainChar, GrainGrapheme, GrainWord, GrainWordLoose}
}

type charSegmenter struct{}

func (charSegmenter) Segment(text string) Units {
	units := make(Units, 0, utf8.RuneCountInString(text))
	for i := 0; i < len(text); {
		// invalid bytes decode with size 1 and are kept as-is
		_, size := utf8.DecodeRuneInString(text[i:])
		units = append(units, text[i:i+size])
		i += size
	}
	return units
}

func (charSegmenter) Lossless() bool { return true }
func (charSegmenter) Grain() Grain   { return GrainChar }

type graphemeSegmenter struct{}

func (graphemeSegmenter) Segment(text string) Units {
	units := Units{}
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		units = append(units, g.Str())
	}
	return units
}

func (graphemeSegmenter) Lossless() bool { return true }
func (graphemeSegmenter) Grain() Grain   { return GrainGrapheme }

var whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)

// wordSegmenter keeps whitespace runs as their own units.
type wordSegmenter struct{}

func (wordSegmenter) Segment(text string) Units {
	units := Units{}
	last := 0
	for _, loc := range whitespaceRun.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			units = append(units, text[last:loc[0]])
		}
		units = append(units, text[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		units = append(units, text[last:])
	}
	return units
}

func (wordSegmenter) Lossless() bool { return true }
func (wordSegmenter) Grain() Grain   { return GrainWord }

// looseWordSegmenter splits on single spaces and drops the empty tokens a
// run of spaces leaves behind. A single " " unit is put back between tokens,
// so space runs collapse and leading or trailing spaces are lost.
type looseWordSegmenter struct{}

func (looseWordSegmenter) Segment(text string) Units {
	units := Units{}
	for _, token := range strings.Split(text, " ") {
		if token == "" {
			continue
		}
		if len(units) > 0 {
			units = append(units, " ")
		}
		units = append(units, token)
	}
	return units
}

func (looseWordSegmenter) Lossless() bool { return false }
func (looseWordSegmenter) Grain() Grain   { return GrainWordLoose }

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
