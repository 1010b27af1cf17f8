package story

import (
	"errors"
	"strings"
)

// ErrEmptyPrompt is returned when a story idea is blank.
var ErrEmptyPrompt = errors.New("story idea is empty")

// Prompt is the story idea typed or dictated by the listener.
type Prompt struct {
	Text string `json:"prompt"`
}

// Validate trims the prompt and rejects blank ideas.
func (p Prompt) Validate() (Prompt, error) {
	p.Text = strings.TrimSpace(p.Text)
	if p.Text == "" {
		return p, ErrEmptyPrompt
	}
	return p, nil
}

// Item is a generated or catalogued story.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Content     string `json:"content"`
	AgeGroup    string `json:"age_group"`
	Genre       string `json:"genre"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}
