package generator

import (
	"context"
	"fmt"
	"time"

	"storyloom/internal/domain/story"
)

// StoryGenerator turns a story idea into story text.
type StoryGenerator interface {
	Generate(ctx context.Context, prompt story.Prompt) (*story.Item, error)
}

type Type string

const (
	TypeHTTP    Type = "http"
	TypeLibrary Type = "library"
)

type Config struct {
	Type    string
	URL     string
	Timeout time.Duration
}

// New builds the generator named by cfg.Type.
func New(cfg Config) (StoryGenerator, error) {
	switch Type(cfg.Type) {
	case TypeHTTP:
		return NewHTTPGenerator(cfg.URL, cfg.Timeout), nil
	case TypeLibrary, "":
		return NewLibraryGenerator(nil), nil
	default:
		return nil, fmt.Errorf("unsupported story generator type: %s", cfg.Type)
	}
}
