// Package markdown renders the revealed part of a story as HTML.
//
// Two strategies are available. The substring strategy hands only the
// revealed prefix to the markdown renderer, so an open span such as an
// unterminated "**bold" shows its markers until the closing ones arrive.
// The flags strategy parses the whole document on every frame and wraps each
// unit in a span whose style depends on whether the unit is revealed, which
// keeps the document structure stable while the text fades in.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"storyloom/internal/reveal"
)

// Strategy selects how partial text reaches the renderer.
type Strategy string

const (
	StrategySubstring Strategy = "substring"
	StrategyFlags     Strategy = "flags"
)

func (s Strategy) String() string {
	return string(s)
}

var ErrUnknownStrategy = errors.New("unknown presenter strategy")

// Presenter renders one frame of a reveal session.
type Presenter interface {
	Render(w io.Writer, units reveal.Units, cursor int) error
}

// PresenterOption configures a presenter.
type PresenterOption func(*config)

type config struct {
	className string
}

// WithClassName sets the class attribute of the container element.
func WithClassName(name string) PresenterOption {
	return func(c *config) {
		c.className = name
	}
}

// NewPresenter returns the presenter for strategy.
func NewPresenter(strategy Strategy, opts ...PresenterOption) (Presenter, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	switch strategy {
	case StrategySubstring:
		return &substringPresenter{config: cfg, md: goldmark.New()}, nil
	case StrategyFlags:
		return &flagsPresenter{config: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(strategy))
	}
}

// RenderString is a convenience wrapper returning the rendered frame.
func RenderString(p Presenter, units reveal.Units, cursor int) (string, error) {
	var buf bytes.Buffer
	if err := p.Render(&buf, units, cursor); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type substringPresenter struct {
	config
	md goldmark.Markdown
}

func (p *substringPresenter) Render(w io.Writer, units reveal.Units, cursor int) error {
	var body bytes.Buffer
	if err := p.md.Convert([]byte(units.Prefix(cursor)), &body); err != nil {
		return fmt.Errorf("render revealed prefix: %w", err)
	}
	return p.writeContainer(w, body.Bytes())
}

type flagsPresenter struct {
	config
}

func (p *flagsPresenter) Render(w io.Writer, units reveal.Units, cursor int) error {
	md := goldmark.New(
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(
				util.Prioritized(newUnitRenderer(units.Offsets(), cursor), 100),
			),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(units.Join()), &body); err != nil {
		return fmt.Errorf("render flagged units: %w", err)
	}
	return p.writeContainer(w, body.Bytes())
}

func (c config) writeContainer(w io.Writer, body []byte) error {
	open := "<div>\n"
	if c.className != "" {
		open = fmt.Sprintf("<div class=\"%s\">\n", html.EscapeString(c.className))
	}
	if _, err := io.WriteString(w, open); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</div>\n")
	return err
}
