package view

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"storyloom/internal/reveal"
	"storyloom/internal/reveal/markdown"
)

// Text renders the visible part of a frame as styled terminal text. Markdown
// markers are never shown; a span appears as soon as its first byte is
// revealed.
func Text(frame reveal.Frame, width int, styles Styles) string {
	source := frame.Units.Join()
	return renderBlocks(source, markdown.Layout([]byte(source)), len(frame.Visible()), width, styles)
}

func renderBlocks(source string, blocks []markdown.Block, visible, width int, styles Styles) string {
	var parts []string
	for _, b := range blocks {
		if b.Kind == markdown.BlockCode {
			if code := renderCode(source, b, visible, styles); code != "" {
				parts = append(parts, code)
			}
			continue
		}

		body := renderSpans(source, b, visible, styles)
		if body == "" {
			continue
		}
		switch b.Kind {
		case markdown.BlockHeading:
			body = styles.Heading.Render(strings.Repeat("#", b.Level) + " " + body)
		case markdown.BlockListItem:
			body = "• " + body
		}
		if width > 0 {
			body = wordwrap.String(body, width)
		}
		if b.Kind == markdown.BlockQuote {
			lines := strings.Split(body, "\n")
			for i, line := range lines {
				lines[i] = styles.Quote.Render("│ " + line)
			}
			body = strings.Join(lines, "\n")
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n")
}

func renderSpans(source string, b markdown.Block, visible int, styles Styles) string {
	var sb strings.Builder
	for _, s := range b.Spans {
		if s.Start >= visible {
			break
		}
		stop := min(s.Stop, visible)
		sb.WriteString(styleSpan(source[s.Start:stop], s, styles))
		if s.Break != 0 && s.Stop < visible {
			sb.WriteByte(s.Break)
		}
	}
	return sb.String()
}

// renderCode keeps code lines unwrapped and styles them one by one.
func renderCode(source string, b markdown.Block, visible int, styles Styles) string {
	var lines []string
	for _, s := range b.Spans {
		if s.Start >= visible {
			break
		}
		line := strings.TrimRight(source[s.Start:min(s.Stop, visible)], "\r\n")
		lines = append(lines, styles.Code.Render(line))
	}
	return strings.Join(lines, "\n")
}

func styleSpan(text string, s markdown.Span, styles Styles) string {
	if text == "" {
		return text
	}
	switch {
	case s.Code:
		return styles.Code.Render(text)
	case s.Strong && s.Emphasis:
		return styles.Strong.Inherit(styles.Emphasis).Render(text)
	case s.Strong:
		return styles.Strong.Render(text)
	case s.Emphasis:
		return styles.Emphasis.Render(text)
	}
	return text
}
