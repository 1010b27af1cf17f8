package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind classifies a layout block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
	BlockCode
	BlockQuote
)

// Span is an inline run of source bytes with its emphasis flags.
type Span struct {
	Start, Stop int
	Strong      bool
	Emphasis    bool
	Code        bool
	// Break is the separator that follows the span: 0, ' ' or '\n'.
	Break byte
}

// Block is one block-level element in document order.
type Block struct {
	Kind  BlockKind
	Level int
	Spans []Span
}

// Layout parses source and flattens it into blocks of styled spans. Span
// offsets index into source, so callers can clip spans to a revealed prefix.
func Layout(source []byte) []Block {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var (
		blocks []Block
		cur    *Block
	)
	open := func(kind BlockKind, level int) {
		blocks = append(blocks, Block{Kind: kind, Level: level})
		cur = &blocks[len(blocks)-1]
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			open(BlockHeading, node.Level)
		case *ast.Paragraph, *ast.TextBlock:
			open(blockKindFor(n), 0)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			open(BlockCode, 0)
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				cur.Spans = append(cur.Spans, Span{Start: seg.Start, Stop: seg.Stop, Code: true})
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if cur == nil {
				open(BlockParagraph, 0)
			}
			span := Span{Start: node.Segment.Start, Stop: node.Segment.Stop}
			markInline(&span, n)
			switch {
			case node.HardLineBreak():
				span.Break = '\n'
			case node.SoftLineBreak():
				span.Break = ' '
			}
			cur.Spans = append(cur.Spans, span)
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

// PlainText strips markdown syntax from source, one block per paragraph.
func PlainText(source []byte) string {
	var parts []string
	for _, b := range Layout(source) {
		var sb strings.Builder
		for _, s := range b.Spans {
			sb.Write(source[s.Start:s.Stop])
			if s.Break != 0 {
				sb.WriteByte(s.Break)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func blockKindFor(n ast.Node) BlockKind {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case ast.KindListItem:
			return BlockListItem
		case ast.KindBlockquote:
			return BlockQuote
		}
	}
	return BlockParagraph
}

func markInline(span *Span, n ast.Node) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch node := p.(type) {
		case *ast.Emphasis:
			if node.Level >= 2 {
				span.Strong = true
			} else {
				span.Emphasis = true
			}
		case *ast.CodeSpan:
			span.Code = true
		}
	}
}
