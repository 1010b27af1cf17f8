package markdown

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"storyloom/internal/reveal"
)

// maxEntityLen bounds the scan for a character reference such as "&amp;".
const maxEntityLen = 32

// unitRenderer replaces goldmark's rendering of every node that writes source
// text, so each byte range is wrapped with the style of the unit it came from.
type unitRenderer struct {
	html.Config
	offsets []int
	cursor  int
}

func newUnitRenderer(offsets []int, cursor int) *unitRenderer {
	return &unitRenderer{
		Config:  html.NewConfig(),
		offsets: offsets,
		cursor:  cursor,
	}
}

func (r *unitRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindText, r.renderText)
	reg.Register(ast.KindCodeSpan, r.renderCodeSpan)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
	reg.Register(ast.KindImage, r.renderImage)
}

func (r *unitRenderer) renderText(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Text)
	write := r.Writer.Write
	if n.IsRaw() {
		write = r.Writer.RawWrite
	}
	r.writeUnits(w, source, n.Segment.Start, n.Segment.Stop, write, true)

	switch {
	case n.HardLineBreak():
		_, _ = w.WriteString("<br>\n")
	case n.SoftLineBreak():
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *unitRenderer) renderCodeSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</code>")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<code>")
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		text, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		seg := text.Segment
		stop := seg.Stop
		// a trailing line ending inside a code span renders as one space
		trailingNewline := stop > seg.Start && source[stop-1] == '\n'
		if trailingNewline {
			stop--
		}
		r.writeUnits(w, source, seg.Start, stop, r.Writer.RawWrite, false)
		if trailingNewline {
			r.writeWrapped(w, r.unitAt(stop), func() { _ = w.WriteByte(' ') })
		}
	}
	return ast.WalkSkipChildren, nil
}

func (r *unitRenderer) renderCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<pre><code>")
	r.writeLines(w, source, node.Lines())
	return ast.WalkContinue, nil
}

func (r *unitRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	_, _ = w.WriteString("<pre><code")
	if language := n.Language(source); language != nil {
		_, _ = w.WriteString(" class=\"language-")
		r.Writer.Write(w, language)
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	r.writeLines(w, source, n.Lines())
	return ast.WalkContinue, nil
}

// writeLines writes the lines of a code block, including the indentation
// goldmark keeps as padding and the newline it forces on the last line.
func (r *unitRenderer) writeLines(w util.BufWriter, source []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		if line.Padding > 0 {
			pad := bytes.Repeat([]byte{' '}, line.Padding)
			r.writeWrapped(w, r.unitAt(line.Start), func() { r.Writer.RawWrite(w, pad) })
		}
		r.writeUnits(w, source, line.Start, line.Stop, r.Writer.RawWrite, false)
		if line.ForceNewline && (line.Stop == line.Start || source[line.Stop-1] != '\n') {
			r.writeWrapped(w, r.unitAt(line.Stop-1), func() { _ = w.WriteByte('\n') })
		}
	}
}

func (r *unitRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.AutoLink)
	url := n.URL(source)
	label := n.Label(source)

	_, _ = w.WriteString(`<a href="`)
	if n.AutoLinkType == ast.AutoLinkEmail && !bytes.HasPrefix(bytes.ToLower(url), []byte("mailto:")) {
		_, _ = w.WriteString("mailto:")
	}
	_, _ = w.Write(util.EscapeHTML(util.URLEscape(url, false)))
	if n.Attributes() != nil {
		_ = w.WriteByte('"')
		html.RenderAttributes(w, n, html.LinkAttributeFilter)
		_ = w.WriteByte('>')
	} else {
		_, _ = w.WriteString(`">`)
	}

	escape := func(w util.BufWriter, b []byte) { _, _ = w.Write(util.EscapeHTML(b)) }
	if start, ok := offsetIn(source, label); ok {
		r.writeUnits(w, source, start, start+len(label), escape, false)
	} else {
		r.writeWrapped(w, r.lastUnit(), func() { escape(w, label) })
	}
	_, _ = w.WriteString(`</a>`)
	return ast.WalkContinue, nil
}

// renderImage wraps the whole element, since alt text cannot hold spans.
// The image shows once the last unit of its alt text is revealed.
func (r *unitRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Image)
	r.writeWrapped(w, r.imageUnit(source, n), func() {
		_, _ = w.WriteString(`<img src="`)
		if r.Unsafe || !html.IsDangerousURL(n.Destination) {
			_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
		}
		_, _ = w.WriteString(`" alt="`)
		r.writeAlt(w, source, n)
		_ = w.WriteByte('"')
		if n.Title != nil {
			_, _ = w.WriteString(` title="`)
			r.Writer.Write(w, n.Title)
			_ = w.WriteByte('"')
		}
		if n.Attributes() != nil {
			html.RenderAttributes(w, n, html.ImageAttributeFilter)
		}
		if r.XHTML {
			_, _ = w.WriteString(" />")
		} else {
			_ = w.WriteByte('>')
		}
	})
	return ast.WalkSkipChildren, nil
}

func (r *unitRenderer) writeAlt(w util.BufWriter, source []byte, node ast.Node) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.String:
			r.Writer.Write(w, c.Value)
		case *ast.Text:
			r.Writer.Write(w, c.Segment.Value(source))
		default:
			r.writeAlt(w, source, c)
		}
	}
}

func (r *unitRenderer) imageUnit(source []byte, n *ast.Image) int {
	last := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering && t.Segment.Stop > t.Segment.Start {
			last = t.Segment.Stop - 1
		}
		return ast.WalkContinue, nil
	})
	if last >= 0 {
		return r.unitAt(last)
	}
	if start, ok := offsetIn(source, n.Destination); ok {
		return r.unitAt(start)
	}
	return r.lastUnit()
}

func (r *unitRenderer) lastUnit() int {
	if len(r.offsets) < 2 {
		return 0
	}
	return len(r.offsets) - 2
}

// offsetIn returns where sub starts in source when sub is a subslice of it.
func offsetIn(source, sub []byte) (int, bool) {
	if len(sub) == 0 {
		return 0, false
	}
	start := cap(source) - cap(sub)
	if start < 0 || start+len(sub) > len(source) || &source[start] != &sub[0] {
		return 0, false
	}
	return start, true
}

// writeUnits writes source[start:stop] split at unit boundaries. Backslash
// escapes and character references stay whole when atomic is set.
func (r *unitRenderer) writeUnits(w util.BufWriter, source []byte, start, stop int, write func(util.BufWriter, []byte), atomic bool) {
	for pos := start; pos < stop; {
		idx := r.unitAt(pos)
		end := stop
		if idx+1 < len(r.offsets) && r.offsets[idx+1] < end {
			end = r.offsets[idx+1]
		}
		if atomic {
			end = extendAtom(source, pos, end, stop)
		}

		piece := source[pos:end]
		r.writeWrapped(w, idx, func() { write(w, piece) })
		pos = end
	}
}

func (r *unitRenderer) writeWrapped(w util.BufWriter, idx int, body func()) {
	style := reveal.Visibility(idx, r.cursor)
	_, _ = fmt.Fprintf(w, "<span data-unit=\"%d\" style=\"%s\">", idx, style.CSS())
	body()
	_, _ = w.WriteString("</span>")
}

// unitAt returns the index of the unit holding byte offset pos.
func (r *unitRenderer) unitAt(pos int) int {
	units := len(r.offsets) - 1
	if units <= 0 {
		return 0
	}
	i := sort.Search(units, func(i int) bool {
		return r.offsets[i+1] > pos
	})
	if i >= units {
		return units - 1
	}
	return i
}

// extendAtom moves end past a backslash escape or character reference that
// starts before end but finishes after it, so neither is split in two.
func extendAtom(source []byte, pos, end, stop int) int {
	for i := pos; i < end; i++ {
		switch source[i] {
		case '\\':
			if i+1 < stop && util.IsPunct(source[i+1]) {
				if i+1 >= end {
					return i + 2
				}
				i++
			}
		case '&':
			if j := entityEnd(source, i, stop); j > 0 {
				if j > end {
					return j
				}
				i = j - 1
			}
		}
	}
	return end
}

// entityEnd returns the offset just past the ';' of a character reference
// starting at source[at], or -1.
func entityEnd(source []byte, at, stop int) int {
	limit := at + maxEntityLen
	if limit > stop {
		limit = stop
	}
	for j := at + 1; j < limit; j++ {
		c := source[j]
		switch {
		case c == ';':
			if j == at+1 {
				return -1
			}
			return j + 1
		case c == '#' && j == at+1:
		case util.IsAlphaNumeric(c):
		default:
			return -1
		}
	}
	return -1
}
