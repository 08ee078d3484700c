// Package pdftest writes small single-font PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// GlyphWidth is the advance of every glyph, in thousandths of the font size.
const GlyphWidth = 600

// Run is a piece of text drawn at a page position in points.
type Run struct {
	X, Y float64
	Size float64
	Text string
}

// Document returns a PDF with one page per entry. Text is written with a
// WinAnsi-encoded Helvetica, so only Latin-1 characters survive.
func Document(pages ...[]Run) []byte {
	w := &writer{}
	w.buf.WriteString("%PDF-1.4\n")

	n := len(pages)
	pageID := func(i int) int { return 4 + 2*i }

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageID(i))
	}

	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	w.object(3, font())

	for i, runs := range pages {
		id := pageID(i)
		w.object(id, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			id+1))
		content := contentStream(runs)
		w.object(id+1, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	return w.finish()
}

func font() string {
	widths := make([]string, 0, 224)
	for c := 32; c <= 255; c++ {
		widths = append(widths, fmt.Sprint(GlyphWidth))
	}
	return fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 255 /Widths [%s] >>",
		strings.Join(widths, " "))
}

func contentStream(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		size := r.Size
		if size == 0 {
			size = 10
		}
		fmt.Fprintf(&b, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", size, r.X, r.Y, escape(r.Text))
	}
	return b.String()
}

// escape encodes s as the body of a PDF literal string.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r >= 32 && r < 127:
			b.WriteRune(r)
		case r >= 0xA0 && r <= 0xFF:
			fmt.Fprintf(&b, "\\%03o", r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
	maxID   int
}

func (w *writer) object(id int, body string) {
	if w.offsets == nil {
		w.offsets = make(map[int]int)
	}
	w.offsets[id] = w.buf.Len()
	if id > w.maxID {
		w.maxID = id
	}
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *writer) finish() []byte {
	xref := w.buf.Len()
	size := w.maxID + 1
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", size)
	w.buf.WriteString("0000000000 65535 f \n")
	for id := 1; id < size; id++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[id])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
	return w.buf.Bytes()
}
