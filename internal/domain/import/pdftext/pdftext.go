// Package pdftext pulls positioned text out of PDF documents.
package pdftext

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/errs"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/layout"
)

// baselineNudge snaps glyphs whose baselines differ by less than this onto
// the same line.
const baselineNudge = 1.0

// Read decodes every page of a PDF into word fragments. Blank pages yield a
// Page with no fragments so page numbers stay aligned.
func Read(data []byte) (pages []layout.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: pdf decoder: %v", errs.ErrMalformedInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}

	total := reader.NumPage()
	pages = make([]layout.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := layout.Page{Number: i}
		p := reader.Page(i)
		if !p.V.IsNull() {
			page.Fragments = words(p.Content().Text)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// words merges single glyphs into word fragments. Glyphs on one baseline
// join while the next one starts within a fraction of the font size from
// the end of the current word.
func words(chars []pdf.Text) []layout.Fragment {
	if len(chars) == 0 {
		return nil
	}
	chars = append([]pdf.Text(nil), chars...)

	sortVertical(chars)
	old := -100000.0
	for i, c := range chars {
		if c.Y != old && math.Abs(old-c.Y) < baselineNudge {
			chars[i].Y = old
		} else {
			old = c.Y
		}
	}
	sortVertical(chars)

	var out []layout.Fragment
	for i := 0; i < len(chars); {
		j := i + 1
		for j < len(chars) && chars[j].Y == chars[i].Y {
			j++
		}

		for k := i; k < j; {
			ck := chars[k]
			s := ck.S
			end := ck.X + ck.W
			charSpace := ck.FontSize / 6
			wordSpace := ck.FontSize * 2 / 3

			l := k + 1
			for ; l < j; l++ {
				cl := chars[l]
				if cl.X <= end+charSpace {
					s += cl.S
				} else if cl.X <= end+wordSpace {
					s += " " + cl.S
				} else {
					break
				}
				end = cl.X + cl.W
			}

			out = append(out, layout.Fragment{Text: s, X: ck.X, Y: ck.Y, W: end - ck.X})
			k = l
		}
		i = j
	}
	return out
}

// sortVertical orders glyphs top to bottom, then left to right.
func sortVertical(chars []pdf.Text) {
	sort.SliceStable(chars, func(i, j int) bool {
		if chars[i].Y != chars[j].Y {
			return chars[i].Y > chars[j].Y
		}
		return chars[i].X < chars[j].X
	})
}
