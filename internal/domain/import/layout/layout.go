// Package layout rebuilds table rows from positioned PDF text fragments and
// reads ticker recommendations out of them.
package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/errs"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/vocabulary"
)

// TableMarker identifies the recommendation page when no page is requested.
const TableMarker = "Painel de Recomendação da Carteira"

const (
	// rowTolerance is the maximum baseline distance inside one row.
	rowTolerance = 2.0
	// cellGap is the horizontal distance under which fragments share a cell.
	cellGap = 12.0
	// actionColumn is the cell that carries the recommendation, when present.
	actionColumn = 3
)

// Fragment is a run of text at a page position. Y grows upwards.
type Fragment struct {
	Text string
	X    float64
	Y    float64
	W    float64
}

func (f Fragment) end() float64 { return f.X + f.W }

// Page is the text content of one 1-based PDF page.
type Page struct {
	Number    int
	Fragments []Fragment
}

// Line is a reconstructed table row.
type Line struct {
	Cells []string
}

// Text joins the cells with single spaces.
func (l Line) Text() string {
	return strings.Join(l.Cells, " ")
}

// Options controls Extract.
type Options struct {
	// Page is the 1-based page to read; zero means search for TableMarker.
	Page int
	// EqualTargets spreads 100% evenly across the tickers found.
	EqualTargets bool
}

// Extract selects the table page, rebuilds its rows and returns one row per
// distinct ticker in reading order.
func Extract(pages []Page, opts Options) ([]common.ParsedRow, error) {
	page, err := SelectPage(pages, opts.Page)
	if err != nil {
		return nil, err
	}

	rows := Tickers(Reconstruct(page))
	if len(rows) == 0 {
		return nil, errs.ErrNoTickers
	}

	var pct float64
	if opts.EqualTargets {
		pct = normalizer.RoundPercentage(100 / float64(len(rows)))
	}
	for i := range rows {
		rows[i].Percentage = pct
	}
	return rows, nil
}

// SelectPage returns the requested page when it exists, otherwise the first
// page mentioning TableMarker.
func SelectPage(pages []Page, number int) (Page, error) {
	if number >= 1 && number <= len(pages) {
		return pages[number-1], nil
	}

	marker := vocabulary.Fold(TableMarker)
	for _, p := range pages {
		if strings.Contains(vocabulary.Fold(pageText(p)), marker) {
			return p, nil
		}
	}

	if number > 0 {
		return Page{}, fmt.Errorf("%w (requested page %d of %d)", errs.ErrPageNotFound, number, len(pages))
	}
	return Page{}, errs.ErrPageNotFound
}

func pageText(p Page) string {
	lines := Reconstruct(p)
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text()
	}
	return strings.Join(parts, " ")
}

// Reconstruct groups fragments into rows top to bottom and, within a row,
// into cells left to right.
func Reconstruct(p Page) []Line {
	frags := make([]Fragment, 0, len(p.Fragments))
	for _, f := range p.Fragments {
		if strings.TrimSpace(f.Text) != "" {
			frags = append(frags, f)
		}
	}
	if len(frags) == 0 {
		return nil
	}

	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Y != frags[j].Y {
			return frags[i].Y > frags[j].Y
		}
		return frags[i].X < frags[j].X
	})

	var lines []Line
	start := 0
	for i := 1; i <= len(frags); i++ {
		if i < len(frags) && frags[start].Y-frags[i].Y <= rowTolerance {
			continue
		}
		lines = append(lines, Line{Cells: cells(frags[start:i])})
		start = i
	}
	return lines
}

func cells(row []Fragment) []string {
	sorted := make([]Fragment, len(row))
	copy(sorted, row)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var out []string
	current := strings.TrimSpace(sorted[0].Text)
	end := sorted[0].end()
	for _, f := range sorted[1:] {
		text := strings.TrimSpace(f.Text)
		if f.X-end < cellGap {
			current += " " + text
		} else {
			out = append(out, current)
			current = text
		}
		if e := f.end(); e > end {
			end = e
		}
	}
	return append(out, current)
}

// Tickers reads one row per line whose first cell holds a ticker. When no
// line starts with a ticker, the first ticker anywhere on each line is used.
// Later duplicates of a ticker are ignored.
func Tickers(lines []Line) []common.ParsedRow {
	seen := make(map[string]struct{})
	var rows []common.ParsedRow
	add := func(ticker string, action common.Action) {
		if _, ok := seen[ticker]; ok {
			return
		}
		seen[ticker] = struct{}{}
		rows = append(rows, common.ParsedRow{Asset: ticker, Action: action})
	}

	for _, l := range lines {
		if len(l.Cells) == 0 {
			continue
		}
		ticker, ok := vocabulary.FindPDFTicker(l.Cells[0])
		if !ok {
			continue
		}
		add(ticker, lineAction(l))
	}
	if len(rows) > 0 {
		return rows
	}

	for _, l := range lines {
		if ticker, ok := vocabulary.FindPDFTicker(l.Text()); ok {
			action, _ := vocabulary.DetectAction(l.Text())
			add(ticker, action)
		}
	}
	return rows
}

func lineAction(l Line) common.Action {
	if len(l.Cells) > actionColumn {
		if a, ok := vocabulary.DetectAction(l.Cells[actionColumn]); ok {
			return a
		}
	}
	a, _ := vocabulary.DetectAction(l.Text())
	return a
}
