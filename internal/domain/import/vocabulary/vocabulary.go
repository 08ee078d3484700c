// Package vocabulary recognizes ticker symbols and free-text trade actions
// in broker documents. Matching is accent and case insensitive.
package vocabulary

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

var (
	// Spreadsheet tickers carry at least one digit (WEGE3, BERK34, TAEE11).
	sheetTickerPattern = regexp.MustCompile(`^[A-Z]{3,7}\d{1,2}[A-Z]{0,2}$`)

	// PDF text fragments come pre-tokenized, so the ticker may sit inside a
	// longer fragment.
	pdfTickerPattern = regexp.MustCompile(`\b[A-Z]{4}\d{1,2}\b`)

	spacePattern = regexp.MustCompile(`\s+`)
)

// actionWords is checked in order; the first list with a match wins.
var actionWords = []struct {
	action common.Action
	words  []string
}{
	{common.ActionBuy, []string{"comprar", "compra", "buy"}},
	{common.ActionSell, []string{"vender", "venda", "sell"}},
	{common.ActionHold, []string{"manter", "hold", "manter posicao"}},
}

// IsSheetTicker reports whether s, trimmed and upper-cased, has the shape of
// a spreadsheet ticker.
func IsSheetTicker(s string) bool {
	return sheetTickerPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// FindPDFTicker returns the first ticker-shaped token inside s after
// upper-casing it.
func FindPDFTicker(s string) (string, bool) {
	m := pdfTickerPattern.FindString(strings.ToUpper(s))
	return m, m != ""
}

// Fold strips diacritics, lowercases and collapses whitespace.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.TrimSpace(spacePattern.ReplaceAllString(folded, " "))
}

// DetectAction looks for a buy, sell or hold word in text. The second return
// value is false when no action word is present.
func DetectAction(text string) (common.Action, bool) {
	v := Fold(text)
	if v == "" {
		return "", false
	}
	for _, group := range actionWords {
		for _, w := range group.words {
			if strings.Contains(v, w) {
				return group.action, true
			}
		}
	}
	return "", false
}
