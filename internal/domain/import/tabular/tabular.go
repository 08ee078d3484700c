// Package tabular extracts (asset, percentage, action) rows from spreadsheet
// grids of unknown layout. A header-mapped pass runs first; a positional scan
// over raw cells is the fallback when no header matches.
package tabular

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/sheet"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/vocabulary"
)

// Header synonyms, in lookup priority order.
var (
	assetKeys   = []string{"asset", "ativo", "papel", "ticker", "codigo", "código", "acao", "ação", "ticker/código"}
	percentKeys = []string{"percentage", "percentual", "%", "alvo", "peso", "percent", "percentual alvo"}
	actionKeys  = []string{
		"acao", "ação",
		"estrategia", "estratégia",
		"recomendacao", "recomendação",
		"movimento", "movimentacao", "movimentação",
		"indicacao", "indicação",
		"acao recomendada", "recomendacao ação",
		"opinião", "opiniao",
	}
)

// Pass identifies which extraction stage produced a result.
type Pass string

const (
	PassNone       Pass = ""
	PassHeader     Pass = "header"
	PassPositional Pass = "positional"
)

// Result is the outcome of Extract. Dropped counts the non-blank candidate
// rows the winning pass discarded for lacking an asset or a percentage.
type Result struct {
	Rows    []common.ParsedRow
	Dropped int
	Pass    Pass
}

// Extract runs the header-mapped pass and, when it yields nothing, the
// positional pass. An empty Result means neither pass found a usable row.
func Extract(grid *sheet.Grid) Result {
	if grid == nil {
		return Result{}
	}
	if res := headerPass(grid); len(res.Rows) > 0 {
		return res
	}
	if res := positionalPass(grid); len(res.Rows) > 0 {
		return res
	}
	return Result{}
}

// headerColumns maps header text to column indices.
type headerColumns struct {
	names []string
	index map[string]int // trimmed lower-case name -> first column
}

func newHeaderColumns(header []sheet.Cell, width int) headerColumns {
	hc := headerColumns{
		names: make([]string, width),
		index: make(map[string]int, width),
	}

	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i].String())
		}
		if name == "" {
			name = "__EMPTY"
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n)
		} else {
			seen[name] = 1
		}
		hc.names[i] = name

		key := strings.ToLower(name)
		if _, ok := hc.index[key]; !ok {
			hc.index[key] = i
		}
	}
	return hc
}

func (hc headerColumns) pick(keys []string) int {
	for _, k := range keys {
		if i, ok := hc.index[k]; ok {
			return i
		}
	}
	return -1
}

func headerPass(grid *sheet.Grid) Result {
	headerIdx := firstNonBlankRow(grid.Rows)
	if headerIdx < 0 {
		return Result{}
	}

	width := gridWidth(grid.Rows)
	columns := newHeaderColumns(grid.Rows[headerIdx], width)

	assetCol := columns.pick(assetKeys)
	percentCol := columns.pick(percentKeys)
	actionCol := columns.pick(actionKeys)
	if assetCol < 0 && percentCol < 0 {
		return Result{}
	}

	res := Result{Pass: PassHeader}
	for _, raw := range grid.Rows[headerIdx+1:] {
		if blankRow(raw) {
			continue
		}
		cells := padRow(raw, width)

		row, ok := resolveHeaderRow(cells, assetCol, percentCol, actionCol)
		if !ok {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

func resolveHeaderRow(cells []sheet.Cell, assetCol, percentCol, actionCol int) (common.ParsedRow, bool) {
	rawAsset := ""
	if assetCol >= 0 {
		rawAsset = strings.TrimSpace(cells[assetCol].String())
	}
	ticker := findTicker(cells)

	var pct float64
	var pctOK bool
	if percentCol >= 0 {
		pct, pctOK = normalizer.ToNumber(cells[percentCol].Value())
	} else {
		pct, pctOK = findPercent(cells)
	}

	action, hasAction := common.Action(""), false
	if actionCol >= 0 {
		action, hasAction = vocabulary.DetectAction(cells[actionCol].String())
	}
	if !hasAction {
		action, hasAction = vocabulary.DetectAction(rawAsset)
	}
	if !hasAction {
		action, _ = findAction(cells)
	}

	_, assetIsAction := vocabulary.DetectAction(rawAsset)
	assetIsTicker := vocabulary.IsSheetTicker(rawAsset)

	var asset string
	switch {
	case assetIsAction && !assetIsTicker && ticker != "":
		// the "asset" column carries the recommendation, the ticker sits elsewhere
		asset = ticker
	case (rawAsset == "" || !assetIsTicker) && ticker != "":
		asset = ticker
	default:
		asset = strings.ToUpper(rawAsset)
	}

	if asset == "" || !pctOK {
		return common.ParsedRow{}, false
	}
	return common.ParsedRow{Asset: asset, Percentage: pct, Action: action}, true
}

func positionalPass(grid *sheet.Grid) Result {
	res := Result{Pass: PassPositional}
	skipped := false

	for _, line := range grid.Rows {
		if blankRow(line) {
			continue
		}
		if !skipped {
			// first row is assumed to be a header
			skipped = true
			continue
		}

		row, ok := scanRow(line)
		if !ok {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

func scanRow(line []sheet.Cell) (common.ParsedRow, bool) {
	var (
		asset     string
		action    common.Action
		hasAction bool
		pct       float64
		pctOK     bool
	)

	for _, cell := range line {
		if cell.IsNumber {
			if !pctOK && cell.Number >= 0 && cell.Number <= 100 {
				pct, pctOK = cell.Number, true
			}
			continue
		}

		value := strings.TrimSpace(cell.Text)
		if !hasAction {
			action, hasAction = vocabulary.DetectAction(value)
		}
		if asset == "" && vocabulary.IsSheetTicker(value) {
			asset = strings.ToUpper(value)
		}
		if !pctOK && strings.Contains(value, "%") {
			pct, pctOK = normalizer.ToNumber(value)
		}
	}

	if !pctOK {
		for _, cell := range line {
			if n, ok := normalizer.ToNumber(cell.Value()); ok && n >= 0 && n <= 100 {
				pct, pctOK = n, true
				break
			}
		}
	}

	if asset == "" || !pctOK {
		return common.ParsedRow{}, false
	}
	return common.ParsedRow{Asset: asset, Percentage: pct, Action: action}, true
}

func findTicker(cells []sheet.Cell) string {
	for _, c := range cells {
		if c.IsNumber {
			continue
		}
		if vocabulary.IsSheetTicker(c.Text) {
			return strings.ToUpper(strings.TrimSpace(c.Text))
		}
	}
	return ""
}

// findPercent prefers values written with a % sign, then the first plausible
// number in [0, 100].
func findPercent(cells []sheet.Cell) (float64, bool) {
	for _, c := range cells {
		if !c.IsNumber && strings.Contains(c.Text, "%") {
			if n, ok := normalizer.ToNumber(c.Text); ok {
				return n, true
			}
		}
	}
	for _, c := range cells {
		if n, ok := normalizer.ToNumber(c.Value()); ok && n >= 0 && n <= 100 {
			return n, true
		}
	}
	return 0, false
}

func findAction(cells []sheet.Cell) (common.Action, bool) {
	for _, c := range cells {
		if c.IsNumber {
			continue
		}
		if a, ok := vocabulary.DetectAction(c.Text); ok {
			return a, true
		}
	}
	return "", false
}

func firstNonBlankRow(rows [][]sheet.Cell) int {
	for i, r := range rows {
		if !blankRow(r) {
			return i
		}
	}
	return -1
}

func blankRow(row []sheet.Cell) bool {
	for _, c := range row {
		if !c.Empty() {
			return false
		}
	}
	return true
}

func gridWidth(rows [][]sheet.Cell) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

func padRow(row []sheet.Cell, width int) []sheet.Cell {
	if len(row) >= width {
		return row
	}
	out := make([]sheet.Cell, width)
	copy(out, row)
	return out
}
