// Package sheet decodes the first worksheet of an XLSX, XLS or CSV upload
// into a grid of typed cells.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/sniffer"
)

var (
	ErrUnknownFormat = errors.New("unknown spreadsheet format")
	ErrNoSheets      = errors.New("workbook has no sheets")
)

// xlsCharset is used for legacy BIFF string tables without a code page.
const xlsCharset = "cp1252"

var plainNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Cell is a spreadsheet cell holding either text or a number.
type Cell struct {
	Text     string
	Number   float64
	IsNumber bool
}

// TextCell builds a text cell.
func TextCell(s string) Cell { return Cell{Text: s} }

// NumberCell builds a numeric cell.
func NumberCell(f float64) Cell { return Cell{Number: f, IsNumber: true} }

// Value returns the cell content as float64 or string.
func (c Cell) Value() any {
	if c.IsNumber {
		return c.Number
	}
	return c.Text
}

// String renders the cell as text; numbers use the shortest representation.
func (c Cell) String() string {
	if c.IsNumber {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Text
}

// Empty reports whether the cell holds nothing but whitespace.
func (c Cell) Empty() bool {
	return !c.IsNumber && strings.TrimSpace(c.Text) == ""
}

// Grid is the decoded first worksheet, row-major.
type Grid struct {
	Rows [][]Cell
}

// Decode dispatches on a lower-case extension (".xlsx", ".xls", ".csv").
func Decode(ext string, data []byte) (*Grid, error) {
	switch ext {
	case ".xlsx":
		return DecodeXLSX(data)
	case ".xls":
		return DecodeXLS(data)
	case ".csv":
		return DecodeCSV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, ext)
	}
}

// DecodeXLSX reads the first sheet of an Office Open XML workbook.
func DecodeXLSX(data []byte) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}

	grid := &Grid{Rows: make([][]Cell, 0, len(rows))}
	for r, row := range rows {
		cells := make([]Cell, len(row))
		for c, raw := range row {
			cells[c] = xlsxCell(f, name, r, c, raw)
		}
		grid.Rows = append(grid.Rows, cells)
	}
	return grid, nil
}

func xlsxCell(f *excelize.File, sheetName string, r, c int, raw string) Cell {
	if raw == "" {
		return TextCell("")
	}
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return TextCell(raw)
	}
	typ, err := f.GetCellType(sheetName, axis)
	if err != nil {
		return TextCell(raw)
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeFormula:
		if n, ok := parsePlainNumber(raw); ok {
			return NumberCell(n)
		}
	}
	return TextCell(raw)
}

// DecodeXLS reads the first sheet of a legacy BIFF workbook. The decoder has
// no cell types, so plain numeric strings become numbers.
func DecodeXLS(data []byte) (grid *Grid, err error) {
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = fmt.Errorf("open xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), xlsCharset)
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheets
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, ErrNoSheets
	}

	grid = &Grid{}
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			grid.Rows = append(grid.Rows, nil)
			continue
		}
		cells := make([]Cell, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, inferCell(row.Col(c)))
		}
		grid.Rows = append(grid.Rows, cells)
	}
	return grid, nil
}

// DecodeCSV reads delimited text, detecting the delimiter first. Title lines
// above a recognized header row are not part of the grid.
func DecodeCSV(data []byte) (*Grid, error) {
	config, err := sniffer.DetectConfig(data)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	reader := csv.NewReader(bytes.NewReader(data[config.HeaderOffset:]))
	reader.Comma = config.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	grid := &Grid{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		cells := make([]Cell, len(record))
		for i, v := range record {
			cells[i] = inferCell(v)
		}
		grid.Rows = append(grid.Rows, cells)
	}
	return grid, nil
}

func inferCell(raw string) Cell {
	if n, ok := parsePlainNumber(raw); ok {
		return NumberCell(n)
	}
	return TextCell(raw)
}

func parsePlainNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if !plainNumber.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
