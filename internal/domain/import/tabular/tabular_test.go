package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/sheet"
)

func grid(rows ...[]sheet.Cell) *sheet.Grid {
	return &sheet.Grid{Rows: rows}
}

func row(values ...any) []sheet.Cell {
	cells := make([]sheet.Cell, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			cells[i] = sheet.TextCell(x)
		case int:
			cells[i] = sheet.NumberCell(float64(x))
		case float64:
			cells[i] = sheet.NumberCell(x)
		}
	}
	return cells
}

func TestExtract_HeaderPass(t *testing.T) {
	g := grid(
		row("Ativo", "Percentual", "Ação"),
		row("petr4", "10%", "Comprar"),
		row("VALE3", 20, "Manter"),
		row("", "", ""),
		row("ITUB4", "12,5", ""),
	)

	res := Extract(g)
	assert.Equal(t, PassHeader, res.Pass)
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, []common.ParsedRow{
		{Asset: "PETR4", Percentage: 10, Action: common.ActionBuy},
		{Asset: "VALE3", Percentage: 20, Action: common.ActionHold},
		{Asset: "ITUB4", Percentage: 12.5},
	}, res.Rows)
}

func TestExtract_AssetColumnHoldsRecommendation(t *testing.T) {
	g := grid(
		row("Ativo", "Código", "Peso"),
		row("Comprar", "WEGE3", 8),
	)

	res := Extract(g)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, common.ParsedRow{Asset: "WEGE3", Percentage: 8, Action: common.ActionBuy}, res.Rows[0])
}

func TestExtract_AssetColumnWithoutTickerShape(t *testing.T) {
	g := grid(
		row("Papel", "Nome", "Alvo"),
		row("Banco do Brasil", "BBAS3", "5%"),
		row("Fundo X", "sem ticker", "7%"),
	)

	res := Extract(g)
	assert.Equal(t, PassHeader, res.Pass)
	assert.Equal(t, []common.ParsedRow{
		{Asset: "BBAS3", Percentage: 5},
		{Asset: "FUNDO X", Percentage: 7},
	}, res.Rows)
}

func TestExtract_PercentageFoundWithoutColumn(t *testing.T) {
	g := grid(
		row("Ticker", "Comentário", "Valor"),
		row("TAEE11", "9%", 250),
		row("KLBN11", "sem peso", 30),
	)

	res := Extract(g)
	assert.Equal(t, []common.ParsedRow{
		{Asset: "TAEE11", Percentage: 9},
		{Asset: "KLBN11", Percentage: 30},
	}, res.Rows)
}

func TestExtract_DropsRowsWithoutPercentage(t *testing.T) {
	g := grid(
		row("Asset", "Percentage"),
		row("PETR4", "n/a"),
		row("ITUB4", 15),
	)

	res := Extract(g)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, []common.ParsedRow{{Asset: "ITUB4", Percentage: 15}}, res.Rows)
}

func TestExtract_BlankPercentageReadsAsZero(t *testing.T) {
	g := grid(
		row("Ativo", "Percentual"),
		row("PETR4", ""),
		row("VALE3", "  "),
		row("ITUB4", 15),
	)

	res := Extract(g)
	assert.Equal(t, PassHeader, res.Pass)
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, []common.ParsedRow{
		{Asset: "PETR4", Percentage: 0},
		{Asset: "VALE3", Percentage: 0},
		{Asset: "ITUB4", Percentage: 15},
	}, res.Rows)
}

func TestExtract_HeaderlessTwoColumnSheet(t *testing.T) {
	g := grid(
		row("Ticker", "Percentual"),
		row("ITUB4", 15),
	)

	res := Extract(g)
	assert.Equal(t, []common.ParsedRow{{Asset: "ITUB4", Percentage: 15}}, res.Rows)
}

func TestExtract_PositionalFallback(t *testing.T) {
	g := grid(
		row("Carteira recomendada", "Part.", "Obs"),
		row("ITUB4", 15, "comprar"),
		row("Vender", "BBDC4", "3,5%"),
		row("nada aqui", "", ""),
		row("HGLG11", 250, "0,45"),
	)

	res := Extract(g)
	assert.Equal(t, PassPositional, res.Pass)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, []common.ParsedRow{
		{Asset: "ITUB4", Percentage: 15, Action: common.ActionBuy},
		{Asset: "BBDC4", Percentage: 3.5, Action: common.ActionSell},
		{Asset: "HGLG11", Percentage: 0.45},
	}, res.Rows)
}

func TestExtract_NothingUsable(t *testing.T) {
	g := grid(
		row("Relatório"),
		row("Sem dados"),
	)

	res := Extract(g)
	assert.Empty(t, res.Rows)
	assert.Equal(t, PassNone, res.Pass)

	assert.Empty(t, Extract(nil).Rows)
	assert.Empty(t, Extract(grid()).Rows)
}

func TestNewHeaderColumns_DuplicateAndEmptyNames(t *testing.T) {
	hc := newHeaderColumns(row("Ativo", "", "Ativo"), 4)
	assert.Equal(t, []string{"Ativo", "__EMPTY", "Ativo_1", "__EMPTY_1"}, hc.names)
	assert.Equal(t, 0, hc.pick(assetKeys))
	assert.Equal(t, -1, hc.pick(percentKeys))
}
