package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/errs"
)

func frag(text string, x, y float64) Fragment {
	return Fragment{Text: text, X: x, Y: y, W: float64(len(text)) * 4}
}

func TestReconstruct_RowClustering(t *testing.T) {
	page := Page{Number: 1, Fragments: []Fragment{
		frag("Comprar", 200, 100),
		frag("PETR4", 10, 100),
		frag("*", 120, 99),
		frag("VALE3", 10, 80),
	}}

	lines := Reconstruct(page)
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"PETR4", "*", "Comprar"}, lines[0].Cells)
	assert.Equal(t, []string{"VALE3"}, lines[1].Cells)
}

func TestReconstruct_CellMerging(t *testing.T) {
	page := Page{Fragments: []Fragment{
		{Text: "Fundo", X: 10, Y: 50, W: 20},
		{Text: "Imobiliário", X: 35, Y: 50, W: 40},
		{Text: "HGLG11", X: 120, Y: 50, W: 25},
	}}

	lines := Reconstruct(page)
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"Fundo Imobiliário", "HGLG11"}, lines[0].Cells)
	assert.Equal(t, "Fundo Imobiliário HGLG11", lines[0].Text())
}

func TestReconstruct_Empty(t *testing.T) {
	assert.Nil(t, Reconstruct(Page{}))
	assert.Nil(t, Reconstruct(Page{Fragments: []Fragment{{Text: "  ", X: 1, Y: 1}}}))
}

func TestTickers_ActionColumn(t *testing.T) {
	lines := []Line{
		{Cells: []string{"Ticker", "Setor", "Preço", "Recomendação"}},
		{Cells: []string{"hglg11", "Logística", "160", "Comprar"}},
		{Cells: []string{"XPML11", "Shopping", "110", "-", "venda parcial"}},
		{Cells: []string{"HGLG11", "Logística", "160", "Manter"}},
		{Cells: []string{"KNRI11"}},
	}

	rows := Tickers(lines)
	assert.Equal(t, []common.ParsedRow{
		{Asset: "HGLG11", Action: common.ActionBuy},
		{Asset: "XPML11", Action: common.ActionSell},
		{Asset: "KNRI11"},
	}, rows)
}

func TestTickers_FreeTextFallback(t *testing.T) {
	lines := []Line{
		{Cells: []string{"1.", "Recomendamos manter MXRF11 na carteira"}},
		{Cells: []string{"2.", "VISC11 e MXRF11"}},
		{Cells: []string{"sem ativos"}},
	}

	rows := Tickers(lines)
	assert.Equal(t, []common.ParsedRow{
		{Asset: "MXRF11", Action: common.ActionHold},
		{Asset: "VISC11"},
	}, rows)
}

func markerPage(number int, tickers ...string) Page {
	p := Page{Number: number, Fragments: []Fragment{
		frag("PAINEL DE RECOMENDACAO DA CARTEIRA", 10, 700),
	}}
	for i, tk := range tickers {
		p.Fragments = append(p.Fragments, frag(tk, 10, float64(600-i*20)))
	}
	return p
}

func TestSelectPage(t *testing.T) {
	intro := Page{Number: 1, Fragments: []Fragment{frag("Relatório mensal", 10, 700)}}
	table := markerPage(2, "HGLG11")

	p, err := SelectPage([]Page{intro, table}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Number)

	p, err = SelectPage([]Page{intro, table}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)

	p, err = SelectPage([]Page{intro, table}, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Number)

	_, err = SelectPage([]Page{intro}, 0)
	assert.ErrorIs(t, err, errs.ErrPageNotFound)
	assert.ErrorIs(t, err, errs.ErrNoExtractableRows)

	_, err = SelectPage([]Page{intro}, 4)
	assert.ErrorIs(t, err, errs.ErrPageNotFound)
}

func TestExtract_EqualTargets(t *testing.T) {
	pages := []Page{markerPage(1, "HGLG11", "XPML11", "KNRI11", "HGLG11")}

	rows, err := Extract(pages, Options{EqualTargets: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, 33.33, r.Percentage)
	}

	rows, err = Extract(pages, Options{EqualTargets: false})
	require.NoError(t, err)
	for _, r := range rows {
		assert.Zero(t, r.Percentage)
	}
}

func TestExtract_NoTickers(t *testing.T) {
	pages := []Page{markerPage(1)}

	_, err := Extract(pages, Options{EqualTargets: true})
	assert.ErrorIs(t, err, errs.ErrNoTickers)
	assert.ErrorIs(t, err, errs.ErrNoExtractableRows)
}
