package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for r, row := range rows {
		for c, v := range row {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", axis, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeXLSX_TypedCells(t *testing.T) {
	data := buildXLSX(t, [][]any{
		{"Ativo", "Percentual"},
		{"PETR4", "10%"},
		{"VALE3", 20},
		{"ITUB4", 0.125},
	})

	grid, err := DecodeXLSX(data)
	require.NoError(t, err)
	require.Len(t, grid.Rows, 4)

	assert.Equal(t, TextCell("Ativo"), grid.Rows[0][0])
	assert.Equal(t, TextCell("10%"), grid.Rows[1][1])
	assert.Equal(t, NumberCell(20), grid.Rows[2][1])
	assert.Equal(t, NumberCell(0.125), grid.Rows[3][1])
}

func TestDecodeXLSX_Garbage(t *testing.T) {
	_, err := DecodeXLSX([]byte("definitely not a zip archive"))
	assert.Error(t, err)
}

func TestDecodeCSV(t *testing.T) {
	data := []byte("Ticker;Peso;Obs\nITUB4;15;\nBBAS3;12,5%;comprar\n")

	grid, err := DecodeCSV(data)
	require.NoError(t, err)
	require.Len(t, grid.Rows, 3)

	assert.Equal(t, TextCell("Ticker"), grid.Rows[0][0])
	assert.Equal(t, NumberCell(15), grid.Rows[1][1])
	assert.True(t, grid.Rows[1][2].Empty())
	assert.Equal(t, TextCell("12,5%"), grid.Rows[2][1])
}

func TestDecodeCSV_SkipsTitleAboveHeader(t *testing.T) {
	data := []byte("\ufeffCarteira Recomendada Outubro\r\n\r\nAtivo;Percentual\r\nPETR4;10%\r\nVALE3;20%\r\n")

	grid, err := DecodeCSV(data)
	require.NoError(t, err)
	require.Len(t, grid.Rows, 3)

	assert.Equal(t, []Cell{TextCell("Ativo"), TextCell("Percentual")}, grid.Rows[0])
	assert.Equal(t, []Cell{TextCell("PETR4"), TextCell("10%")}, grid.Rows[1])
}

func TestDecode_UnknownExtension(t *testing.T) {
	_, err := Decode(".docx", []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestCell_String(t *testing.T) {
	assert.Equal(t, "12.5", NumberCell(12.5).String())
	assert.Equal(t, "PETR4", TextCell("PETR4").String())
	assert.Equal(t, 12.5, NumberCell(12.5).Value())
	assert.Equal(t, "x", TextCell("x").Value())
}

func TestInferCell(t *testing.T) {
	assert.Equal(t, NumberCell(3), inferCell(" 3 "))
	assert.Equal(t, NumberCell(-0.5), inferCell("-0.5"))
	assert.Equal(t, TextCell("Inf"), inferCell("Inf"))
	assert.Equal(t, TextCell("0x10"), inferCell("0x10"))
	assert.Equal(t, TextCell("12,5"), inferCell("12,5"))
}
