// Package sniffer provides automatic detection of CSV/TSV strategy files.
// It identifies the delimiter and the header row.
package sniffer

import (
	"errors"
	"strings"
)

// Common strategy sheet header keywords (Portuguese and English)
var headerKeywords = []string{
	// Portuguese
	"ativo", "papel", "codigo", "código", "percentual", "alvo", "peso", "recomenda", "estrat",
	// English
	"asset", "ticker", "percentage", "percent", "weight", "action",
}

var delimiters = []rune{';', '\t', ',', '|'}

// maxSniffLines bounds how far into the file detection looks.
const maxSniffLines = 20

// FileConfig holds the detected configuration for a CSV/TSV file
type FileConfig struct {
	Delimiter    rune // The field delimiter (';', ',', '\t', '|')
	HeaderLine   int  // Index among non-blank lines of the header row, -1 if none
	HeaderOffset int  // Byte offset of the header row in the BOM-stripped file, 0 if none
}

var ErrEmptyFile = errors.New("file is empty")

// DetectConfig analyzes a CSV/TSV file and returns its configuration.
// Title lines above the table are skipped: the header is the delimited line
// carrying the most header keywords, and the delimiter is scored from there on.
// Files without a recognizable header still get a delimiter; the caller
// decides how to interpret the rows.
func DetectConfig(data []byte) (*FileConfig, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}

	lines, offsets := sampleLines(text)
	idx := findHeaderLine(lines)
	if idx < 0 {
		return &FileConfig{Delimiter: detectDelimiter(lines), HeaderLine: -1}, nil
	}
	return &FileConfig{
		Delimiter:    detectDelimiter(lines[idx:]),
		HeaderLine:   idx,
		HeaderOffset: offsets[idx],
	}, nil
}

// sampleLines returns up to maxSniffLines non-blank lines with the byte
// offset each one starts at.
func sampleLines(text string) ([]string, []int) {
	var (
		lines   []string
		offsets []int
	)
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		start := offset
		offset += len(line) + 1

		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		offsets = append(offsets, start)
		if len(lines) >= maxSniffLines {
			break
		}
	}
	return lines, offsets
}

// detectDelimiter picks the candidate present on every delimited line with
// the highest guaranteed column count. Lines without any candidate are
// ignored. Comma wins when nothing is consistent.
func detectDelimiter(lines []string) rune {
	best := ','
	bestMin := 0

	for _, d := range delimiters {
		minCount := -1
		for _, line := range lines {
			if !hasDelimiter(line) {
				continue
			}
			count := strings.Count(line, string(d))
			if minCount == -1 || count < minCount {
				minCount = count
			}
		}
		if minCount > bestMin {
			best = d
			bestMin = minCount
		}
	}

	return best
}

// findHeaderLine locates the delimited line with the most header keywords,
// the earliest one on ties.
func findHeaderLine(lines []string) int {
	best, bestHits := -1, 0
	for i, line := range lines {
		if !hasDelimiter(line) {
			continue
		}
		if hits := keywordHits(line); hits > bestHits {
			best, bestHits = i, hits
		}
	}
	return best
}

func keywordHits(line string) int {
	lineLower := strings.ToLower(line)
	hits := 0
	for _, kw := range headerKeywords {
		if strings.Contains(lineLower, kw) {
			hits++
		}
	}
	return hits
}

func hasDelimiter(line string) bool {
	return strings.ContainsAny(line, string(delimiters))
}
