// Package normalizer handles locale-formatted numbers and the percentage
// normalization applied to imported strategy rows before they are stored.
package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ToNumber converts a cell value into a number.
// Native numerics are accepted as is (NaN rejected). Strings have their
// percent sign dropped and a comma decimal separator turned into a period
// (12,5% -> 12.5). A blank string reads as 0. The second return value is
// false when no finite number could be read.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), !math.IsNaN(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		return parseNumber(v)
	}
	return 0, false
}

func parseNumber(raw string) (float64, bool) {
	cleaned := strings.Replace(raw, "%", "", 1)
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, true
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	return val, true
}

// LooksLikePercentage reports whether value reads as a number in [0, 100].
func LooksLikePercentage(value any) bool {
	n, ok := ToNumber(value)
	return ok && n >= 0 && n <= 100
}

// Options controls the normalization pass.
type Options struct {
	// RescaleFractions treats raw values <= 1 as fractions of one
	// (0.25 -> 25%). A genuine 1% row therefore becomes 100%.
	RescaleFractions bool
}

// DefaultOptions matches the behaviour users get out of the box.
func DefaultOptions() Options {
	return Options{RescaleFractions: true}
}

// Normalized is the outcome of NormalizeRows.
type Normalized struct {
	Rows    []common.ParsedRow
	Total   decimal.Decimal
	Warning string
}

// NormalizeRows rescales, clamps and rounds every row percentage to two
// decimals, then reports a warning when the total is not exactly 100.
// Rows are never dropped here.
func NormalizeRows(rows []common.ParsedRow, opts Options) Normalized {
	out := make([]common.ParsedRow, 0, len(rows))
	total := decimal.Zero

	for _, r := range rows {
		pct := NormalizePercentage(r.Percentage, opts)
		total = total.Add(pct)

		f, _ := pct.Float64()
		out = append(out, common.ParsedRow{
			Asset:      r.Asset,
			Percentage: f,
			Action:     r.Action,
		})
	}

	result := Normalized{Rows: out, Total: total}
	if !total.Equal(hundred) {
		result.Warning = fmt.Sprintf("Total imported: %s%%. Does not sum to 100%%.", total.String())
	}
	return result
}

// NormalizePercentage applies the per-row policy of NormalizeRows.
func NormalizePercentage(raw float64, opts Options) decimal.Decimal {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return decimal.Zero
	}

	pct := decimal.NewFromFloat(raw)
	if opts.RescaleFractions && pct.LessThanOrEqual(one) {
		pct = pct.Mul(hundred)
	}

	if pct.IsNegative() {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}

	// decimal rounds half away from zero, which is half-up for values >= 0
	return pct.Round(2)
}

// RoundPercentage rounds a float percentage to two decimals, half-up.
func RoundPercentage(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
