package report

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func asset(ticker, price, qty, target, fair, ceiling string) common.Asset {
	return common.Asset{
		ID:               uuid.New(),
		Name:             ticker,
		Ticker:           ticker,
		PriceUnit:        d(price),
		Quantity:         d(qty),
		TargetPercentage: d(target),
		FairPrice:        d(fair),
		CeilingPrice:     d(ceiling),
	}
}

func TestBuild(t *testing.T) {
	sections := []common.Section{
		{
			ID: uuid.New(), Name: "Ações", TargetPercentage: d("60"),
			Assets: []common.Asset{
				asset("PETR4", "10", "60", "50", "12", "11"),
				asset("VALE3", "20", "20", "50", "18", "15"),
			},
		},
		{
			ID: uuid.New(), Name: "FIIs", TargetPercentage: d("40"),
			Assets: []common.Asset{
				asset("HGLG11", "100", "10", "100", "0", "0"),
			},
		},
	}

	r := Build(sections)

	assert.True(t, r.PortfolioTotal.Equal(d("2000")))
	assert.Equal(t, 2, r.SectionCount)
	assert.Equal(t, 3, r.AssetCount)
	assert.Equal(t, 1, r.OverTargetCount)

	require.Len(t, r.Sections, 2)
	acoes := r.Sections[0]
	assert.Equal(t, "1000", acoes.TotalValue.String())
	assert.Equal(t, "50", acoes.ActualPct.String())
	assert.Equal(t, "83.33", acoes.CoveragePct.String())
	assert.Equal(t, "-10", acoes.GapPct.String())
	fiis := r.Sections[1]
	assert.Equal(t, "125", fiis.CoveragePct.String())
	assert.Equal(t, "10", fiis.GapPct.String())

	require.Len(t, r.OverTarget, 1)
	petr := r.OverTarget[0]
	assert.Equal(t, "PETR4", petr.Ticker)
	assert.Equal(t, "Ações", petr.SectionName)
	assert.Equal(t, "60", petr.ActualSectionPct.String())
	assert.Equal(t, "10", petr.OverPct.String())
	assert.Equal(t, "2", petr.FairGap.String())
	assert.Equal(t, "16.67", petr.FairGapPct.String())
	assert.Equal(t, "-1", petr.CeilingGap.String())
	assert.Equal(t, "-9.09", petr.CeilingGapPct.String())

	require.Len(t, r.NearFair, 1)
	assert.Equal(t, "PETR4", r.NearFair[0].Ticker)
	require.Len(t, r.DiscountToFair, 1)
	assert.Equal(t, "PETR4", r.DiscountToFair[0].Ticker)

	require.Len(t, r.AboveCeiling, 1)
	assert.Equal(t, "VALE3", r.AboveCeiling[0].Ticker)
	assert.Equal(t, "33.33", r.AboveCeiling[0].CeilingGapPct.String())
}

func TestBuild_Empty(t *testing.T) {
	r := Build(nil)

	assert.True(t, r.PortfolioTotal.IsZero())
	assert.Empty(t, r.Sections)
	assert.NotNil(t, r.OverTarget)
	assert.Empty(t, r.OverTarget)
}

func TestBuild_ZeroValueSection(t *testing.T) {
	r := Build([]common.Section{{
		Name: "Caixa", TargetPercentage: d("0"),
		Assets: []common.Asset{asset("TESOURO", "0", "5", "100", "0", "0")},
	}})

	require.Len(t, r.Sections, 1)
	assert.True(t, r.Sections[0].ActualPct.IsZero())
	assert.True(t, r.Sections[0].CoveragePct.IsZero())
	assert.Equal(t, 0, r.OverTargetCount)
}

func TestBuild_TopListsAreCapped(t *testing.T) {
	var assets []common.Asset
	for i := 1; i <= 15; i++ {
		assets = append(assets, asset(fmt.Sprintf("T%02d", i), fmt.Sprint(i), "1", "0", "100", "0.5"))
	}
	r := Build([]common.Section{{Name: "Ações", TargetPercentage: d("100"), Assets: assets}})

	assert.Equal(t, 15, r.OverTargetCount)
	require.Len(t, r.OverTarget, OverTargetLimit)
	assert.Equal(t, "T15", r.OverTarget[0].Ticker)
	assert.Equal(t, "T04", r.OverTarget[OverTargetLimit-1].Ticker)

	require.Len(t, r.NearFair, NearFairLimit)
	assert.Equal(t, "T15", r.NearFair[0].Ticker)
	require.Len(t, r.DiscountToFair, DiscountToFairLimit)
	assert.Equal(t, "T01", r.DiscountToFair[0].Ticker)
	require.Len(t, r.AboveCeiling, AboveCeilingLimit)
	assert.Equal(t, "T15", r.AboveCeiling[0].Ticker)
}
