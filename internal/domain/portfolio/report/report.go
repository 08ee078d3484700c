// Package report computes allocation drift and price signals for a portfolio.
// All arithmetic runs on decimals; percentages are rounded to two places.
package report

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

// Top list sizes.
const (
	OverTargetLimit     = 12
	NearFairLimit       = 10
	DiscountToFairLimit = 10
	AboveCeilingLimit   = 10
)

var hundred = decimal.NewFromInt(100)

type SectionSummary struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	AssetCount  int             `json:"assetCount"`
	TotalValue  decimal.Decimal `json:"totalValue"`
	ActualPct   decimal.Decimal `json:"actualPct"`
	TargetPct   decimal.Decimal `json:"targetPct"`
	CoveragePct decimal.Decimal `json:"coveragePct"`
	GapPct      decimal.Decimal `json:"gapPct"`
}

// AssetInsight holds the per-asset figures. OverPct is the actual share of the
// section minus the asset's target; FairGap and CeilingGap are zero when the
// reference price is unset.
type AssetInsight struct {
	ID               uuid.UUID       `json:"id"`
	Ticker           string          `json:"ticker"`
	Name             string          `json:"name"`
	SectionName      string          `json:"sectionName"`
	Value            decimal.Decimal `json:"value"`
	PriceUnit        decimal.Decimal `json:"priceUnit"`
	Quantity         decimal.Decimal `json:"quantity"`
	TargetPct        decimal.Decimal `json:"targetPct"`
	ActualSectionPct decimal.Decimal `json:"actualSectionPct"`
	OverPct          decimal.Decimal `json:"overPct"`
	FairPrice        decimal.Decimal `json:"fairPrice"`
	FairGap          decimal.Decimal `json:"fairGap"`
	FairGapPct       decimal.Decimal `json:"fairGapPct"`
	CeilingPrice     decimal.Decimal `json:"ceilingPrice"`
	CeilingGap       decimal.Decimal `json:"ceilingGap"`
	CeilingGapPct    decimal.Decimal `json:"ceilingGapPct"`
}

type Report struct {
	PortfolioTotal  decimal.Decimal  `json:"portfolioTotal"`
	SectionCount    int              `json:"sectionCount"`
	AssetCount      int              `json:"assetCount"`
	OverTargetCount int              `json:"overTargetCount"`
	Sections        []SectionSummary `json:"sections"`
	OverTarget      []AssetInsight   `json:"overTarget"`
	NearFair        []AssetInsight   `json:"nearFair"`
	DiscountToFair  []AssetInsight   `json:"discountToFair"`
	AboveCeiling    []AssetInsight   `json:"aboveCeiling"`
}

// Build computes the report for sections in the order given.
func Build(sections []common.Section) *Report {
	r := &Report{
		PortfolioTotal: decimal.Zero,
		SectionCount:   len(sections),
		Sections:       make([]SectionSummary, 0, len(sections)),
	}

	sectionTotals := make([]decimal.Decimal, len(sections))
	for i, s := range sections {
		total := decimal.Zero
		for _, a := range s.Assets {
			total = total.Add(a.PriceUnit.Mul(a.Quantity))
		}
		sectionTotals[i] = total
		r.PortfolioTotal = r.PortfolioTotal.Add(total)
		r.AssetCount += len(s.Assets)
	}

	var insights []AssetInsight
	for i, s := range sections {
		actual := percentOf(sectionTotals[i], r.PortfolioTotal)
		summary := SectionSummary{
			ID:          s.ID,
			Name:        s.Name,
			AssetCount:  len(s.Assets),
			TotalValue:  sectionTotals[i],
			ActualPct:   actual.Round(2),
			TargetPct:   s.TargetPercentage.Round(2),
			CoveragePct: percentOf(actual, s.TargetPercentage).Round(2),
			GapPct:      actual.Sub(s.TargetPercentage).Round(2),
		}
		r.Sections = append(r.Sections, summary)

		for _, a := range s.Assets {
			insights = append(insights, assetInsight(s.Name, a, sectionTotals[i]))
		}
	}

	for _, a := range insights {
		if a.OverPct.IsPositive() {
			r.OverTargetCount++
		}
	}

	r.OverTarget = topN(insights, OverTargetLimit,
		func(a AssetInsight) bool { return a.OverPct.IsPositive() },
		func(a, b AssetInsight) int { return b.OverPct.Cmp(a.OverPct) })

	r.NearFair = topN(insights, NearFairLimit,
		func(a AssetInsight) bool {
			return a.FairPrice.IsPositive() && a.PriceUnit.IsPositive() && a.PriceUnit.LessThanOrEqual(a.FairPrice)
		},
		func(a, b AssetInsight) int { return a.FairGap.Cmp(b.FairGap) })

	r.DiscountToFair = topN(insights, DiscountToFairLimit,
		func(a AssetInsight) bool {
			return a.FairPrice.IsPositive() && a.PriceUnit.IsPositive() && a.PriceUnit.LessThan(a.FairPrice)
		},
		func(a, b AssetInsight) int { return b.FairGapPct.Cmp(a.FairGapPct) })

	r.AboveCeiling = topN(insights, AboveCeilingLimit,
		func(a AssetInsight) bool {
			return a.CeilingPrice.IsPositive() && a.PriceUnit.IsPositive() && a.PriceUnit.GreaterThan(a.CeilingPrice)
		},
		func(a, b AssetInsight) int { return b.CeilingGapPct.Cmp(a.CeilingGapPct) })

	return r
}

func assetInsight(sectionName string, a common.Asset, sectionValue decimal.Decimal) AssetInsight {
	value := a.PriceUnit.Mul(a.Quantity)
	actual := percentOf(value, sectionValue)

	fairGap, fairGapPct := decimal.Zero, decimal.Zero
	if a.FairPrice.IsPositive() {
		fairGap = a.FairPrice.Sub(a.PriceUnit)
		fairGapPct = percentOf(fairGap, a.FairPrice)
	}
	ceilingGap, ceilingGapPct := decimal.Zero, decimal.Zero
	if a.CeilingPrice.IsPositive() {
		ceilingGap = a.PriceUnit.Sub(a.CeilingPrice)
		ceilingGapPct = percentOf(ceilingGap, a.CeilingPrice)
	}

	return AssetInsight{
		ID:               a.ID,
		Ticker:           a.Ticker,
		Name:             a.Name,
		SectionName:      sectionName,
		Value:            value,
		PriceUnit:        a.PriceUnit,
		Quantity:         a.Quantity,
		TargetPct:        a.TargetPercentage,
		ActualSectionPct: actual.Round(2),
		OverPct:          actual.Sub(a.TargetPercentage).Round(2),
		FairPrice:        a.FairPrice,
		FairGap:          fairGap,
		FairGapPct:       fairGapPct.Round(2),
		CeilingPrice:     a.CeilingPrice,
		CeilingGap:       ceilingGap,
		CeilingGapPct:    ceilingGapPct.Round(2),
	}
}

// percentOf returns part/whole*100, or zero when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}

func topN(in []AssetInsight, n int, keep func(AssetInsight) bool, cmp func(a, b AssetInsight) int) []AssetInsight {
	out := make([]AssetInsight, 0, n)
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, cmp)
	if len(out) > n {
		out = out[:n]
	}
	return out
}
