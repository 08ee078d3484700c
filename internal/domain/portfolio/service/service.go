// Package service implements portfolio section and asset management.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/report"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/repository"
)

var hundred = decimal.NewFromInt(100)

// SectionInput is one entry of the section editor. A nil ID creates a section.
type SectionInput struct {
	ID               *uuid.UUID      `json:"id,omitempty"`
	Name             string          `json:"name"`
	TargetPercentage decimal.Decimal `json:"targetPercentage"`
}

type CreateAssetInput struct {
	SectionID        uuid.UUID       `json:"sectionId"`
	Name             string          `json:"name"`
	Ticker           string          `json:"ticker"`
	Type             string          `json:"type"`
	Description      string          `json:"description,omitempty"`
	TargetPercentage decimal.Decimal `json:"targetPercentage"`
	PriceUnit        decimal.Decimal `json:"priceUnit"`
	AveragePrice     decimal.Decimal `json:"averagePrice"`
	CeilingPrice     decimal.Decimal `json:"ceilingPrice"`
	FairPrice        decimal.Decimal `json:"fairPrice"`
	Quantity         decimal.Decimal `json:"quantity"`
	Action           common.Action   `json:"action,omitempty"`
}

// AssetValues is a full replacement of an asset's editable values.
type AssetValues struct {
	ID               uuid.UUID       `json:"id"`
	PriceUnit        decimal.Decimal `json:"priceUnit"`
	AveragePrice     decimal.Decimal `json:"averagePrice"`
	CeilingPrice     decimal.Decimal `json:"ceilingPrice"`
	FairPrice        decimal.Decimal `json:"fairPrice"`
	Quantity         decimal.Decimal `json:"quantity"`
	TargetPercentage decimal.Decimal `json:"targetPercentage"`
	Action           common.Action   `json:"action"`
}

// AssetPatch is a partial update. Nil fields keep their stored value;
// negative prices or quantities are ignored and the target is clamped to
// [0, 100].
type AssetPatch struct {
	PriceUnit        *decimal.Decimal `json:"priceUnit,omitempty"`
	AveragePrice     *decimal.Decimal `json:"averagePrice,omitempty"`
	CeilingPrice     *decimal.Decimal `json:"ceilingPrice,omitempty"`
	FairPrice        *decimal.Decimal `json:"fairPrice,omitempty"`
	Quantity         *decimal.Decimal `json:"quantity,omitempty"`
	TargetPercentage *decimal.Decimal `json:"targetPercentage,omitempty"`
	Action           *common.Action   `json:"action,omitempty"`
}

// PortfolioService orchestrates section and asset operations
type PortfolioService struct {
	repo   repository.PortfolioRepository
	logger *slog.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(repo repository.PortfolioRepository, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{repo: repo, logger: logger}
}

func (s *PortfolioService) ListSections(ctx context.Context, userID uuid.UUID) ([]common.Section, error) {
	sections, err := s.repo.ListSections(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list sections",
			slog.String("method", "ListSections"), slog.Any("error", err))
		return nil, err
	}
	return sections, nil
}

// SaveSections replaces the user's section set and returns the stored result.
func (s *PortfolioService) SaveSections(ctx context.Context, userID uuid.UUID, inputs []SectionInput) ([]common.Section, error) {
	ctx, span := otel.Tracer("PortfolioService").Start(ctx, "SaveSections", trace.WithAttributes(
		attribute.Int("sections.count", len(inputs)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SaveSections"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Saving sections")

	sections, err := validateSections(inputs)
	if err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	if err := s.repo.ReplaceSections(ctx, userID, sections); err != nil {
		l.ErrorContext(ctx, "Failed to save sections", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "saved")
	return s.ListSections(ctx, userID)
}

func validateSections(inputs []SectionInput) ([]common.Section, error) {
	if len(inputs) > common.MaxSections {
		return nil, fmt.Errorf("%w: at most %d sections", common.ErrBadRequest, common.MaxSections)
	}

	total := decimal.Zero
	out := make([]common.Section, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
			return nil, fmt.Errorf("%w: section %d name must have 2 to 50 characters", common.ErrBadRequest, i+1)
		}
		if !inPercentRange(in.TargetPercentage) {
			return nil, fmt.Errorf("%w: section %d target must be between 0 and 100", common.ErrBadRequest, i+1)
		}
		total = total.Add(in.TargetPercentage)

		section := common.Section{Name: name, TargetPercentage: in.TargetPercentage}
		if in.ID != nil {
			section.ID = *in.ID
		}
		out = append(out, section)
	}
	if total.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: section targets add up to %s%%, above 100%%", common.ErrBadRequest, total.String())
	}
	return out, nil
}

// CreateAsset adds an asset to one of the user's sections.
func (s *PortfolioService) CreateAsset(ctx context.Context, userID uuid.UUID, in CreateAssetInput) (*common.Asset, error) {
	l := s.logger.With(
		slog.String("method", "CreateAsset"),
		slog.String("userID", userID.String()),
		slog.String("sectionID", in.SectionID.String()),
	)
	l.DebugContext(ctx, "Creating asset")

	asset, err := validateNewAsset(in)
	if err != nil {
		return nil, err
	}

	owned, err := s.repo.SectionOwnedBy(ctx, in.SectionID, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check section ownership", slog.Any("error", err))
		return nil, err
	}
	if !owned {
		return nil, fmt.Errorf("section not found: %w", common.ErrNotFound)
	}

	exists, err := s.repo.TickerExists(ctx, in.SectionID, asset.Ticker)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check ticker", slog.Any("error", err))
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("ticker %s already exists in this section: %w", asset.Ticker, common.ErrConflict)
	}

	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		l.ErrorContext(ctx, "Failed to create asset", slog.Any("error", err))
		return nil, err
	}

	l.InfoContext(ctx, "Asset created", slog.String("assetID", asset.ID.String()), slog.String("ticker", asset.Ticker))
	return asset, nil
}

func validateNewAsset(in CreateAssetInput) (*common.Asset, error) {
	name := strings.TrimSpace(in.Name)
	ticker := strings.TrimSpace(in.Ticker)
	assetType := strings.TrimSpace(in.Type)

	switch {
	case in.SectionID == uuid.Nil:
		return nil, fmt.Errorf("%w: section is required", common.ErrBadRequest)
	case utf8.RuneCountInString(name) < 2:
		return nil, fmt.Errorf("%w: name is too short", common.ErrBadRequest)
	case ticker == "":
		return nil, fmt.Errorf("%w: ticker is required", common.ErrBadRequest)
	case utf8.RuneCountInString(assetType) < 2:
		return nil, fmt.Errorf("%w: type is required", common.ErrBadRequest)
	case !inPercentRange(in.TargetPercentage):
		return nil, fmt.Errorf("%w: target must be between 0 and 100", common.ErrBadRequest)
	}
	if err := checkValues(in.PriceUnit, in.AveragePrice, in.CeilingPrice, in.FairPrice, in.Quantity); err != nil {
		return nil, err
	}

	action := in.Action
	if action == "" {
		action = common.ActionBuy
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", common.ErrBadRequest, in.Action)
	}

	asset := &common.Asset{
		SectionID:        in.SectionID,
		Name:             name,
		Ticker:           ticker,
		Type:             assetType,
		TargetPercentage: in.TargetPercentage,
		PriceUnit:        in.PriceUnit,
		AveragePrice:     in.AveragePrice,
		CeilingPrice:     in.CeilingPrice,
		FairPrice:        in.FairPrice,
		Quantity:         in.Quantity,
		Action:           action,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		asset.Description = &desc
	}
	return asset, nil
}

// UpdateAssetsBulk replaces the values of several assets of one section in a
// single transaction. Every id must belong to the section.
func (s *PortfolioService) UpdateAssetsBulk(ctx context.Context, userID, sectionID uuid.UUID, values []AssetValues) error {
	ctx, span := otel.Tracer("PortfolioService").Start(ctx, "UpdateAssetsBulk", trace.WithAttributes(
		attribute.String("section.id", sectionID.String()),
		attribute.Int("assets.count", len(values)),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "UpdateAssetsBulk"),
		slog.String("userID", userID.String()),
		slog.String("sectionID", sectionID.String()),
	)

	if len(values) == 0 {
		return fmt.Errorf("%w: at least one asset is required", common.ErrBadRequest)
	}
	for i, v := range values {
		if err := checkValues(v.PriceUnit, v.AveragePrice, v.CeilingPrice, v.FairPrice, v.Quantity); err != nil {
			return fmt.Errorf("asset %d: %w", i+1, err)
		}
		if !inPercentRange(v.TargetPercentage) {
			return fmt.Errorf("%w: asset %d target must be between 0 and 100", common.ErrBadRequest, i+1)
		}
		if !v.Action.Valid() {
			return fmt.Errorf("%w: asset %d has unknown action %q", common.ErrBadRequest, i+1, v.Action)
		}
	}

	owned, err := s.repo.SectionOwnedBy(ctx, sectionID, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check section ownership", slog.Any("error", err))
		return err
	}
	if !owned {
		return fmt.Errorf("section not found: %w", common.ErrNotFound)
	}

	ids, err := s.repo.SectionAssetIDs(ctx, sectionID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list section assets", slog.Any("error", err))
		return err
	}
	allowed := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}

	assets := make([]common.Asset, 0, len(values))
	for _, v := range values {
		if !allowed[v.ID] {
			span.SetStatus(codes.Error, "foreign asset")
			return fmt.Errorf("%w: asset %s does not belong to this section", common.ErrBadRequest, v.ID)
		}
		assets = append(assets, common.Asset{
			ID:               v.ID,
			SectionID:        sectionID,
			PriceUnit:        v.PriceUnit,
			AveragePrice:     v.AveragePrice,
			CeilingPrice:     v.CeilingPrice,
			FairPrice:        v.FairPrice,
			Quantity:         v.Quantity,
			TargetPercentage: v.TargetPercentage,
			Action:           v.Action,
		})
	}

	if err := s.repo.UpdateAssets(ctx, assets); err != nil {
		l.ErrorContext(ctx, "Failed to update assets", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}

	l.InfoContext(ctx, "Assets updated", slog.Int("count", len(assets)))
	return nil
}

// UpdateAssetValues applies a partial update to one asset.
func (s *PortfolioService) UpdateAssetValues(ctx context.Context, userID, assetID uuid.UUID, patch AssetPatch) (*common.Asset, error) {
	asset, err := s.repo.GetAsset(ctx, assetID, userID)
	if err != nil {
		return nil, err
	}

	applyNonNegative(&asset.PriceUnit, patch.PriceUnit)
	applyNonNegative(&asset.AveragePrice, patch.AveragePrice)
	applyNonNegative(&asset.CeilingPrice, patch.CeilingPrice)
	applyNonNegative(&asset.FairPrice, patch.FairPrice)
	applyNonNegative(&asset.Quantity, patch.Quantity)
	if patch.TargetPercentage != nil {
		asset.TargetPercentage = clampPercent(*patch.TargetPercentage)
	}
	if patch.Action != nil && patch.Action.Valid() {
		asset.Action = *patch.Action
	}

	if err := s.repo.UpdateAsset(ctx, asset); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update asset values",
			slog.String("method", "UpdateAssetValues"),
			slog.String("assetID", assetID.String()),
			slog.Any("error", err))
		return nil, err
	}
	return asset, nil
}

func (s *PortfolioService) DeleteAsset(ctx context.Context, userID, assetID uuid.UUID) error {
	if _, err := s.repo.GetAsset(ctx, assetID, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteAsset(ctx, assetID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete asset",
			slog.String("method", "DeleteAsset"),
			slog.String("assetID", assetID.String()),
			slog.Any("error", err))
		return err
	}
	return nil
}

// GetReport builds the allocation report over the user's sections.
func (s *PortfolioService) GetReport(ctx context.Context, userID uuid.UUID) (*report.Report, error) {
	ctx, span := otel.Tracer("PortfolioService").Start(ctx, "GetReport")
	defer span.End()

	sections, err := s.ListSections(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	return report.Build(sections), nil
}

func inPercentRange(v decimal.Decimal) bool {
	return !v.IsNegative() && v.LessThanOrEqual(hundred)
}

func checkValues(values ...decimal.Decimal) error {
	for _, v := range values {
		if v.IsNegative() {
			return fmt.Errorf("%w: prices and quantity must be zero or positive", common.ErrBadRequest)
		}
	}
	return nil
}

func applyNonNegative(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil && !v.IsNegative() {
		*dst = *v
	}
}

func clampPercent(v decimal.Decimal) decimal.Decimal {
	switch {
	case v.IsNegative():
		return decimal.Zero
	case v.GreaterThan(hundred):
		return hundred
	}
	return v
}
