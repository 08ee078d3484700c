// Package repository provides data access for portfolio sections and assets.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

// PortfolioRepository defines the data access operations for sections and assets.
type PortfolioRepository interface {
	// ListSections returns the user's sections oldest first, each with its assets.
	ListSections(ctx context.Context, userID uuid.UUID) ([]common.Section, error)
	// ReplaceSections makes the stored sections match the given set in one
	// transaction. Sections absent from the set are deleted with their assets;
	// sections with an unknown or nil ID are created.
	ReplaceSections(ctx context.Context, userID uuid.UUID, sections []common.Section) error

	SectionOwnedBy(ctx context.Context, sectionID, userID uuid.UUID) (bool, error)
	SectionAssetIDs(ctx context.Context, sectionID uuid.UUID) ([]uuid.UUID, error)
	TickerExists(ctx context.Context, sectionID uuid.UUID, ticker string) (bool, error)

	CreateAsset(ctx context.Context, asset *common.Asset) error
	// GetAsset returns common.ErrNotFound when the asset does not exist or
	// belongs to another user.
	GetAsset(ctx context.Context, assetID, userID uuid.UUID) (*common.Asset, error)
	UpdateAsset(ctx context.Context, asset *common.Asset) error
	UpdateAssets(ctx context.Context, assets []common.Asset) error
	DeleteAsset(ctx context.Context, assetID uuid.UUID) error
}
