// Package repository provides data access for strategy imports.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

// Import job statuses.
const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// ImportJob tracks one strategy import into a section.
type ImportJob struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	SectionID       uuid.UUID       `db:"section_id"`
	ModuleID        *string         `db:"module_id"` // NULL when rows were posted directly
	AssetType       string          `db:"asset_type"`
	Status          string          `db:"status"`
	RowsTotal       int             `db:"rows_total"`
	RowsImported    int             `db:"rows_imported"`
	TotalPercentage decimal.Decimal `db:"total_percentage"`
	Warning         *string         `db:"warning"`
	ErrorMessage    *string         `db:"error_message"`
	RequestedAt     time.Time       `db:"requested_at"`
	FinishedAt      *time.Time      `db:"finished_at"`
}

// AssetDraft is a normalized row ready to become an asset.
type AssetDraft struct {
	Name             string
	Ticker           string
	Type             string
	TargetPercentage decimal.Decimal
	Action           common.Action
}

// ImportRepository defines data access operations for strategy imports
type ImportRepository interface {
	// SectionOwnedBy reports whether the section exists and belongs to the user.
	SectionOwnedBy(ctx context.Context, sectionID, userID uuid.UUID) (bool, error)

	CreateImportJob(ctx context.Context, job *ImportJob) error
	FinishImportJob(ctx context.Context, id uuid.UUID, status string, rowsImported int, total decimal.Decimal, warning, errorMessage *string) error
	ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error)

	// InsertAssets creates every draft in one transaction and returns how many
	// were written. Either all rows are stored or none.
	InsertAssets(ctx context.Context, sectionID uuid.UUID, assets []AssetDraft) (int, error)
}
