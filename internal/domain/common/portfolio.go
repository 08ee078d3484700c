package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxSections is the number of portfolio sections a user may keep.
const MaxSections = 4

// Section is a top-level portfolio bucket with a target allocation.
type Section struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserID           uuid.UUID       `json:"user_id" db:"user_id"`
	Name             string          `json:"name" db:"name"`
	TargetPercentage decimal.Decimal `json:"target_percentage" db:"target_percentage"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	Assets           []Asset         `json:"assets,omitempty" db:"-"`
}

// Asset is a holding registered inside a section.
type Asset struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	SectionID        uuid.UUID       `json:"section_id" db:"section_id"`
	Name             string          `json:"name" db:"name"`
	Ticker           string          `json:"ticker" db:"ticker"`
	Type             string          `json:"type" db:"type"`
	Description      *string         `json:"description,omitempty" db:"description"`
	TargetPercentage decimal.Decimal `json:"target_percentage" db:"target_percentage"`
	PriceUnit        decimal.Decimal `json:"price_unit" db:"price_unit"`
	AveragePrice     decimal.Decimal `json:"average_price" db:"average_price"`
	CeilingPrice     decimal.Decimal `json:"ceiling_price" db:"ceiling_price"`
	FairPrice        decimal.Decimal `json:"fair_price" db:"fair_price"`
	Quantity         decimal.Decimal `json:"quantity" db:"quantity"`
	Action           Action          `json:"action" db:"action"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}
