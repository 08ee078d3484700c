package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ PgxPool             = (*pgxpool.Pool)(nil)
	_ PortfolioRepository = (*PostgresPortfolioRepository)(nil)
)

const assetColumns = `a.id, a.section_id, a.name, a.ticker, a.type, a.description, a.target_percentage,
		       a.price_unit, a.average_price, a.ceiling_price, a.fair_price, a.quantity, a.action,
		       a.created_at, a.updated_at`

const (
	listSectionsQuery = `
		SELECT id, user_id, name, target_percentage, created_at, updated_at
		FROM sections
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	listUserAssetsQuery = `
		SELECT ` + assetColumns + `
		FROM assets a
		JOIN sections s ON s.id = a.section_id
		WHERE s.user_id = $1
		ORDER BY a.created_at ASC, a.id ASC`

	lockUserSectionsQuery = `SELECT id FROM sections WHERE user_id = $1 FOR UPDATE`

	deleteSectionAssetsQuery = `DELETE FROM assets WHERE section_id = ANY($1::uuid[])`

	deleteSectionsQuery = `DELETE FROM sections WHERE id = ANY($1::uuid[]) AND user_id = $2`

	updateSectionQuery = `
		UPDATE sections SET name = $3, target_percentage = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`

	insertSectionQuery = `
		INSERT INTO sections (id, user_id, name, target_percentage)
		VALUES ($1, $2, $3, $4)`

	sectionOwnedByQuery = `SELECT EXISTS (SELECT 1 FROM sections WHERE id = $1 AND user_id = $2)`

	sectionAssetIDsQuery = `SELECT id FROM assets WHERE section_id = $1`

	tickerExistsQuery = `SELECT EXISTS (SELECT 1 FROM assets WHERE section_id = $1 AND LOWER(ticker) = LOWER($2))`

	insertAssetQuery = `
		INSERT INTO assets (
			id, section_id, name, ticker, type, description, target_percentage,
			price_unit, average_price, ceiling_price, fair_price, quantity, action
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	getAssetQuery = `
		SELECT ` + assetColumns + `
		FROM assets a
		JOIN sections s ON s.id = a.section_id
		WHERE a.id = $1 AND s.user_id = $2`

	updateAssetValuesQuery = `
		UPDATE assets SET
			price_unit = $2, average_price = $3, ceiling_price = $4, fair_price = $5,
			quantity = $6, target_percentage = $7, action = $8, updated_at = NOW()
		WHERE id = $1`

	deleteAssetQuery = `DELETE FROM assets WHERE id = $1`
)

// PostgresPortfolioRepository implements PortfolioRepository using PostgreSQL
type PostgresPortfolioRepository struct {
	pgpool PgxPool
	logger *slog.Logger
}

// NewPostgresPortfolioRepository creates a new PostgreSQL-backed portfolio repository
func NewPostgresPortfolioRepository(pgpool PgxPool, logger *slog.Logger) *PostgresPortfolioRepository {
	return &PostgresPortfolioRepository{pgpool: pgpool, logger: logger}
}

func startSpan(ctx context.Context, name, operation, table string) (context.Context, trace.Span) {
	return otel.Tracer("PortfolioRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	))
}

// ListSections fetches sections and their assets with two queries.
func (r *PostgresPortfolioRepository) ListSections(ctx context.Context, userID uuid.UUID) ([]common.Section, error) {
	ctx, span := startSpan(ctx, "ListSections", "SELECT", "sections")
	defer span.End()

	rows, err := r.pgpool.Query(ctx, listSectionsQuery, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	sections, err := pgx.CollectRows(rows, pgx.RowToStructByName[common.Section])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, fmt.Errorf("failed to scan sections: %w", err)
	}
	if len(sections) == 0 {
		return sections, nil
	}

	rows, err = r.pgpool.Query(ctx, listUserAssetsQuery, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	assets, err := pgx.CollectRows(rows, pgx.RowToStructByName[common.Asset])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, fmt.Errorf("failed to scan assets: %w", err)
	}

	index := make(map[uuid.UUID]int, len(sections))
	for i := range sections {
		index[sections[i].ID] = i
		sections[i].Assets = []common.Asset{}
	}
	for _, a := range assets {
		if i, ok := index[a.SectionID]; ok {
			sections[i].Assets = append(sections[i].Assets, a)
		}
	}

	span.SetAttributes(attribute.Int("sections.count", len(sections)), attribute.Int("assets.count", len(assets)))
	return sections, nil
}

// ReplaceSections implements the save-all semantics of the section editor.
func (r *PostgresPortfolioRepository) ReplaceSections(ctx context.Context, userID uuid.UUID, sections []common.Section) error {
	ctx, span := startSpan(ctx, "ReplaceSections", "UPSERT", "sections")
	defer span.End()

	l := r.logger.With(slog.String("method", "ReplaceSections"), slog.String("userID", userID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	rows, err := tx.Query(ctx, lockUserSectionsQuery, userID)
	if err != nil {
		_ = tx.Rollback(ctx)
		span.RecordError(err)
		return fmt.Errorf("failed to load sections: %w", err)
	}
	existingIDs, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		_ = tx.Rollback(ctx)
		span.RecordError(err)
		return fmt.Errorf("failed to scan sections: %w", err)
	}

	existing := make(map[uuid.UUID]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}
	incoming := make(map[uuid.UUID]bool, len(sections))
	for _, s := range sections {
		if s.ID != uuid.Nil {
			incoming[s.ID] = true
		}
	}

	var stale []string
	for _, id := range existingIDs {
		if !incoming[id] {
			stale = append(stale, id.String())
		}
	}

	if len(stale) > 0 {
		if _, err := tx.Exec(ctx, deleteSectionAssetsQuery, stale); err != nil {
			_ = tx.Rollback(ctx)
			span.RecordError(err)
			return fmt.Errorf("failed to delete section assets: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteSectionsQuery, stale, userID); err != nil {
			_ = tx.Rollback(ctx)
			span.RecordError(err)
			return fmt.Errorf("failed to delete sections: %w", err)
		}
	}

	for _, s := range sections {
		if s.ID != uuid.Nil && existing[s.ID] {
			if _, err := tx.Exec(ctx, updateSectionQuery, s.ID, userID, s.Name, s.TargetPercentage); err != nil {
				_ = tx.Rollback(ctx)
				span.RecordError(err)
				return fmt.Errorf("failed to update section %q: %w", s.Name, err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, insertSectionQuery, uuid.New(), userID, s.Name, s.TargetPercentage); err != nil {
			_ = tx.Rollback(ctx)
			span.RecordError(err)
			return fmt.Errorf("failed to create section %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return fmt.Errorf("failed to commit sections: %w", err)
	}

	l.InfoContext(ctx, "Sections saved", slog.Int("saved", len(sections)), slog.Int("deleted", len(stale)))
	return nil
}

// SectionOwnedBy checks the section belongs to the user.
func (r *PostgresPortfolioRepository) SectionOwnedBy(ctx context.Context, sectionID, userID uuid.UUID) (bool, error) {
	var owned bool
	if err := r.pgpool.QueryRow(ctx, sectionOwnedByQuery, sectionID, userID).Scan(&owned); err != nil {
		return false, fmt.Errorf("failed to check section ownership: %w", err)
	}
	return owned, nil
}

func (r *PostgresPortfolioRepository) SectionAssetIDs(ctx context.Context, sectionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pgpool.Query(ctx, sectionAssetIDsQuery, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list section assets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset ids: %w", err)
	}
	return ids, nil
}

// TickerExists compares tickers case-insensitively.
func (r *PostgresPortfolioRepository) TickerExists(ctx context.Context, sectionID uuid.UUID, ticker string) (bool, error) {
	var exists bool
	if err := r.pgpool.QueryRow(ctx, tickerExistsQuery, sectionID, ticker).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ticker: %w", err)
	}
	return exists, nil
}

func (r *PostgresPortfolioRepository) CreateAsset(ctx context.Context, asset *common.Asset) error {
	ctx, span := startSpan(ctx, "CreateAsset", "INSERT", "assets")
	defer span.End()

	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	err := r.pgpool.QueryRow(ctx, insertAssetQuery,
		asset.ID, asset.SectionID, asset.Name, asset.Ticker, asset.Type, asset.Description,
		asset.TargetPercentage, asset.PriceUnit, asset.AveragePrice, asset.CeilingPrice,
		asset.FairPrice, asset.Quantity, string(asset.Action),
	).Scan(&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

func (r *PostgresPortfolioRepository) GetAsset(ctx context.Context, assetID, userID uuid.UUID) (*common.Asset, error) {
	rows, err := r.pgpool.Query(ctx, getAssetQuery, assetID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	asset, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[common.Asset])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", assetID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	return asset, nil
}

// UpdateAsset writes the editable values of one asset.
func (r *PostgresPortfolioRepository) UpdateAsset(ctx context.Context, asset *common.Asset) error {
	tag, err := r.pgpool.Exec(ctx, updateAssetValuesQuery, updateArgs(asset)...)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %s: %w", asset.ID, common.ErrNotFound)
	}
	return nil
}

// UpdateAssets writes the editable values of several assets in one transaction.
func (r *PostgresPortfolioRepository) UpdateAssets(ctx context.Context, assets []common.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	ctx, span := startSpan(ctx, "UpdateAssets", "UPDATE", "assets")
	defer span.End()
	span.SetAttributes(attribute.Int("assets.count", len(assets)))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for i := range assets {
		if _, err := tx.Exec(ctx, updateAssetValuesQuery, updateArgs(&assets[i])...); err != nil {
			_ = tx.Rollback(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB update failed")
			return fmt.Errorf("failed to update asset %s: %w", assets[i].ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit asset updates: %w", err)
	}
	return nil
}

func (r *PostgresPortfolioRepository) DeleteAsset(ctx context.Context, assetID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, deleteAssetQuery, assetID)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %s: %w", assetID, common.ErrNotFound)
	}
	return nil
}

func updateArgs(a *common.Asset) []any {
	return []any{
		a.ID, a.PriceUnit, a.AveragePrice, a.CeilingPrice, a.FairPrice,
		a.Quantity, a.TargetPercentage, string(a.Action),
	}
}
