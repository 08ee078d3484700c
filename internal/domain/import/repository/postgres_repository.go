package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ PgxPool          = (*pgxpool.Pool)(nil)
	_ ImportRepository = (*PostgresImportRepository)(nil)
)

const (
	sectionOwnedByQuery = `SELECT EXISTS (SELECT 1 FROM sections WHERE id = $1 AND user_id = $2)`

	createImportJobQuery = `
		INSERT INTO strategy_import_jobs (id, user_id, section_id, module_id, asset_type, status, rows_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING requested_at`

	finishImportJobQuery = `
		UPDATE strategy_import_jobs SET
			status = $2, rows_imported = $3, total_percentage = $4,
			warning = $5, error_message = $6, finished_at = NOW()
		WHERE id = $1`

	listImportJobsQuery = `
		SELECT id, user_id, section_id, module_id, asset_type, status, rows_total, rows_imported,
		       total_percentage, warning, error_message, requested_at, finished_at
		FROM strategy_import_jobs
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2`

	insertAssetQuery = `
		INSERT INTO assets (
			id, section_id, name, ticker, type, target_percentage,
			price_unit, average_price, ceiling_price, fair_price, quantity, action
		) VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, 0, 0, $7)`
)

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	pgpool PgxPool
	logger *slog.Logger
}

// NewPostgresImportRepository creates a new PostgreSQL-backed import repository
func NewPostgresImportRepository(pgpool PgxPool, logger *slog.Logger) *PostgresImportRepository {
	return &PostgresImportRepository{pgpool: pgpool, logger: logger}
}

// SectionOwnedBy checks the section belongs to the user.
func (r *PostgresImportRepository) SectionOwnedBy(ctx context.Context, sectionID, userID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("ImportRepo").Start(ctx, "SectionOwnedBy", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "sections"),
	))
	defer span.End()

	var owned bool
	if err := r.pgpool.QueryRow(ctx, sectionOwnedByQuery, sectionID, userID).Scan(&owned); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("failed to check section ownership: %w", err)
	}
	return owned, nil
}

// CreateImportJob inserts a job row in the running state.
func (r *PostgresImportRepository) CreateImportJob(ctx context.Context, job *ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobStatusRunning
	}

	err := r.pgpool.QueryRow(ctx, createImportJobQuery,
		job.ID, job.UserID, job.SectionID, job.ModuleID, job.AssetType, job.Status, job.RowsTotal,
	).Scan(&job.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

// FinishImportJob records the outcome of an import.
func (r *PostgresImportRepository) FinishImportJob(ctx context.Context, id uuid.UUID, status string, rowsImported int, total decimal.Decimal, warning, errorMessage *string) error {
	_, err := r.pgpool.Exec(ctx, finishImportJobQuery, id, status, rowsImported, total, warning, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish import job: %w", err)
	}
	return nil
}

// ListImportJobs returns the user's most recent jobs first.
func (r *PostgresImportRepository) ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error) {
	rows, err := r.pgpool.Query(ctx, listImportJobsQuery, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}

	jobs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[ImportJob])
	if err != nil {
		return nil, fmt.Errorf("failed to scan import jobs: %w", err)
	}
	return jobs, nil
}

// InsertAssets writes the drafts inside a single transaction.
func (r *PostgresImportRepository) InsertAssets(ctx context.Context, sectionID uuid.UUID, assets []AssetDraft) (int, error) {
	if len(assets) == 0 {
		return 0, nil
	}

	ctx, span := otel.Tracer("ImportRepo").Start(ctx, "InsertAssets", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "assets"),
		attribute.Int("db.rows", len(assets)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "InsertAssets"), slog.String("sectionID", sectionID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB transaction failed")
		return 0, fmt.Errorf("database error beginning transaction: %w", err)
	}

	for i, a := range assets {
		if _, err := tx.Exec(ctx, insertAssetQuery,
			uuid.New(), sectionID, a.Name, a.Ticker, a.Type, a.TargetPercentage, string(a.Action),
		); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				l.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("error", rbErr))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB INSERT failed")
			return 0, fmt.Errorf("failed to insert asset %d (%s): %w", i+1, a.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB commit failed")
		return 0, fmt.Errorf("failed to commit asset import: %w", err)
	}

	span.SetStatus(codes.Ok, "Assets imported")
	return len(assets), nil
}
