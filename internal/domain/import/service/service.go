// Package service provides the strategy import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/errs"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/modules"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/observability"
)

const (
	defaultMaxRows      = 200
	defaultMaxFileBytes = 10 << 20
	defaultJobListLimit = 20
)

// Config tunes import limits and the normalization pass.
type Config struct {
	MaxFileBytes     int64
	MaxRows          int
	RescaleFractions bool
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxFileBytes:     defaultMaxFileBytes,
		MaxRows:          defaultMaxRows,
		RescaleFractions: true,
	}
}

// ModuleDescriptor describes a strategy module to clients.
type ModuleDescriptor struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Extensions []string `json:"supportedExtensions"`
	Options    []string `json:"acceptedOptions"`
}

// Preview is the outcome of parsing a file without storing anything.
// Rows hold the percentages as extracted; Normalized holds the same rows
// after the normalization pass an import would apply, and Total and Warning
// describe those normalized rows.
type Preview struct {
	ModuleID   string             `json:"moduleId"`
	Rows       []common.ParsedRow `json:"rows"`
	Normalized []common.ParsedRow `json:"normalizedRows"`
	Dropped    int                `json:"dropped"`
	Total      decimal.Decimal    `json:"total"`
	Warning    string             `json:"warning,omitempty"`
}

// ImportRequest carries reviewed rows into a section.
type ImportRequest struct {
	SectionID uuid.UUID
	AssetType string
	ModuleID  string // optional, recorded on the job
	Rows      []common.ParsedRow
}

// ImportResult summarizes a finished import.
type ImportResult struct {
	JobID    uuid.UUID       `json:"jobId"`
	Imported int             `json:"imported"`
	Total    decimal.Decimal `json:"total"`
	Warning  string          `json:"warning,omitempty"`
}

// ImportService orchestrates strategy parsing and import operations
type ImportService struct {
	repo   repository.ImportRepository
	logger *slog.Logger
	cfg    Config
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, logger *slog.Logger, cfg Config) *ImportService {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = defaultMaxFileBytes
	}
	return &ImportService{
		repo:   repo,
		logger: logger,
		cfg:    cfg,
	}
}

// ListModules returns the registered strategy modules in registry order.
func (s *ImportService) ListModules() []ModuleDescriptor {
	list := modules.List()
	out := make([]ModuleDescriptor, 0, len(list))
	for _, m := range list {
		opts := make([]string, 0, len(m.AcceptedOptions))
		for _, o := range m.AcceptedOptions {
			opts = append(opts, string(o))
		}
		out = append(out, ModuleDescriptor{
			ID:         string(m.ID),
			Name:       m.Name,
			Extensions: append([]string(nil), m.SupportedExtensions...),
			Options:    opts,
		})
	}
	return out
}

// ParseStrategy runs a module over an uploaded file and previews the rows.
// Nothing is persisted.
func (s *ImportService) ParseStrategy(ctx context.Context, userID uuid.UUID, moduleID string, file modules.File, opts modules.Options) (*Preview, error) {
	ctx, span := otel.Tracer("StrategyImportService").Start(ctx, "ParseStrategy", trace.WithAttributes(
		attribute.String("import.module", moduleID),
		attribute.String("import.file_name", file.Name),
		attribute.Int("import.file_bytes", len(file.Data)),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "ParseStrategy"),
		slog.String("userID", userID.String()),
		slog.String("module", moduleID),
		slog.String("file", file.Name),
	)
	l.DebugContext(ctx, "Parsing strategy file")

	module, ok := modules.Lookup(moduleID)
	if !ok {
		span.SetStatus(codes.Error, "unknown module")
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownModule, moduleID)
	}
	if int64(len(file.Data)) > s.cfg.MaxFileBytes {
		observability.RecordExtraction(moduleID, resultLabel(errs.ErrFileTooLarge), 0)
		span.SetStatus(codes.Error, "file too large")
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", errs.ErrFileTooLarge, len(file.Data), s.cfg.MaxFileBytes)
	}

	extraction, err := module.Extract(ctx, file, opts)
	observability.RecordExtraction(moduleID, resultLabel(err), len(extraction.Rows))
	if err != nil {
		if errors.Is(err, errs.ErrMalformedInput) {
			l.ErrorContext(ctx, "Strategy file could not be decoded", slog.Any("error", err))
		} else {
			l.InfoContext(ctx, "Strategy extraction rejected", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return nil, err
	}

	normalized := normalizer.NormalizeRows(extraction.Rows, s.normalizeOptions())
	span.SetAttributes(
		attribute.Int("import.rows", len(extraction.Rows)),
		attribute.Int("import.dropped", extraction.Dropped),
	)
	span.SetStatus(codes.Ok, "parsed")
	l.InfoContext(ctx, "Strategy file parsed",
		slog.Int("rows", len(extraction.Rows)),
		slog.Int("dropped", extraction.Dropped))

	return &Preview{
		ModuleID:   moduleID,
		Rows:       extraction.Rows,
		Normalized: normalized.Rows,
		Dropped:    extraction.Dropped,
		Total:      normalized.Total,
		Warning:    normalized.Warning,
	}, nil
}

// ImportStrategy validates reviewed rows, normalizes their percentages and
// creates one asset per row in the section.
func (s *ImportService) ImportStrategy(ctx context.Context, userID uuid.UUID, req ImportRequest) (*ImportResult, error) {
	ctx, span := otel.Tracer("StrategyImportService").Start(ctx, "ImportStrategy", trace.WithAttributes(
		attribute.String("import.section_id", req.SectionID.String()),
		attribute.Int("import.rows", len(req.Rows)),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "ImportStrategy"),
		slog.String("userID", userID.String()),
		slog.String("sectionID", req.SectionID.String()),
	)
	l.DebugContext(ctx, "Importing strategy rows")

	if err := s.validateImport(req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	owned, err := s.repo.SectionOwnedBy(ctx, req.SectionID, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check section ownership", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "ownership check failed")
		return nil, err
	}
	if !owned {
		span.SetStatus(codes.Error, "section not found")
		return nil, fmt.Errorf("section not found: %w", common.ErrNotFound)
	}

	normalized := normalizer.NormalizeRows(req.Rows, s.normalizeOptions())
	assetType := strings.TrimSpace(req.AssetType)

	drafts := make([]repository.AssetDraft, 0, len(normalized.Rows))
	for _, r := range normalized.Rows {
		action := r.Action
		if !action.Valid() {
			action = common.ActionBuy
		}
		asset := strings.TrimSpace(r.Asset)
		drafts = append(drafts, repository.AssetDraft{
			Name:             asset,
			Ticker:           asset,
			Type:             assetType,
			TargetPercentage: decimal.NewFromFloat(r.Percentage),
			Action:           action,
		})
	}

	job := &repository.ImportJob{
		UserID:    userID,
		SectionID: req.SectionID,
		AssetType: assetType,
		Status:    repository.JobStatusRunning,
		RowsTotal: len(drafts),
	}
	if req.ModuleID != "" {
		job.ModuleID = &req.ModuleID
	}
	if err := s.repo.CreateImportJob(ctx, job); err != nil {
		l.ErrorContext(ctx, "Failed to create import job", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "job creation failed")
		return nil, err
	}

	var warning *string
	if normalized.Warning != "" {
		warning = &normalized.Warning
	}

	imported, err := s.repo.InsertAssets(ctx, req.SectionID, drafts)
	if err != nil {
		errMsg := err.Error()
		if finishErr := s.repo.FinishImportJob(ctx, job.ID, repository.JobStatusFailed, 0, normalized.Total, warning, &errMsg); finishErr != nil {
			l.WarnContext(ctx, "Failed to finish import job", slog.Any("error", finishErr))
		}
		l.ErrorContext(ctx, "Failed to insert imported assets", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to import assets: %w", err)
	}

	if err := s.repo.FinishImportJob(ctx, job.ID, repository.JobStatusSucceeded, imported, normalized.Total, warning, nil); err != nil {
		l.WarnContext(ctx, "Failed to finish import job", slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "imported")
	l.InfoContext(ctx, "Strategy imported",
		slog.Int("imported", imported),
		slog.String("total", normalized.Total.String()))

	return &ImportResult{
		JobID:    job.ID,
		Imported: imported,
		Total:    normalized.Total,
		Warning:  normalized.Warning,
	}, nil
}

// ListImportJobs returns the user's recent import jobs, newest first.
func (s *ImportService) ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*repository.ImportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultJobListLimit
	}
	jobs, err := s.repo.ListImportJobs(ctx, userID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list import jobs",
			slog.String("method", "ListImportJobs"), slog.Any("error", err))
		return nil, err
	}
	return jobs, nil
}

func (s *ImportService) validateImport(req ImportRequest) error {
	if req.SectionID == uuid.Nil {
		return fmt.Errorf("%w: section is required", common.ErrBadRequest)
	}
	if strings.TrimSpace(req.AssetType) == "" {
		return fmt.Errorf("%w: asset type is required", common.ErrBadRequest)
	}
	if len(req.Rows) == 0 {
		return fmt.Errorf("%w: at least one row is required", common.ErrBadRequest)
	}
	if len(req.Rows) > s.cfg.MaxRows {
		return fmt.Errorf("%w: at most %d rows can be imported at once", common.ErrBadRequest, s.cfg.MaxRows)
	}
	for i, r := range req.Rows {
		if strings.TrimSpace(r.Asset) == "" {
			return fmt.Errorf("%w: row %d has no asset", common.ErrBadRequest, i+1)
		}
		if math.IsNaN(r.Percentage) || r.Percentage < 0 || r.Percentage > 100 {
			return fmt.Errorf("%w: row %d percentage must be between 0 and 100", common.ErrBadRequest, i+1)
		}
		if r.Action != "" && !r.Action.Valid() {
			return fmt.Errorf("%w: row %d has unknown action %q", common.ErrBadRequest, i+1, r.Action)
		}
	}
	return nil
}

func (s *ImportService) normalizeOptions() normalizer.Options {
	return normalizer.Options{RescaleFractions: s.cfg.RescaleFractions}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, errs.ErrInvalidOptions):
		return "invalid_options"
	case errors.Is(err, errs.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, errs.ErrNoExtractableRows):
		return "no_rows"
	case errors.Is(err, errs.ErrMalformedInput):
		return "malformed"
	default:
		return "error"
	}
}
