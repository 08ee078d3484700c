package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/errs"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/modules"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/interceptors"
)

const (
	ServiceName = "portfolio.v1.StrategyImportService"

	ListModulesProcedure    = "/" + ServiceName + "/ListModules"
	ParseStrategyProcedure  = "/" + ServiceName + "/ParseStrategy"
	ImportStrategyProcedure = "/" + ServiceName + "/ImportStrategy"
	ListImportJobsProcedure = "/" + ServiceName + "/ListImportJobs"
)

type ListModulesRequest struct{}

type ListModulesResponse struct {
	Modules []service.ModuleDescriptor `json:"modules"`
}

type ParseStrategyRequest struct {
	ModuleID string          `json:"moduleId"`
	FileName string          `json:"fileName"`
	Content  []byte          `json:"content"`
	Options  modules.Options `json:"options"`
}

type ParseStrategyResponse struct {
	Preview *service.Preview `json:"preview"`
}

type ImportStrategyRequest struct {
	SectionID string             `json:"sectionId"`
	AssetType string             `json:"assetType"`
	ModuleID  string             `json:"moduleId,omitempty"`
	Rows      []common.ParsedRow `json:"rows"`
}

type ImportStrategyResponse struct {
	Result *service.ImportResult `json:"result"`
}

type ListImportJobsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ImportJob struct {
	ID              string          `json:"id"`
	SectionID       string          `json:"sectionId"`
	ModuleID        string          `json:"moduleId,omitempty"`
	AssetType       string          `json:"assetType"`
	Status          string          `json:"status"`
	RowsTotal       int             `json:"rowsTotal"`
	RowsImported    int             `json:"rowsImported"`
	TotalPercentage decimal.Decimal `json:"totalPercentage"`
	Warning         string          `json:"warning,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	RequestedAt     string          `json:"requestedAt"`
	FinishedAt      string          `json:"finishedAt,omitempty"`
}

type ListImportJobsResponse struct {
	Jobs []ImportJob `json:"jobs"`
}

// ImportHandler implements the StrategyImportService procedures.
type ImportHandler struct {
	svc *service.ImportService
}

// NewImportHandler creates a new strategy import handler
func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// Routes mounts every procedure on mux.
func (h *ImportHandler) Routes(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(ListModulesProcedure, connect.NewUnaryHandler(ListModulesProcedure, h.ListModules, opts...))
	mux.Handle(ParseStrategyProcedure, connect.NewUnaryHandler(ParseStrategyProcedure, h.ParseStrategy, opts...))
	mux.Handle(ImportStrategyProcedure, connect.NewUnaryHandler(ImportStrategyProcedure, h.ImportStrategy, opts...))
	mux.Handle(ListImportJobsProcedure, connect.NewUnaryHandler(ListImportJobsProcedure, h.ListImportJobs, opts...))
}

func (h *ImportHandler) ListModules(
	_ context.Context,
	_ *connect.Request[ListModulesRequest],
) (*connect.Response[ListModulesResponse], error) {
	return connect.NewResponse(&ListModulesResponse{Modules: h.svc.ListModules()}), nil
}

func (h *ImportHandler) ParseStrategy(
	ctx context.Context,
	req *connect.Request[ParseStrategyRequest],
) (*connect.Response[ParseStrategyResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.ModuleID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("module_id is required"))
	}
	if req.Msg.FileName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("file_name is required"))
	}

	file := modules.File{Name: req.Msg.FileName, Data: req.Msg.Content}
	preview, err := h.svc.ParseStrategy(ctx, userID, req.Msg.ModuleID, file, req.Msg.Options)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParseStrategyResponse{Preview: preview}), nil
}

func (h *ImportHandler) ImportStrategy(
	ctx context.Context,
	req *connect.Request[ImportStrategyRequest],
) (*connect.Response[ImportStrategyResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sectionID, err := uuid.Parse(req.Msg.SectionID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid section_id"))
	}

	result, err := h.svc.ImportStrategy(ctx, userID, service.ImportRequest{
		SectionID: sectionID,
		AssetType: req.Msg.AssetType,
		ModuleID:  req.Msg.ModuleID,
		Rows:      req.Msg.Rows,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ImportStrategyResponse{Result: result}), nil
}

func (h *ImportHandler) ListImportJobs(
	ctx context.Context,
	req *connect.Request[ListImportJobsRequest],
) (*connect.Response[ListImportJobsResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	jobs, err := h.svc.ListImportJobs(ctx, userID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]ImportJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toImportJob(j))
	}
	return connect.NewResponse(&ListImportJobsResponse{Jobs: out}), nil
}

func toImportJob(j *repository.ImportJob) ImportJob {
	job := ImportJob{
		ID:              j.ID.String(),
		SectionID:       j.SectionID.String(),
		AssetType:       j.AssetType,
		Status:          j.Status,
		RowsTotal:       j.RowsTotal,
		RowsImported:    j.RowsImported,
		TotalPercentage: j.TotalPercentage,
		RequestedAt:     j.RequestedAt.UTC().Format(time.RFC3339),
	}
	if j.ModuleID != nil {
		job.ModuleID = *j.ModuleID
	}
	if j.Warning != nil {
		job.Warning = *j.Warning
	}
	if j.ErrorMessage != nil {
		job.ErrorMessage = *j.ErrorMessage
	}
	if j.FinishedAt != nil {
		job.FinishedAt = j.FinishedAt.UTC().Format(time.RFC3339)
	}
	return job
}

func userIDFromContext(ctx context.Context) (uuid.UUID, error) {
	raw, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || raw == "" {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInternal, errors.New("invalid user ID in context"))
	}
	return id, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, errs.ErrMalformedInput):
		return connect.NewError(connect.CodeInvalidArgument, errs.ErrMalformedInput)
	case errors.Is(err, errs.ErrUnknownModule), errors.Is(err, common.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errs.ErrUnsupportedFormat),
		errors.Is(err, errs.ErrInvalidOptions),
		errors.Is(err, errs.ErrNoExtractableRows),
		errors.Is(err, errs.ErrFileTooLarge),
		errors.Is(err, common.ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, common.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, common.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}
