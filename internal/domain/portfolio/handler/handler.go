package handler

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/report"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/portfolio/service"
	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/interceptors"
)

const (
	ServiceName = "portfolio.v1.PortfolioService"

	ListSectionsProcedure      = "/" + ServiceName + "/ListSections"
	SaveSectionsProcedure      = "/" + ServiceName + "/SaveSections"
	CreateAssetProcedure       = "/" + ServiceName + "/CreateAsset"
	UpdateAssetsBulkProcedure  = "/" + ServiceName + "/UpdateAssetsBulk"
	UpdateAssetValuesProcedure = "/" + ServiceName + "/UpdateAssetValues"
	DeleteAssetProcedure       = "/" + ServiceName + "/DeleteAsset"
	GetReportProcedure         = "/" + ServiceName + "/GetReport"
)

type ListSectionsRequest struct{}

type SectionsResponse struct {
	Sections []common.Section `json:"sections"`
}

type SaveSectionsRequest struct {
	Sections []service.SectionInput `json:"sections"`
}

type CreateAssetRequest struct {
	Asset service.CreateAssetInput `json:"asset"`
}

type AssetResponse struct {
	Asset *common.Asset `json:"asset"`
}

type UpdateAssetsBulkRequest struct {
	SectionID string                `json:"sectionId"`
	Assets    []service.AssetValues `json:"assets"`
}

type UpdateAssetValuesRequest struct {
	AssetID string             `json:"assetId"`
	Values  service.AssetPatch `json:"values"`
}

type DeleteAssetRequest struct {
	AssetID string `json:"assetId"`
}

type EmptyResponse struct{}

type GetReportRequest struct{}

type GetReportResponse struct {
	Report *report.Report `json:"report"`
}

// PortfolioHandler implements the PortfolioService procedures.
type PortfolioHandler struct {
	svc *service.PortfolioService
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(svc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{svc: svc}
}

// Routes mounts every procedure on mux.
func (h *PortfolioHandler) Routes(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(ListSectionsProcedure, connect.NewUnaryHandler(ListSectionsProcedure, h.ListSections, opts...))
	mux.Handle(SaveSectionsProcedure, connect.NewUnaryHandler(SaveSectionsProcedure, h.SaveSections, opts...))
	mux.Handle(CreateAssetProcedure, connect.NewUnaryHandler(CreateAssetProcedure, h.CreateAsset, opts...))
	mux.Handle(UpdateAssetsBulkProcedure, connect.NewUnaryHandler(UpdateAssetsBulkProcedure, h.UpdateAssetsBulk, opts...))
	mux.Handle(UpdateAssetValuesProcedure, connect.NewUnaryHandler(UpdateAssetValuesProcedure, h.UpdateAssetValues, opts...))
	mux.Handle(DeleteAssetProcedure, connect.NewUnaryHandler(DeleteAssetProcedure, h.DeleteAsset, opts...))
	mux.Handle(GetReportProcedure, connect.NewUnaryHandler(GetReportProcedure, h.GetReport, opts...))
}

func (h *PortfolioHandler) ListSections(
	ctx context.Context,
	_ *connect.Request[ListSectionsRequest],
) (*connect.Response[SectionsResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := h.svc.ListSections(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SectionsResponse{Sections: sections}), nil
}

func (h *PortfolioHandler) SaveSections(
	ctx context.Context,
	req *connect.Request[SaveSectionsRequest],
) (*connect.Response[SectionsResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := h.svc.SaveSections(ctx, userID, req.Msg.Sections)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SectionsResponse{Sections: sections}), nil
}

func (h *PortfolioHandler) CreateAsset(
	ctx context.Context,
	req *connect.Request[CreateAssetRequest],
) (*connect.Response[AssetResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	asset, err := h.svc.CreateAsset(ctx, userID, req.Msg.Asset)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AssetResponse{Asset: asset}), nil
}

func (h *PortfolioHandler) UpdateAssetsBulk(
	ctx context.Context,
	req *connect.Request[UpdateAssetsBulkRequest],
) (*connect.Response[EmptyResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sectionID, err := uuid.Parse(req.Msg.SectionID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid section_id"))
	}
	if err := h.svc.UpdateAssetsBulk(ctx, userID, sectionID, req.Msg.Assets); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EmptyResponse{}), nil
}

func (h *PortfolioHandler) UpdateAssetValues(
	ctx context.Context,
	req *connect.Request[UpdateAssetValuesRequest],
) (*connect.Response[AssetResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	assetID, err := uuid.Parse(req.Msg.AssetID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid asset_id"))
	}
	asset, err := h.svc.UpdateAssetValues(ctx, userID, assetID, req.Msg.Values)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AssetResponse{Asset: asset}), nil
}

func (h *PortfolioHandler) DeleteAsset(
	ctx context.Context,
	req *connect.Request[DeleteAssetRequest],
) (*connect.Response[EmptyResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	assetID, err := uuid.Parse(req.Msg.AssetID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid asset_id"))
	}
	if err := h.svc.DeleteAsset(ctx, userID, assetID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&EmptyResponse{}), nil
}

func (h *PortfolioHandler) GetReport(
	ctx context.Context,
	_ *connect.Request[GetReportRequest],
) (*connect.Response[GetReportResponse], error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	r, err := h.svc.GetReport(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetReportResponse{Report: r}), nil
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
	case errors.Is(err, common.ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, common.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, common.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
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
