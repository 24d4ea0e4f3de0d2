// Package handler exposes line management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/audit"
	"lingkod/internal/lines/models"
	linesservice "lingkod/internal/lines/service"
	"lingkod/internal/platform/middleware"
	"lingkod/internal/transport/http/shared"
	dErrors "lingkod/pkg/domain-errors"
)

type Service interface {
	CreateLine(ctx context.Context, cmd models.NewLine, actor audit.Actor) (*linesservice.LineCreated, error)
	GetLine(ctx context.Context, id string) (*models.Line, error)
}

type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(service Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{service: service, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	linesRouter := chi.NewRouter()
	linesRouter.Use(middleware.Timeout(30 * time.Second))
	linesRouter.Use(middleware.ContentTypeJSON)
	linesRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	linesRouter.Post("/", h.handleCreateLine)
	linesRouter.Get("/{id}", h.handleGetLine)

	r.Mount("/lines", linesRouter)
}

type createLineRequest struct {
	Name             string `json:"name"`
	RegionCode       string `json:"region_code"`
	ProvinceCode     string `json:"province_code"`
	MunicipalityCode string `json:"municipality_code"`
	BarangayCode     string `json:"barangay_code"`
	AdminEmail       string `json:"admin_email"`
}

type createLineResponse struct {
	LineID          string   `json:"line_id"`
	InvitationURL   string   `json:"invitation_url"`
	PartialFailures []string `json:"partial_failures,omitempty"`
}

func (h *Handler) handleCreateLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.service.CreateLine(ctx, models.NewLine{
		Name:             req.Name,
		RegionCode:       req.RegionCode,
		ProvinceCode:     req.ProvinceCode,
		MunicipalityCode: req.MunicipalityCode,
		BarangayCode:     req.BarangayCode,
		AdminEmail:       req.AdminEmail,
	}, audit.Actor{
		ID:        middleware.GetActorID(ctx),
		LineID:    middleware.GetLineID(ctx),
		RequestID: middleware.GetRequestID(ctx),
		Device:    middleware.GetDevice(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "line creation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if len(created.PartialFailures) > 0 {
		status = http.StatusAccepted
	}
	shared.WriteJSON(w, status, createLineResponse{
		LineID:          created.Line.ID,
		InvitationURL:   created.Invitation.URL,
		PartialFailures: created.PartialFailures,
	})
}

type lineResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	RegionCode       string    `json:"region_code"`
	ProvinceCode     string    `json:"province_code"`
	MunicipalityCode string    `json:"municipality_code"`
	BarangayCode     string    `json:"barangay_code"`
	CreatedAt        time.Time `json:"created_at"`
}

func (h *Handler) handleGetLine(w http.ResponseWriter, r *http.Request) {
	line, err := h.service.GetLine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, lineResponse{
		ID:               line.ID,
		Name:             line.Name,
		RegionCode:       line.RegionCode,
		ProvinceCode:     line.ProvinceCode,
		MunicipalityCode: line.MunicipalityCode,
		BarangayCode:     line.BarangayCode,
		CreatedAt:        line.CreatedAt,
	})
}
