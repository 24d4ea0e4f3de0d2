// Package handler exposes the HR workflows over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/audit"
	"lingkod/internal/hr/models"
	hrservice "lingkod/internal/hr/service"
	"lingkod/internal/platform/middleware"
	"lingkod/internal/transport/http/shared"
	dErrors "lingkod/pkg/domain-errors"
)

// Service is what the handler needs from the HR domain.
type Service interface {
	SubmitApplication(ctx context.Context, cmd models.Application, actor audit.Actor) (*hrservice.SubmissionReceipt, error)
	GetApplicant(ctx context.Context, id string) (*models.ApplicantView, []string, error)
	ListApplicants(ctx context.Context, lineID, cursor string, limit int) ([]*models.ApplicantView, error)
	PostAnnouncement(ctx context.Context, lineID, title, body string, actor audit.Actor) (*models.Announcement, error)
	ListAnnouncements(ctx context.Context, lineID, cursor string, limit int) ([]*models.Announcement, error)
}

type Handler struct {
	service     Service
	logger      *slog.Logger
	validator   middleware.TokenValidator
	submitLimit func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithSubmissionLimit rate-limits the public application submission route.
func WithSubmissionLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.submitLimit = mw }
}

func New(service Service, logger *slog.Logger, validator middleware.TokenValidator, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger, validator: validator}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the HR routes. Application submission is public (citizens
// apply without accounts); the rest requires an authenticated actor.
func (h *Handler) Register(r chi.Router) {
	hrRouter := chi.NewRouter()
	hrRouter.Use(middleware.Timeout(30 * time.Second))
	hrRouter.Use(middleware.ContentTypeJSON)

	if h.submitLimit != nil {
		hrRouter.With(h.submitLimit).Post("/applications", h.handleSubmitApplication)
	} else {
		hrRouter.Post("/applications", h.handleSubmitApplication)
	}

	hrRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/applicants/{id}", h.handleGetApplicant)
		r.Get("/applicants", h.handleListApplicants)
		r.Post("/announcements", h.handlePostAnnouncement)
		r.Get("/announcements", h.handleListAnnouncements)
	})

	r.Mount("/hr", hrRouter)
}

type piiPayload struct {
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name"`
	LastName     string `json:"last_name"`
	Suffix       string `json:"suffix"`
	BirthDate    string `json:"birth_date"`
	BirthPlace   string `json:"birth_place"`
	Gender       string `json:"gender"`
	CivilStatus  string `json:"civil_status"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	MotherName   string `json:"mother_name"`
	FatherName   string `json:"father_name"`
	GovernmentID string `json:"government_id"`
}

type filePayload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"` // base64 in JSON
}

type submitApplicationRequest struct {
	LineID     string        `json:"line_id"`
	PositionID string        `json:"position_id"`
	Applicant  piiPayload    `json:"applicant"`
	Skills     []string      `json:"skills"`
	Files      []filePayload `json:"files"`
}

type submitApplicationResponse struct {
	ApplicantID     string   `json:"applicant_id"`
	PartialFailures []string `json:"partial_failures,omitempty"`
}

func (h *Handler) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cmd := models.Application{
		LineID:     req.LineID,
		PositionID: req.PositionID,
		PII:        models.PII(req.Applicant),
		Skills:     req.Skills,
	}
	for _, f := range req.Files {
		cmd.Files = append(cmd.Files, models.FileUpload{
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Data:        f.Data,
		})
	}

	receipt, err := h.service.SubmitApplication(ctx, cmd, actorFromContext(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "application submission failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if len(receipt.PartialFailures) > 0 {
		// Committed, but a notification did not go out.
		status = http.StatusAccepted
	}
	shared.WriteJSON(w, status, submitApplicationResponse{
		ApplicantID:     receipt.ApplicantID,
		PartialFailures: receipt.PartialFailures,
	})
}

type applicantResponse struct {
	ID         string     `json:"id"`
	LineID     string     `json:"line_id"`
	PositionID string     `json:"position_id"`
	Applicant  piiPayload `json:"applicant"`
	Skills     []string   `json:"skills,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toApplicantResponse(view *models.ApplicantView, skills []string) applicantResponse {
	return applicantResponse{
		ID:         view.ID,
		LineID:     view.LineID,
		PositionID: view.PositionID,
		Applicant:  piiPayload(view.PII),
		Skills:     skills,
		CreatedAt:  view.CreatedAt,
	}
}

func (h *Handler) handleGetApplicant(w http.ResponseWriter, r *http.Request) {
	view, skills, err := h.service.GetApplicant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toApplicantResponse(view, skills))
}

func (h *Handler) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	lineID := r.URL.Query().Get("line_id")
	if lineID == "" {
		lineID = middleware.GetLineID(r.Context())
	}
	views, err := h.service.ListApplicants(r.Context(), lineID, r.URL.Query().Get("cursor"), queryLimit(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	items := make([]applicantResponse, 0, len(views))
	for _, view := range views {
		items = append(items, toApplicantResponse(view, nil))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"applicants": items})
}

type postAnnouncementRequest struct {
	LineID string `json:"line_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type announcementResponse struct {
	ID        string    `json:"id"`
	LineID    string    `json:"line_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	PostedBy  string    `json:"posted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toAnnouncementResponse(a *models.Announcement) announcementResponse {
	return announcementResponse{
		ID:        a.ID,
		LineID:    a.LineID,
		Title:     a.Title,
		Body:      a.Body,
		PostedBy:  a.PostedBy,
		CreatedAt: a.CreatedAt,
	}
}

func (h *Handler) handlePostAnnouncement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req postAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.LineID == "" {
		req.LineID = middleware.GetLineID(ctx)
	}

	announcement, err := h.service.PostAnnouncement(ctx, req.LineID, req.Title, req.Body, actorFromContext(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toAnnouncementResponse(announcement))
}

func (h *Handler) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	lineID := r.URL.Query().Get("line_id")
	if lineID == "" {
		lineID = middleware.GetLineID(r.Context())
	}
	announcements, err := h.service.ListAnnouncements(r.Context(), lineID, r.URL.Query().Get("cursor"), queryLimit(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	items := make([]announcementResponse, 0, len(announcements))
	for _, a := range announcements {
		items = append(items, toAnnouncementResponse(a))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"announcements": items})
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

// actorFromContext assembles the audit actor from what the auth, request-id,
// and device middleware put in context.
func actorFromContext(ctx context.Context) audit.Actor {
	return audit.Actor{
		ID:        middleware.GetActorID(ctx),
		LineID:    middleware.GetLineID(ctx),
		RequestID: middleware.GetRequestID(ctx),
		Device:    middleware.GetDevice(ctx),
	}
}
