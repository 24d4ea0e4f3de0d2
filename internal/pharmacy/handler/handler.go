// Package handler exposes the pharmacy workflows over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/audit"
	"lingkod/internal/pharmacy/models"
	pharmacyservice "lingkod/internal/pharmacy/service"
	"lingkod/internal/platform/middleware"
	"lingkod/internal/transport/http/shared"
	dErrors "lingkod/pkg/domain-errors"
)

type Service interface {
	CreatePrescription(ctx context.Context, cmd models.NewPrescription, actor audit.Actor) (*models.Prescription, error)
	Dispense(ctx context.Context, prescriptionID string, actor audit.Actor) (*pharmacyservice.DispenseReceipt, error)
	GetPrescription(ctx context.Context, id string) (*pharmacyservice.PrescriptionView, error)
	AddStock(ctx context.Context, stock *models.MedicineStock, actor audit.Actor) error
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
	pharmacyRouter := chi.NewRouter()
	pharmacyRouter.Use(middleware.Timeout(30 * time.Second))
	pharmacyRouter.Use(middleware.ContentTypeJSON)
	pharmacyRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	pharmacyRouter.Post("/prescriptions", h.handleCreatePrescription)
	pharmacyRouter.Get("/prescriptions/{id}", h.handleGetPrescription)
	pharmacyRouter.Post("/prescriptions/{id}/dispense", h.handleDispense)
	pharmacyRouter.Post("/stock", h.handleAddStock)

	r.Mount("/pharmacy", pharmacyRouter)
}

type createPrescriptionRequest struct {
	LineID       string `json:"line_id"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	Items        []struct {
		MedicineID string `json:"medicine_id"`
		ReleaseQty int    `json:"release_qty"`
	} `json:"items"`
}

func (h *Handler) handleCreatePrescription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPrescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.LineID == "" {
		req.LineID = middleware.GetLineID(ctx)
	}

	cmd := models.NewPrescription{
		LineID:       req.LineID,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, models.NewPrescriptionItem{
			MedicineID: item.MedicineID,
			ReleaseQty: item.ReleaseQty,
		})
	}

	prescription, err := h.service.CreatePrescription(ctx, cmd, actorFromContext(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":     prescription.ID,
		"status": prescription.Status,
	})
}

type dispenseResponse struct {
	PrescriptionID  string                    `json:"prescription_id"`
	Movements       []models.StockTransaction `json:"movements"`
	PartialFailures []string                  `json:"partial_failures,omitempty"`
}

func (h *Handler) handleDispense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	receipt, err := h.service.Dispense(ctx, chi.URLParam(r, "id"), actorFromContext(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "dispense failed",
			"request_id", middleware.GetRequestID(ctx),
			"prescription_id", chi.URLParam(r, "id"),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if len(receipt.PartialFailures) > 0 {
		status = http.StatusAccepted
	}
	shared.WriteJSON(w, status, dispenseResponse{
		PrescriptionID:  receipt.PrescriptionID,
		Movements:       receipt.Movements,
		PartialFailures: receipt.PartialFailures,
	})
}

type prescriptionItemResponse struct {
	MedicineID string `json:"medicine_id"`
	ReleaseQty int    `json:"release_qty"`
}

type prescriptionResponse struct {
	ID           string                     `json:"id"`
	LineID       string                     `json:"line_id"`
	PatientName  string                     `json:"patient_name"`
	PatientPhone string                     `json:"patient_phone"`
	Status       string                     `json:"status"`
	Items        []prescriptionItemResponse `json:"items,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	FinalizedAt  *time.Time                 `json:"finalized_at,omitempty"`
}

func (h *Handler) handleGetPrescription(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetPrescription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := prescriptionResponse{
		ID:           view.ID,
		LineID:       view.LineID,
		PatientName:  view.PatientName,
		PatientPhone: view.PatientPhone,
		Status:       string(view.Status),
		CreatedAt:    view.CreatedAt,
		FinalizedAt:  view.FinalizedAt,
	}
	for _, item := range view.Items {
		resp.Items = append(resp.Items, prescriptionItemResponse{
			MedicineID: item.MedicineID,
			ReleaseQty: item.ReleaseQty,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type addStockRequest struct {
	LineID        string `json:"line_id"`
	Name          string `json:"name"`
	PackagingSize int    `json:"packaging_size"`
	Quantity      int    `json:"quantity"`
}

func (h *Handler) handleAddStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.LineID == "" {
		req.LineID = middleware.GetLineID(ctx)
	}

	stock := &models.MedicineStock{
		LineID:        req.LineID,
		Name:          req.Name,
		PackagingSize: req.PackagingSize,
		Quantity:      req.Quantity,
	}
	if err := h.service.AddStock(ctx, stock, actorFromContext(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": stock.ID})
}

func actorFromContext(ctx context.Context) audit.Actor {
	return audit.Actor{
		ID:        middleware.GetActorID(ctx),
		LineID:    middleware.GetLineID(ctx),
		RequestID: middleware.GetRequestID(ctx),
		Device:    middleware.GetDevice(ctx),
	}
}
