// Package handler exposes inventory workflows over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/audit"
	"lingkod/internal/inventory/models"
	"lingkod/internal/platform/middleware"
	"lingkod/internal/transport/http/shared"
	dErrors "lingkod/pkg/domain-errors"
)

type Service interface {
	ReceiveOrder(ctx context.Context, cmd models.ReceiveOrder, actor audit.Actor) (*models.PurchaseOrder, error)
	GetOrder(ctx context.Context, id string) (*models.PurchaseOrder, error)
	AddContainer(ctx context.Context, lineID, label, location string, actor audit.Actor) (*models.Container, error)
	RemoveContainer(ctx context.Context, containerID string, actor audit.Actor) error
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
	inventoryRouter := chi.NewRouter()
	inventoryRouter.Use(middleware.Timeout(30 * time.Second))
	inventoryRouter.Use(middleware.ContentTypeJSON)
	inventoryRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	inventoryRouter.Post("/orders", h.handleReceiveOrder)
	inventoryRouter.Get("/orders/{id}", h.handleGetOrder)
	inventoryRouter.Post("/containers", h.handleAddContainer)
	inventoryRouter.Delete("/containers/{id}", h.handleRemoveContainer)

	r.Mount("/inventory", inventoryRouter)
}

type receiveOrderRequest struct {
	LineID   string `json:"line_id"`
	Supplier string `json:"supplier"`
	Items    []struct {
		SupplyName string `json:"supply_name"`
		Unit       string `json:"unit"`
		Quantity   int    `json:"quantity"`
	} `json:"items"`
}

func (h *Handler) handleReceiveOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req receiveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.LineID == "" {
		req.LineID = middleware.GetLineID(ctx)
	}

	cmd := models.ReceiveOrder{LineID: req.LineID, Supplier: req.Supplier}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, models.ReceiveOrderItem{
			SupplyName: item.SupplyName,
			Unit:       item.Unit,
			Quantity:   item.Quantity,
		})
	}

	order, err := h.service.ReceiveOrder(ctx, cmd, actorFromContext(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":        order.ID,
		"reference": order.Reference,
	})
}

type orderItemResponse struct {
	SupplyName string `json:"supply_name"`
	Unit       string `json:"unit"`
	Quantity   int    `json:"quantity"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	LineID     string              `json:"line_id"`
	Reference  string              `json:"reference"`
	Supplier   string              `json:"supplier"`
	Items      []orderItemResponse `json:"items,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := orderResponse{
		ID:         order.ID,
		LineID:     order.LineID,
		Reference:  order.Reference,
		Supplier:   order.Supplier,
		ReceivedAt: order.ReceivedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			SupplyName: item.SupplyName,
			Unit:       item.Unit,
			Quantity:   item.Quantity,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type addContainerRequest struct {
	LineID   string `json:"line_id"`
	Label    string `json:"label"`
	Location string `json:"location"`
}

func (h *Handler) handleAddContainer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.LineID == "" {
		req.LineID = middleware.GetLineID(ctx)
	}

	container, err := h.service.AddContainer(ctx, req.LineID, req.Label, req.Location, actorFromContext(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":         container.ID,
		"line_id":    container.LineID,
		"label":      container.Label,
		"location":   container.Location,
		"created_at": container.CreatedAt,
	})
}

func (h *Handler) handleRemoveContainer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.RemoveContainer(ctx, chi.URLParam(r, "id"), actorFromContext(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func actorFromContext(ctx context.Context) audit.Actor {
	return audit.Actor{
		ID:        middleware.GetActorID(ctx),
		LineID:    middleware.GetLineID(ctx),
		RequestID: middleware.GetRequestID(ctx),
		Device:    middleware.GetDevice(ctx),
	}
}
