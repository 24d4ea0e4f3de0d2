package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lingkod/internal/platform/middleware"
	"lingkod/internal/transport/http/shared"
)

// Handler exposes the per-line audit trail.
type Handler struct {
	publisher *Publisher
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func NewHandler(publisher *Publisher, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{publisher: publisher, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	auditRouter := chi.NewRouter()
	auditRouter.Use(middleware.Timeout(30 * time.Second))
	auditRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	auditRouter.Get("/", h.handleList)

	r.Mount("/audit", auditRouter)
}

type eventResponse struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	LineID      string    `json:"line_id"`
	Action      string    `json:"action"`
	Entity      string    `json:"entity"`
	Description string    `json:"description"`
	Device      string    `json:"device,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	lineID := r.URL.Query().Get("line_id")
	if lineID == "" {
		lineID = middleware.GetLineID(r.Context())
	}
	events, err := h.publisher.List(r.Context(), lineID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	items := make([]eventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, eventResponse{
			ID:          e.ID,
			ActorID:     e.ActorID,
			LineID:      e.LineID,
			Action:      string(e.Action),
			Entity:      e.Entity,
			Description: e.Description,
			Device:      e.Device,
			Timestamp:   e.Timestamp,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": items})
}
