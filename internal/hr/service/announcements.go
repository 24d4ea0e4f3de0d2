package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"lingkod/internal/audit"
	"lingkod/internal/hr/models"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/workflow"
)

// PostAnnouncement records a line-scoped announcement together with its audit
// entry in one transaction.
func (s *Service) PostAnnouncement(ctx context.Context, lineID, title, body string, actor audit.Actor) (*models.Announcement, error) {
	announcement := &models.Announcement{
		ID:        uuid.NewString(),
		LineID:    lineID,
		Title:     strings.TrimSpace(title),
		Body:      strings.TrimSpace(body),
		PostedBy:  actor.ID,
		CreatedAt: time.Now(),
	}

	plan := workflow.Plan{
		Name: "announcement_posting",
		Validate: func(ctx context.Context) error {
			switch {
			case lineID == "":
				return dErrors.New(dErrors.CodeValidation, "line id is required")
			case announcement.Title == "":
				return dErrors.New(dErrors.CodeValidation, "title is required")
			case announcement.Body == "":
				return dErrors.New(dErrors.CodeValidation, "body is required")
			}
			return nil
		},
		Steps: []workflow.Step{
			{Name: "insert announcement", Run: func(ctx context.Context) error {
				return s.store.InsertAnnouncement(ctx, announcement)
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      lineID,
					Action:      audit.ActionAdded,
					Entity:      "announcement",
					Description: "ADDED announcement " + announcement.Title,
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
	}

	if _, err := s.coordinator.Execute(ctx, plan); err != nil {
		return nil, err
	}
	return announcement, nil
}

// ListAnnouncements pages a line's announcements in stable id order.
func (s *Service) ListAnnouncements(ctx context.Context, lineID, cursor string, limit int) ([]*models.Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListAnnouncementsAfter(ctx, lineID, cursor, limit)
}
