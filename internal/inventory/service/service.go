// Package service implements inventory workflows: purchase-order receiving
// and container management.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"lingkod/internal/audit"
	"lingkod/internal/inventory/models"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/workflow"
)

// Store persists inventory records.
type Store interface {
	UpsertSupply(ctx context.Context, item models.SupplyItem) error
	GetSupply(ctx context.Context, lineID, name string) (*models.SupplyItem, error)
	InsertOrder(ctx context.Context, order *models.PurchaseOrder) error
	GetOrder(ctx context.Context, id string) (*models.PurchaseOrder, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	InsertContainer(ctx context.Context, container *models.Container) error
	GetContainer(ctx context.Context, id string) (*models.Container, error)
	MarkContainerRemoved(ctx context.Context, id string, at time.Time) error
}

// Auditor appends audit entries inside the calling step's transaction.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

const referenceAttempts = 5

type Service struct {
	coordinator *workflow.Coordinator
	store       Store
	auditor     Auditor
	logger      *slog.Logger
}

func NewService(coordinator *workflow.Coordinator, store Store, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{coordinator: coordinator, store: store, auditor: auditor, logger: logger}
}

// ReceiveOrder records a delivery: a purchase order under a freshly generated
// unique reference, its items, and the resulting supply stock-in, atomically
// with the audit entry.
func (s *Service) ReceiveOrder(ctx context.Context, cmd models.ReceiveOrder, actor audit.Actor) (*models.PurchaseOrder, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order := &models.PurchaseOrder{
		ID:         uuid.NewString(),
		LineID:     cmd.LineID,
		Supplier:   cmd.Supplier,
		ReceivedAt: time.Now(),
	}
	for _, item := range cmd.Items {
		order.Items = append(order.Items, models.PurchaseOrderItem{
			ID:              uuid.NewString(),
			PurchaseOrderID: order.ID,
			SupplyName:      item.SupplyName,
			Unit:            item.Unit,
			Quantity:        item.Quantity,
		})
	}

	plan := workflow.Plan{
		Name: "purchase_order_receiving",
		Steps: []workflow.Step{
			{Name: "generate reference", Run: func(ctx context.Context) error {
				reference, err := workflow.GenerateUnique(ctx, newOrderReference, s.store.ReferenceExists, referenceAttempts)
				if err != nil {
					return err
				}
				order.Reference = reference
				return nil
			}},
			{Name: "insert order", Run: func(ctx context.Context) error {
				return s.store.InsertOrder(ctx, order)
			}},
			{Name: "stock in supplies", Run: func(ctx context.Context) error {
				for _, item := range order.Items {
					err := s.store.UpsertSupply(ctx, models.SupplyItem{
						ID:       uuid.NewString(),
						LineID:   cmd.LineID,
						Name:     item.SupplyName,
						Unit:     item.Unit,
						Quantity: item.Quantity,
					})
					if err != nil {
						return err
					}
				}
				return nil
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      cmd.LineID,
					Action:      audit.ActionAdded,
					Entity:      "purchase_order",
					Description: fmt.Sprintf("ADDED purchase order %s from %s, %d items", order.Reference, cmd.Supplier, len(order.Items)),
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
	}

	if _, err := s.coordinator.Execute(ctx, plan); err != nil {
		return nil, err
	}
	return order, nil
}

// AddContainer registers a storage container with its audit entry.
func (s *Service) AddContainer(ctx context.Context, lineID, label, location string, actor audit.Actor) (*models.Container, error) {
	if label == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "container label is required")
	}

	container := &models.Container{
		ID:        uuid.NewString(),
		LineID:    lineID,
		Label:     label,
		Location:  location,
		CreatedAt: time.Now(),
	}

	plan := workflow.Plan{
		Name: "container_registration",
		Steps: []workflow.Step{
			{Name: "insert container", Run: func(ctx context.Context) error {
				return s.store.InsertContainer(ctx, container)
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      lineID,
					Action:      audit.ActionAdded,
					Entity:      "container",
					Description: "ADDED container " + label,
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
	}

	if _, err := s.coordinator.Execute(ctx, plan); err != nil {
		return nil, err
	}
	return container, nil
}

// RemoveContainer soft-deletes a container together with its audit entry.
// Removing a missing or already-removed container is an error.
func (s *Service) RemoveContainer(ctx context.Context, containerID string, actor audit.Actor) error {
	var container *models.Container

	plan := workflow.Plan{
		Name: "container_removal",
		Steps: []workflow.Step{
			{Name: "load container", Run: func(ctx context.Context) error {
				loaded, err := s.store.GetContainer(ctx, containerID)
				if err != nil {
					if errors.Is(err, sentinel.ErrNotFound) {
						return dErrors.Wrap(err, dErrors.CodeNotFound, "container not found")
					}
					return err
				}
				if loaded.RemovedAt != nil {
					return dErrors.New(dErrors.CodeInvalidState, "container already removed")
				}
				container = loaded
				return nil
			}},
			{Name: "mark removed", Run: func(ctx context.Context) error {
				return s.store.MarkContainerRemoved(ctx, containerID, time.Now())
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      container.LineID,
					Action:      audit.ActionRemoved,
					Entity:      "container",
					Description: "REMOVED container " + container.Label,
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
	}

	_, err := s.coordinator.Execute(ctx, plan)
	return err
}

// GetOrder returns one purchase order with its items.
func (s *Service) GetOrder(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "purchase order not found")
		}
		return nil, err
	}
	return order, nil
}

// newOrderReference draws a PO-prefixed six-digit reference. Uniqueness is
// enforced by the generate-check-retry loop plus the storage constraint.
func newOrderReference() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate order reference")
	}
	return fmt.Sprintf("PO-%06d", n.Int64()), nil
}
