// Package store persists inventory records.
package store

import (
	"context"
	"sync"
	"time"

	"lingkod/internal/inventory/models"
	"lingkod/pkg/platform/sentinel"
)

// MemoryStore keeps inventory records in maps and implements
// workflow.Snapshotter.
type MemoryStore struct {
	mu         sync.Mutex
	supplies   map[string]models.SupplyItem // keyed by lineID+"/"+name
	orders     map[string]models.PurchaseOrder
	references map[string]bool
	containers map[string]models.Container
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		supplies:   make(map[string]models.SupplyItem),
		orders:     make(map[string]models.PurchaseOrder),
		references: make(map[string]bool),
		containers: make(map[string]models.Container),
	}
}

func supplyKey(lineID, name string) string { return lineID + "/" + name }

// UpsertSupply adds quantity to a supply, creating the row if missing.
func (s *MemoryStore) UpsertSupply(_ context.Context, item models.SupplyItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := supplyKey(item.LineID, item.Name)
	if existing, ok := s.supplies[key]; ok {
		existing.Quantity += item.Quantity
		existing.UpdatedAt = time.Now()
		s.supplies[key] = existing
		return nil
	}
	item.UpdatedAt = time.Now()
	s.supplies[key] = item
	return nil
}

func (s *MemoryStore) GetSupply(_ context.Context, lineID, name string) (*models.SupplyItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.supplies[supplyKey(lineID, name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &item, nil
}

func (s *MemoryStore) InsertOrder(_ context.Context, order *models.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.references[order.Reference] {
		return sentinel.ErrConflict
	}
	copied := *order
	copied.Items = append([]models.PurchaseOrderItem(nil), order.Items...)
	s.orders[order.ID] = copied
	s.references[order.Reference] = true
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*models.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := order
	copied.Items = append([]models.PurchaseOrderItem(nil), order.Items...)
	return &copied, nil
}

func (s *MemoryStore) ReferenceExists(_ context.Context, reference string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.references[reference], nil
}

func (s *MemoryStore) InsertContainer(_ context.Context, container *models.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container.ID]; ok {
		return sentinel.ErrConflict
	}
	s.containers[container.ID] = *container
	return nil
}

func (s *MemoryStore) GetContainer(_ context.Context, id string) (*models.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	container, ok := s.containers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &container, nil
}

func (s *MemoryStore) MarkContainerRemoved(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	container, ok := s.containers[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if container.RemovedAt != nil {
		return sentinel.ErrInvalidState
	}
	container.RemovedAt = &at
	s.containers[id] = container
	return nil
}

type memorySnapshot struct {
	supplies   map[string]models.SupplyItem
	orders     map[string]models.PurchaseOrder
	references map[string]bool
	containers map[string]models.Container
}

// Snapshot implements workflow.Snapshotter.
func (s *MemoryStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memorySnapshot{
		supplies:   make(map[string]models.SupplyItem, len(s.supplies)),
		orders:     make(map[string]models.PurchaseOrder, len(s.orders)),
		references: make(map[string]bool, len(s.references)),
		containers: make(map[string]models.Container, len(s.containers)),
	}
	for k, v := range s.supplies {
		snap.supplies[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]models.PurchaseOrderItem(nil), v.Items...)
		snap.orders[k] = v
	}
	for k, v := range s.references {
		snap.references[k] = v
	}
	for k, v := range s.containers {
		snap.containers[k] = v
	}
	return snap
}

// Restore implements workflow.Snapshotter.
func (s *MemoryStore) Restore(snapshot any) {
	snap, ok := snapshot.(memorySnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supplies = snap.supplies
	s.orders = snap.orders
	s.references = snap.references
	s.containers = snap.containers
}
