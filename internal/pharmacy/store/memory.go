// Package store persists pharmacy records.
package store

import (
	"context"
	"sync"
	"time"

	"lingkod/internal/pharmacy/models"
	"lingkod/pkg/platform/sentinel"
)

// MemoryStore keeps pharmacy records in maps and implements
// workflow.Snapshotter for transactional tests and dev wiring.
type MemoryStore struct {
	mu            sync.Mutex
	stock         map[string]models.MedicineStock
	prescriptions map[string]models.Prescription
	transactions  []models.StockTransaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stock:         make(map[string]models.MedicineStock),
		prescriptions: make(map[string]models.Prescription),
	}
}

func (s *MemoryStore) InsertStock(_ context.Context, stock *models.MedicineStock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[stock.ID]; ok {
		return sentinel.ErrConflict
	}
	s.stock[stock.ID] = *stock
	return nil
}

func (s *MemoryStore) GetStock(_ context.Context, medicineID string) (*models.MedicineStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, ok := s.stock[medicineID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &stock, nil
}

func (s *MemoryStore) UpdateStockQuantity(_ context.Context, medicineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, ok := s.stock[medicineID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stock.Quantity = quantity
	stock.UpdatedAt = time.Now()
	s.stock[medicineID] = stock
	return nil
}

func (s *MemoryStore) InsertPrescription(_ context.Context, prescription *models.Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prescriptions[prescription.ID]; ok {
		return sentinel.ErrConflict
	}
	copied := *prescription
	copied.Items = append([]models.PrescriptionItem(nil), prescription.Items...)
	s.prescriptions[prescription.ID] = copied
	return nil
}

func (s *MemoryStore) GetPrescription(_ context.Context, id string) (*models.Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prescription, ok := s.prescriptions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := prescription
	copied.Items = append([]models.PrescriptionItem(nil), prescription.Items...)
	return &copied, nil
}

func (s *MemoryStore) FinalizePrescription(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prescription, ok := s.prescriptions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if prescription.Status == models.StatusFinalized {
		return sentinel.ErrInvalidState
	}
	prescription.Status = models.StatusFinalized
	prescription.FinalizedAt = &at
	s.prescriptions[id] = prescription
	return nil
}

func (s *MemoryStore) InsertStockTransaction(_ context.Context, txn *models.StockTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, *txn)
	return nil
}

// Transactions returns all movement rows. Test helper.
func (s *MemoryStore) Transactions() []models.StockTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StockTransaction(nil), s.transactions...)
}

type memorySnapshot struct {
	stock         map[string]models.MedicineStock
	prescriptions map[string]models.Prescription
	transactions  []models.StockTransaction
}

// Snapshot implements workflow.Snapshotter.
func (s *MemoryStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memorySnapshot{
		stock:         make(map[string]models.MedicineStock, len(s.stock)),
		prescriptions: make(map[string]models.Prescription, len(s.prescriptions)),
		transactions:  append([]models.StockTransaction(nil), s.transactions...),
	}
	for k, v := range s.stock {
		snap.stock[k] = v
	}
	for k, v := range s.prescriptions {
		v.Items = append([]models.PrescriptionItem(nil), v.Items...)
		snap.prescriptions[k] = v
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
	s.stock = snap.stock
	s.prescriptions = snap.prescriptions
	s.transactions = snap.transactions
}
