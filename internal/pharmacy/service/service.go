// Package service implements the pharmacy workflows: prescription creation
// and dispensing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lingkod/internal/audit"
	"lingkod/internal/notify"
	"lingkod/internal/pharmacy/models"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/fieldcrypt"
	"lingkod/pkg/platform/sentinel"
	"lingkod/pkg/workflow"
)

// Store persists prescriptions, medicine stock, and stock movement rows.
type Store interface {
	InsertStock(ctx context.Context, stock *models.MedicineStock) error
	GetStock(ctx context.Context, medicineID string) (*models.MedicineStock, error)
	UpdateStockQuantity(ctx context.Context, medicineID string, quantity int) error
	InsertPrescription(ctx context.Context, prescription *models.Prescription) error
	GetPrescription(ctx context.Context, id string) (*models.Prescription, error)
	FinalizePrescription(ctx context.Context, id string, at time.Time) error
	InsertStockTransaction(ctx context.Context, txn *models.StockTransaction) error
}

// Auditor appends audit entries inside the calling step's transaction.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	coordinator *workflow.Coordinator
	cipher      *fieldcrypt.Cipher
	store       Store
	auditor     Auditor
	sms         notify.SMSSender
	logger      *slog.Logger
}

func NewService(
	coordinator *workflow.Coordinator,
	cipher *fieldcrypt.Cipher,
	store Store,
	auditor Auditor,
	sms notify.SMSSender,
	logger *slog.Logger,
) *Service {
	return &Service{
		coordinator: coordinator,
		cipher:      cipher,
		store:       store,
		auditor:     auditor,
		sms:         sms,
		logger:      logger,
	}
}

// CreatePrescription records a new open prescription with encrypted patient
// identity.
func (s *Service) CreatePrescription(ctx context.Context, cmd models.NewPrescription, actor audit.Actor) (*models.Prescription, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	name, err := s.cipher.Encrypt(cmd.PatientName)
	if err != nil {
		return nil, err
	}
	phone, err := s.cipher.Encrypt(cmd.PatientPhone)
	if err != nil {
		return nil, err
	}

	prescription := &models.Prescription{
		ID:           uuid.NewString(),
		LineID:       cmd.LineID,
		PatientName:  name,
		PatientPhone: phone,
		Status:       models.StatusOpen,
		CreatedAt:    time.Now(),
	}
	for _, item := range cmd.Items {
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			ID:             uuid.NewString(),
			PrescriptionID: prescription.ID,
			MedicineID:     item.MedicineID,
			ReleaseQty:     item.ReleaseQty,
		})
	}

	plan := workflow.Plan{
		Name: "prescription_creation",
		Steps: []workflow.Step{
			{Name: "insert prescription", Run: func(ctx context.Context) error {
				return s.store.InsertPrescription(ctx, prescription)
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      cmd.LineID,
					Action:      audit.ActionAdded,
					Entity:      "prescription",
					Description: fmt.Sprintf("ADDED prescription %s with %d items", prescription.ID, len(prescription.Items)),
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
	}

	if _, err := s.coordinator.Execute(ctx, plan); err != nil {
		return nil, err
	}
	return prescription, nil
}

// DispenseReceipt reports a committed dispense. PartialFailures names
// best-effort actions that did not complete.
type DispenseReceipt struct {
	PrescriptionID  string
	Movements       []models.StockTransaction
	PartialFailures []string
}

// Dispense releases every prescribed item, updates stock, records movement
// rows, and finalizes the prescription as one atomic unit. Insufficient stock
// rejects the whole workflow; quantities are never persisted negative. The
// patient SMS afterwards is best-effort.
func (s *Service) Dispense(ctx context.Context, prescriptionID string, actor audit.Actor) (*DispenseReceipt, error) {
	var (
		prescription *models.Prescription
		movements    []models.StockTransaction
	)

	plan := workflow.Plan{
		Name: "prescription_dispensing",
		Steps: []workflow.Step{
			{Name: "load prescription", Run: func(ctx context.Context) error {
				loaded, err := s.store.GetPrescription(ctx, prescriptionID)
				if err != nil {
					if errors.Is(err, sentinel.ErrNotFound) {
						return dErrors.Wrap(err, dErrors.CodeNotFound, "prescription not found")
					}
					return err
				}
				if loaded.Status == models.StatusFinalized {
					return dErrors.New(dErrors.CodeInvalidState, "prescription already finalized")
				}
				prescription = loaded
				return nil
			}},
			{Name: "update stock", Run: func(ctx context.Context) error {
				now := time.Now()
				for _, item := range prescription.Items {
					movement, err := s.releaseItem(ctx, item, now)
					if err != nil {
						return err
					}
					movements = append(movements, *movement)
				}
				return nil
			}},
			{Name: "finalize prescription", Run: func(ctx context.Context) error {
				return s.store.FinalizePrescription(ctx, prescriptionID, time.Now())
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      prescription.LineID,
					Action:      audit.ActionUpdated,
					Entity:      "prescription",
					Description: fmt.Sprintf("UPDATED prescription %s dispensed, %d items released", prescriptionID, len(prescription.Items)),
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
		AfterCommit: []workflow.BestEffort{
			{Name: "patient sms", Run: func(ctx context.Context) error {
				// A failed decrypt aborts only this side effect; the
				// committed dispense stands.
				phone, err := s.cipher.Decrypt(prescription.PatientPhone.Ciphertext, prescription.PatientPhone.IV)
				if err != nil {
					return err
				}
				return s.sms.SendSMS(ctx, notify.SMS{
					Recipients: []string{phone},
					Body:       "Your prescription is ready for pickup at the municipal pharmacy.",
					Sender:     "LINGKOD",
				})
			}},
		},
	}

	result, err := s.coordinator.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	receipt := &DispenseReceipt{PrescriptionID: prescriptionID, Movements: movements}
	for _, failure := range result.BestEffortFailures {
		receipt.PartialFailures = append(receipt.PartialFailures, failure.Error())
	}
	return receipt, nil
}

// releaseItem deducts one prescribed item from stock and writes its movement
// row. Requested quantities exceeding on-hand stock reject the workflow.
func (s *Service) releaseItem(ctx context.Context, item models.PrescriptionItem, now time.Time) (*models.StockTransaction, error) {
	stock, err := s.store.GetStock(ctx, item.MedicineID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "medicine not found: "+item.MedicineID)
		}
		return nil, err
	}

	if item.ReleaseQty <= 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid release quantity %d for %s", item.ReleaseQty, stock.Name)
	}
	required := item.ReleaseQty * stock.PackagingSize
	if required > stock.Quantity {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"insufficient stock for %s: need %d, have %d", stock.Name, required, stock.Quantity)
	}

	newQuantity := stock.Quantity - required
	if err := s.store.UpdateStockQuantity(ctx, item.MedicineID, newQuantity); err != nil {
		return nil, err
	}

	movement := &models.StockTransaction{
		ID:             uuid.NewString(),
		MedicineID:     item.MedicineID,
		PrescriptionID: item.PrescriptionID,
		Delta:          -required,
		Balance:        newQuantity,
		CreatedAt:      now,
	}
	if err := s.store.InsertStockTransaction(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// AddStock registers new medicine stock with its audit entry.
func (s *Service) AddStock(ctx context.Context, stock *models.MedicineStock, actor audit.Actor) error {
	if stock.PackagingSize <= 0 {
		return dErrors.New(dErrors.CodeValidation, "packaging size must be positive")
	}
	if stock.Quantity < 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must not be negative")
	}
	if stock.ID == "" {
		stock.ID = uuid.NewString()
	}

	plan := workflow.Plan{
		Name: "stock_intake",
		Steps: []workflow.Step{
			{Name: "insert stock", Run: func(ctx context.Context) error {
				return s.store.InsertStock(ctx, stock)
			}},
			{Name: "append audit", Run: func(ctx context.Context) error {
				return s.auditor.Emit(ctx, audit.Event{
					ActorID:     actor.ID,
					LineID:      stock.LineID,
					Action:      audit.ActionAdded,
					Entity:      "medicine_stock",
					Description: fmt.Sprintf("ADDED medicine stock %s qty %d", stock.Name, stock.Quantity),
					RequestID:   actor.RequestID,
					Device:      actor.Device,
				})
			}},
		},
	}

	_, err := s.coordinator.Execute(ctx, plan)
	return err
}

// PrescriptionView is the decrypted read model.
type PrescriptionView struct {
	ID           string
	LineID       string
	PatientName  string
	PatientPhone string
	Status       models.Status
	Items        []models.PrescriptionItem
	CreatedAt    time.Time
	FinalizedAt  *time.Time
}

// GetPrescription loads and decrypts one prescription, degrading fields that
// fail to decrypt.
func (s *Service) GetPrescription(ctx context.Context, id string) (*PrescriptionView, error) {
	prescription, err := s.store.GetPrescription(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "prescription not found")
		}
		return nil, err
	}
	return &PrescriptionView{
		ID:           prescription.ID,
		LineID:       prescription.LineID,
		PatientName:  s.decryptField(ctx, prescription.ID, "patient_name", prescription.PatientName),
		PatientPhone: s.decryptField(ctx, prescription.ID, "patient_phone", prescription.PatientPhone),
		Status:       prescription.Status,
		Items:        prescription.Items,
		CreatedAt:    prescription.CreatedAt,
		FinalizedAt:  prescription.FinalizedAt,
	}, nil
}

func (s *Service) decryptField(ctx context.Context, recordID, name string, field fieldcrypt.EncryptedField) string {
	if !field.Present() {
		return ""
	}
	plaintext, err := s.cipher.Decrypt(field.Ciphertext, field.IV)
	if err != nil {
		s.logger.ErrorContext(ctx, "field decryption failed",
			"record_id", recordID,
			"field", name,
			"error", err.Error(),
		)
		return "[decryption failed]"
	}
	return plaintext
}
