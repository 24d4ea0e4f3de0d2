// Package models holds the pharmacy domain records. Patient identity on a
// prescription is stored encrypted; stock quantities are plaintext integers
// in base units.
package models

import (
	"strings"
	"time"

	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/fieldcrypt"
)

// Status of a prescription. A finalized prescription can never be dispensed
// again.
type Status string

const (
	StatusOpen      Status = "open"
	StatusFinalized Status = "finalized"
)

// MedicineStock tracks one medicine's on-hand quantity for a line.
// Quantity is in base units; PackagingSize is base units per release unit
// (e.g. tablets per blister pack).
type MedicineStock struct {
	ID            string
	LineID        string
	Name          string
	PackagingSize int
	Quantity      int
	UpdatedAt     time.Time
}

// Prescription is the dispensing order for one patient visit.
type Prescription struct {
	ID           string
	LineID       string
	PatientName  fieldcrypt.EncryptedField
	PatientPhone fieldcrypt.EncryptedField
	Status       Status
	Items        []PrescriptionItem
	CreatedAt    time.Time
	FinalizedAt  *time.Time
}

// PrescriptionItem is one medicine plus a requested release quantity, in
// release units (multiplied by the medicine's packaging size on dispense).
type PrescriptionItem struct {
	ID             string
	PrescriptionID string
	MedicineID     string
	ReleaseQty     int
}

// StockTransaction is the per-item movement record written in the same
// transaction as the stock update it describes.
type StockTransaction struct {
	ID             string
	MedicineID     string
	PrescriptionID string
	Delta          int
	Balance        int
	CreatedAt      time.Time
}

// NewPrescription is the validated creation command. Patient fields are
// plaintext here; the service encrypts them before persistence.
type NewPrescription struct {
	LineID       string
	PatientName  string
	PatientPhone string
	Items        []NewPrescriptionItem
}

type NewPrescriptionItem struct {
	MedicineID string
	ReleaseQty int
}

func (p NewPrescription) Validate() error {
	switch {
	case strings.TrimSpace(p.LineID) == "":
		return dErrors.New(dErrors.CodeValidation, "line id is required")
	case strings.TrimSpace(p.PatientName) == "":
		return dErrors.New(dErrors.CodeValidation, "patient name is required")
	case len(p.Items) == 0:
		return dErrors.New(dErrors.CodeValidation, "prescription must have at least one item")
	}
	for _, item := range p.Items {
		if strings.TrimSpace(item.MedicineID) == "" {
			return dErrors.New(dErrors.CodeValidation, "medicine id is required")
		}
		if item.ReleaseQty <= 0 {
			return dErrors.New(dErrors.CodeValidation, "release quantity must be positive")
		}
	}
	return nil
}
