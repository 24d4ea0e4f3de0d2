// Package models holds the inventory domain: supply stock, purchase orders,
// and storage containers.
package models

import (
	"strings"
	"time"

	dErrors "lingkod/pkg/domain-errors"
)

// SupplyItem is one supply's on-hand quantity for a line.
type SupplyItem struct {
	ID        string
	LineID    string
	Name      string
	Unit      string
	Quantity  int
	UpdatedAt time.Time
}

// PurchaseOrder is a received delivery. Reference is the human-readable
// unique number generated at receiving time.
type PurchaseOrder struct {
	ID         string
	LineID     string
	Reference  string
	Supplier   string
	Items      []PurchaseOrderItem
	ReceivedAt time.Time
}

type PurchaseOrderItem struct {
	ID              string
	PurchaseOrderID string
	SupplyName      string
	Unit            string
	Quantity        int
}

// Container is a physical storage unit. Removal is a soft delete so the
// audit trail keeps referring to it.
type Container struct {
	ID        string
	LineID    string
	Label     string
	Location  string
	CreatedAt time.Time
	RemovedAt *time.Time
}

// ReceiveOrder is the validated receiving command.
type ReceiveOrder struct {
	LineID   string
	Supplier string
	Items    []ReceiveOrderItem
}

type ReceiveOrderItem struct {
	SupplyName string
	Unit       string
	Quantity   int
}

func (r ReceiveOrder) Validate() error {
	switch {
	case strings.TrimSpace(r.LineID) == "":
		return dErrors.New(dErrors.CodeValidation, "line id is required")
	case strings.TrimSpace(r.Supplier) == "":
		return dErrors.New(dErrors.CodeValidation, "supplier is required")
	case len(r.Items) == 0:
		return dErrors.New(dErrors.CodeValidation, "purchase order must have at least one item")
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.SupplyName) == "" {
			return dErrors.New(dErrors.CodeValidation, "supply name is required")
		}
		if item.Quantity <= 0 {
			return dErrors.New(dErrors.CodeValidation, "item quantity must be positive")
		}
	}
	return nil
}
