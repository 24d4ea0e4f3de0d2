package store

import (
	"context"
	"database/sql"
	"time"

	"lingkod/internal/pharmacy/models"
	"lingkod/internal/platform/pg"
	txcontext "lingkod/pkg/platform/tx"
)

// PostgresStore is transaction-aware: statements join the workflow
// transaction carried on the context. The medicine_stock.quantity column has
// a CHECK (quantity >= 0) constraint backing the service-level rejection of
// insufficient stock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.DBTX {
	return txcontext.Executor(ctx, s.db)
}

func (s *PostgresStore) InsertStock(ctx context.Context, stock *models.MedicineStock) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO medicine_stock (id, line_id, name, packaging_size, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		stock.ID, stock.LineID, stock.Name, stock.PackagingSize, stock.Quantity, time.Now(),
	)
	return pg.MapError(err, "insert medicine stock")
}

func (s *PostgresStore) GetStock(ctx context.Context, medicineID string) (*models.MedicineStock, error) {
	var stock models.MedicineStock
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, line_id, name, packaging_size, quantity, updated_at
		FROM medicine_stock WHERE id = $1`, medicineID,
	).Scan(&stock.ID, &stock.LineID, &stock.Name, &stock.PackagingSize, &stock.Quantity, &stock.UpdatedAt)
	if err != nil {
		return nil, pg.MapError(err, "get medicine stock")
	}
	return &stock, nil
}

func (s *PostgresStore) UpdateStockQuantity(ctx context.Context, medicineID string, quantity int) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE medicine_stock SET quantity = $2, updated_at = $3 WHERE id = $1`,
		medicineID, quantity, time.Now(),
	)
	if err != nil {
		return pg.MapError(err, "update medicine stock")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pg.MapError(err, "update medicine stock")
	}
	if affected == 0 {
		return pg.MapError(sql.ErrNoRows, "update medicine stock")
	}
	return nil
}

func (s *PostgresStore) InsertPrescription(ctx context.Context, prescription *models.Prescription) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO prescriptions (id, line_id, patient_name_ct, patient_name_iv,
			patient_phone_ct, patient_phone_iv, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		prescription.ID, prescription.LineID,
		prescription.PatientName.Ciphertext, prescription.PatientName.IV,
		prescription.PatientPhone.Ciphertext, prescription.PatientPhone.IV,
		prescription.Status, prescription.CreatedAt,
	)
	if err != nil {
		return pg.MapError(err, "insert prescription")
	}
	for _, item := range prescription.Items {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO prescription_items (id, prescription_id, medicine_id, release_qty)
			VALUES ($1, $2, $3, $4)`,
			item.ID, prescription.ID, item.MedicineID, item.ReleaseQty,
		)
		if err != nil {
			return pg.MapError(err, "insert prescription item")
		}
	}
	return nil
}

func (s *PostgresStore) GetPrescription(ctx context.Context, id string) (*models.Prescription, error) {
	var p models.Prescription
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, line_id, patient_name_ct, patient_name_iv,
			patient_phone_ct, patient_phone_iv, status, created_at, finalized_at
		FROM prescriptions WHERE id = $1`, id,
	).Scan(&p.ID, &p.LineID,
		&p.PatientName.Ciphertext, &p.PatientName.IV,
		&p.PatientPhone.Ciphertext, &p.PatientPhone.IV,
		&p.Status, &p.CreatedAt, &p.FinalizedAt,
	)
	if err != nil {
		return nil, pg.MapError(err, "get prescription")
	}

	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, prescription_id, medicine_id, release_qty
		FROM prescription_items WHERE prescription_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, pg.MapError(err, "list prescription items")
	}
	defer rows.Close()

	for rows.Next() {
		var item models.PrescriptionItem
		if err := rows.Scan(&item.ID, &item.PrescriptionID, &item.MedicineID, &item.ReleaseQty); err != nil {
			return nil, pg.MapError(err, "scan prescription item")
		}
		p.Items = append(p.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, pg.MapError(err, "list prescription items")
	}
	return &p, nil
}

func (s *PostgresStore) FinalizePrescription(ctx context.Context, id string, at time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE prescriptions SET status = $2, finalized_at = $3
		WHERE id = $1 AND status = $4`,
		id, models.StatusFinalized, at, models.StatusOpen,
	)
	if err != nil {
		return pg.MapError(err, "finalize prescription")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pg.MapError(err, "finalize prescription")
	}
	if affected == 0 {
		// Either missing or already finalized; callers check state first.
		return pg.MapError(sql.ErrNoRows, "finalize prescription")
	}
	return nil
}

func (s *PostgresStore) InsertStockTransaction(ctx context.Context, txn *models.StockTransaction) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO stock_transactions (id, medicine_id, prescription_id, delta, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		txn.ID, txn.MedicineID, txn.PrescriptionID, txn.Delta, txn.Balance, txn.CreatedAt,
	)
	return pg.MapError(err, "insert stock transaction")
}
