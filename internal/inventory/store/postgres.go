package store

import (
	"context"
	"database/sql"
	"time"

	"lingkod/internal/inventory/models"
	"lingkod/internal/platform/pg"
	txcontext "lingkod/pkg/platform/tx"
)

// PostgresStore is transaction-aware. purchase_orders.reference carries a
// UNIQUE constraint which is the authoritative guard behind the
// generate-check-retry reference loop.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.DBTX {
	return txcontext.Executor(ctx, s.db)
}

func (s *PostgresStore) UpsertSupply(ctx context.Context, item models.SupplyItem) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO supply_items (id, line_id, name, unit, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (line_id, name)
		DO UPDATE SET quantity = supply_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`,
		item.ID, item.LineID, item.Name, item.Unit, item.Quantity, time.Now(),
	)
	return pg.MapError(err, "upsert supply item")
}

func (s *PostgresStore) GetSupply(ctx context.Context, lineID, name string) (*models.SupplyItem, error) {
	var item models.SupplyItem
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, line_id, name, unit, quantity, updated_at
		FROM supply_items WHERE line_id = $1 AND name = $2`, lineID, name,
	).Scan(&item.ID, &item.LineID, &item.Name, &item.Unit, &item.Quantity, &item.UpdatedAt)
	if err != nil {
		return nil, pg.MapError(err, "get supply item")
	}
	return &item, nil
}

func (s *PostgresStore) InsertOrder(ctx context.Context, order *models.PurchaseOrder) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO purchase_orders (id, line_id, reference, supplier, received_at)
		VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.LineID, order.Reference, order.Supplier, order.ReceivedAt,
	)
	if err != nil {
		return pg.MapError(err, "insert purchase order")
	}
	for _, item := range order.Items {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO purchase_order_items (id, purchase_order_id, supply_name, unit, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, order.ID, item.SupplyName, item.Unit, item.Quantity,
		)
		if err != nil {
			return pg.MapError(err, "insert purchase order item")
		}
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, line_id, reference, supplier, received_at
		FROM purchase_orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.LineID, &order.Reference, &order.Supplier, &order.ReceivedAt)
	if err != nil {
		return nil, pg.MapError(err, "get purchase order")
	}

	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, purchase_order_id, supply_name, unit, quantity
		FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, pg.MapError(err, "list purchase order items")
	}
	defer rows.Close()

	for rows.Next() {
		var item models.PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.SupplyName, &item.Unit, &item.Quantity); err != nil {
			return nil, pg.MapError(err, "scan purchase order item")
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, pg.MapError(err, "list purchase order items")
	}
	return &order, nil
}

func (s *PostgresStore) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE reference = $1)`, reference,
	).Scan(&exists)
	if err != nil {
		return false, pg.MapError(err, "reference exists")
	}
	return exists, nil
}

func (s *PostgresStore) InsertContainer(ctx context.Context, container *models.Container) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO containers (id, line_id, label, location, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		container.ID, container.LineID, container.Label, container.Location, container.CreatedAt,
	)
	return pg.MapError(err, "insert container")
}

func (s *PostgresStore) GetContainer(ctx context.Context, id string) (*models.Container, error) {
	var container models.Container
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, line_id, label, location, created_at, removed_at
		FROM containers WHERE id = $1`, id,
	).Scan(&container.ID, &container.LineID, &container.Label, &container.Location,
		&container.CreatedAt, &container.RemovedAt)
	if err != nil {
		return nil, pg.MapError(err, "get container")
	}
	return &container, nil
}

func (s *PostgresStore) MarkContainerRemoved(ctx context.Context, id string, at time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE containers SET removed_at = $2
		WHERE id = $1 AND removed_at IS NULL`, id, at)
	if err != nil {
		return pg.MapError(err, "remove container")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pg.MapError(err, "remove container")
	}
	if affected == 0 {
		return pg.MapError(sql.ErrNoRows, "remove container")
	}
	return nil
}
