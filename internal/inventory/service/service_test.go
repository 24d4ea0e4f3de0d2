package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingkod/internal/audit"
	"lingkod/internal/inventory/models"
	"lingkod/internal/inventory/store"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/workflow"
)

type fixture struct {
	service    *Service
	store      Store
	memory     *store.MemoryStore
	auditStore *audit.MemoryStore
}

func newFixture(t *testing.T, wrap func(*store.MemoryStore) Store) *fixture {
	t.Helper()

	memory := store.NewMemoryStore()
	auditStore := audit.NewMemoryStore()

	var inventoryStore Store = memory
	if wrap != nil {
		inventoryStore = wrap(memory)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := workflow.NewMemoryUnitOfWork(memory, auditStore)
	coordinator := workflow.NewCoordinator(uow, logger, nil)

	svc := NewService(coordinator, inventoryStore, audit.NewPublisher(auditStore), logger)
	return &fixture{service: svc, store: inventoryStore, memory: memory, auditStore: auditStore}
}

func testActor() audit.Actor {
	return audit.Actor{ID: "supply-officer", LineID: "line-1", RequestID: "req-1"}
}

func validOrder() models.ReceiveOrder {
	return models.ReceiveOrder{
		LineID:   "line-1",
		Supplier: "Cavite Office Supplies Co.",
		Items: []models.ReceiveOrderItem{
			{SupplyName: "bond paper", Unit: "ream", Quantity: 50},
			{SupplyName: "ballpen", Unit: "box", Quantity: 10},
		},
	}
}

func TestReceiveOrder_CommitsOrderStockAndAudit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	order, err := f.service.ReceiveOrder(ctx, validOrder(), testActor())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.Reference, "PO-"))
	assert.Len(t, order.Reference, 9)

	stored, err := f.service.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	paper, err := f.memory.GetSupply(ctx, "line-1", "bond paper")
	require.NoError(t, err)
	assert.Equal(t, 50, paper.Quantity)

	events, err := f.auditStore.ListByLine(ctx, "line-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionAdded, events[0].Action)
	assert.Contains(t, events[0].Description, order.Reference)
}

func TestReceiveOrder_AccumulatesExistingSupply(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.ReceiveOrder(ctx, validOrder(), testActor())
	require.NoError(t, err)
	_, err = f.service.ReceiveOrder(ctx, validOrder(), testActor())
	require.NoError(t, err)

	paper, err := f.memory.GetSupply(ctx, "line-1", "bond paper")
	require.NoError(t, err)
	assert.Equal(t, 100, paper.Quantity)
}

// collidingStore reports the first K reference candidates as taken so the
// retry loop has to work for its result.
type collidingStore struct {
	*store.MemoryStore
	collisions int
	checks     int
}

func (s *collidingStore) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	s.checks++
	if s.checks <= s.collisions {
		return true, nil
	}
	return s.MemoryStore.ReferenceExists(ctx, reference)
}

func TestReceiveOrder_RetriesReferenceUntilUnique(t *testing.T) {
	var colliding *collidingStore
	f := newFixture(t, func(m *store.MemoryStore) Store {
		colliding = &collidingStore{MemoryStore: m, collisions: 3}
		return colliding
	})

	order, err := f.service.ReceiveOrder(context.Background(), validOrder(), testActor())
	require.NoError(t, err)
	assert.Equal(t, 4, colliding.checks)
	assert.NotEmpty(t, order.Reference)
}

func TestReceiveOrder_ReferenceExhaustion(t *testing.T) {
	f := newFixture(t, func(m *store.MemoryStore) Store {
		return &collidingStore{MemoryStore: m, collisions: 1 << 30}
	})

	_, err := f.service.ReceiveOrder(context.Background(), validOrder(), testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeExhausted))

	// The rolled-back workflow left nothing behind.
	assert.Empty(t, f.auditStore.All())
	_, err = f.memory.GetSupply(context.Background(), "line-1", "bond paper")
	require.Error(t, err)
}

func TestReceiveOrder_Validation(t *testing.T) {
	f := newFixture(t, nil)

	cmd := validOrder()
	cmd.Items[0].Quantity = 0

	_, err := f.service.ReceiveOrder(context.Background(), cmd, testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestRemoveContainer_CommitsWithAudit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	container, err := f.service.AddContainer(ctx, "line-1", "Cabinet A", "Records room", testActor())
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveContainer(ctx, container.ID, testActor()))

	removed, err := f.memory.GetContainer(ctx, container.ID)
	require.NoError(t, err)
	require.NotNil(t, removed.RemovedAt)

	events, err := f.auditStore.ListByLine(ctx, "line-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, audit.ActionRemoved, events[0].Action)
	assert.Equal(t, "REMOVED container Cabinet A", events[0].Description)
}

func TestRemoveContainer_AlreadyRemoved(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	container, err := f.service.AddContainer(ctx, "line-1", "Cabinet A", "Records room", testActor())
	require.NoError(t, err)
	require.NoError(t, f.service.RemoveContainer(ctx, container.ID, testActor()))

	err = f.service.RemoveContainer(ctx, container.ID, testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidState))
}

func TestRemoveContainer_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	err := f.service.RemoveContainer(context.Background(), "missing", testActor())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
