package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(newTestDB(t), nil, zaptest.NewLogger(t))
}

func TestCreateOrder_CommitsOrderItemsAndStock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	gold := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	silver := seedProduct(t, repo.db, "1oz Silver Round", "31.50", 500, 10)

	order := buildOrder(uuid.New(),
		OrderItem{ProductID: gold.ID, ProductName: gold.Name, Quantity: 2, UnitPrice: gold.UnitPrice},
		OrderItem{ProductID: silver.ID, ProductName: silver.Name, Quantity: 20, UnitPrice: silver.UnitPrice},
	)
	require.NoError(t, repo.CreateOrder(ctx, order))

	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, order.OrderNumber, stored.OrderNumber)

	assert.EqualValues(t, 8, productStock(t, repo.db, gold.ID))
	assert.EqualValues(t, 480, productStock(t, repo.db, silver.ID))
}

func TestCreateOrder_InsufficientStockRollsBackEverything(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	plenty := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	scarce := seedProduct(t, repo.db, "Pamp 100g Bar", "8100.00", 1, 1)

	// The first item's decrement succeeds, the second cannot; the whole
	// transaction must roll back, including the first decrement.
	order := buildOrder(uuid.New(),
		OrderItem{ProductID: plenty.ID, ProductName: plenty.Name, Quantity: 3, UnitPrice: plenty.UnitPrice},
		OrderItem{ProductID: scarce.ID, ProductName: scarce.Name, Quantity: 2, UnitPrice: scarce.UnitPrice},
	)
	err := repo.CreateOrder(ctx, order)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Pamp 100g Bar")

	assert.EqualValues(t, 10, productStock(t, repo.db, plenty.ID), "first decrement must be rolled back")
	assert.EqualValues(t, 1, productStock(t, repo.db, scarce.ID))

	var orderCount, itemCount int64
	require.NoError(t, repo.db.Model(&Order{}).Count(&orderCount).Error)
	require.NoError(t, repo.db.Model(&OrderItem{}).Count(&itemCount).Error)
	assert.Zero(t, orderCount, "no partial order rows")
	assert.Zero(t, itemCount, "no partial item rows")
}

func TestCreateOrder_NoOversellUnderConcurrency(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	scarce := seedProduct(t, repo.db, "Kilo Silver Bar", "1010.00", 1, 1)

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := buildOrder(uuid.New(),
				OrderItem{ProductID: scarce.ID, ProductName: scarce.Name, Quantity: 1, UnitPrice: scarce.UnitPrice})
			errs[i] = repo.CreateOrder(ctx, order)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(err))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one order may consume the last unit")
	assert.EqualValues(t, 0, productStock(t, repo.db, scarce.ID))
}

func TestTransitionStatus_AdvancesAndRecordsHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	product := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	order := buildOrder(uuid.New(),
		OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})
	require.NoError(t, repo.CreateOrder(ctx, order))

	from, to, err := repo.TransitionStatus(ctx, order.ID, TriggerProcess, "user:test", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, from)
	assert.Equal(t, StatusConfirmed, to)

	history, err := repo.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusPending, history[0].FromStatus)
	assert.Equal(t, StatusConfirmed, history[0].ToStatus)
	assert.Equal(t, TriggerProcess, history[0].Trigger)
	assert.Equal(t, "user:test", history[0].Actor)
}

func TestTransitionStatus_GuardRunsAgainstPersistedStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	product := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	order := buildOrder(uuid.New(),
		OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})
	require.NoError(t, repo.CreateOrder(ctx, order))

	// Move the order past pending behind the guard's back.
	_, _, err := repo.TransitionStatus(ctx, order.ID, TriggerProcess, "admin:test", nil)
	require.NoError(t, err)

	guard := func(current OrderStatus) error { return CancelAuthorization(current, false) }
	_, _, err = repo.TransitionStatus(ctx, order.ID, TriggerCancel, "user:test", guard)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status, "guard rejection must not change status")
}

func TestTransitionStatus_TerminalGuard(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	product := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	order := buildOrder(uuid.New(),
		OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})
	require.NoError(t, repo.CreateOrder(ctx, order))

	for i := 0; i < 5; i++ {
		_, _, err := repo.TransitionStatus(ctx, order.ID, TriggerProcess, "admin:test", nil)
		require.NoError(t, err)
	}
	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)

	_, _, err = repo.TransitionStatus(ctx, order.ID, TriggerProcess, "admin:test", nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeWorkflowInvalidState, pkgerrors.CodeOf(err))

	stored, err = repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status, "status unchanged after rejected trigger")
}

func TestCasStatus_StaleStatusAffectsZeroRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	product := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	order := buildOrder(uuid.New(),
		OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})
	require.NoError(t, repo.CreateOrder(ctx, order))

	// A writer whose read went stale (order is pending, not confirmed)
	// must lose the compare-and-swap without touching the row.
	err := repo.db.Transaction(func(tx *gorm.DB) error {
		return repo.casStatus(tx, order.ID, StatusConfirmed, StatusProcessing, TriggerProcess, "admin:test")
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConcurrentModification, pkgerrors.CodeOf(err))

	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)

	history, err := repo.History(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "a lost swap must not append history")
}

func TestTransitionStatus_UnknownOrder(t *testing.T) {
	repo := newTestRepo(t)
	_, _, err := repo.TransitionStatus(context.Background(), uuid.New(), TriggerProcess, "user:test", nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestApplyPaymentEvent_TransitionAndLedgerAreAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	product := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	order := buildOrder(uuid.New(),
		OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})
	require.NoError(t, repo.CreateOrder(ctx, order))

	from, to, err := repo.ApplyPaymentEvent(ctx, order.ID, TriggerPaymentSucceeded, "evt_001", "payment_intent.succeeded")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, from)
	assert.Equal(t, StatusConfirmed, to)

	processed, err := repo.IsEventProcessed(ctx, "evt_001")
	require.NoError(t, err)
	assert.True(t, processed)

	// Same event id again: the ledger's unique key rejects it and the
	// order does not move.
	_, _, err = repo.ApplyPaymentEvent(ctx, order.ID, TriggerPaymentSucceeded, "evt_001", "payment_intent.succeeded")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConcurrentModification, pkgerrors.CodeOf(err))

	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)

	var ledgerCount int64
	require.NoError(t, repo.db.Model(&ProcessedPaymentEvent{}).Count(&ledgerCount).Error)
	assert.EqualValues(t, 1, ledgerCount, "exactly one ledger entry")
}

func TestApplyPaymentEvent_InvalidStateLeavesNoLedgerEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	product := seedProduct(t, repo.db, "1oz Gold Eagle", "2450.00", 10, 1)
	order := buildOrder(uuid.New(),
		OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})
	require.NoError(t, repo.CreateOrder(ctx, order))

	_, _, err := repo.TransitionStatus(ctx, order.ID, TriggerCancel, "admin:test", nil)
	require.NoError(t, err)

	_, _, err = repo.ApplyPaymentEvent(ctx, order.ID, TriggerPaymentSucceeded, "evt_002", "payment_intent.succeeded")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeWorkflowInvalidState, pkgerrors.CodeOf(err))

	processed, err := repo.IsEventProcessed(ctx, "evt_002")
	require.NoError(t, err)
	assert.False(t, processed, "rejected application must not record the event")
}

func TestRecordEvent_DuplicateReturnsFalse(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orderID := uuid.New()

	inserted, err := repo.RecordEvent(ctx, "evt_dup", orderID, "payment_intent.succeeded")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.RecordEvent(ctx, "evt_dup", orderID, "payment_intent.succeeded")
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestListOrdersByUser_ScopedAndPaged(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	product := seedProduct(t, repo.db, "1oz Silver Round", "31.50", 1000, 1)
	owner := uuid.New()
	other := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateOrder(ctx, buildOrder(owner,
			OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})))
	}
	require.NoError(t, repo.CreateOrder(ctx, buildOrder(other,
		OrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: 1, UnitPrice: product.UnitPrice})))

	orders, total, err := repo.ListOrdersByUser(ctx, owner, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, owner, o.UserID)
	}
}
