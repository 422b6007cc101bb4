package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aurumdesk/aurumdesk/internal/catalog"
	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// eventCacheTTL bounds the redis fast-path entries for processed payment
// events. The database unique index remains the authoritative dedupe.
const eventCacheTTL = 24 * time.Hour

// Repository persists orders, line items, status history and the
// processed-event ledger. All multi-row mutations run in a single
// transaction; all concurrent mutations go through conditional updates.
type Repository struct {
	db     *gorm.DB
	cache  *redis.Client
	logger *zap.Logger
}

// NewRepository creates a repository. cache may be nil; the redis fast
// path for event dedupe is then skipped.
func NewRepository(db *gorm.DB, cache *redis.Client, logger *zap.Logger) *Repository {
	return &Repository{db: db, cache: cache, logger: logger}
}

// CreateOrder inserts the order and its items and decrements each
// product's stock as one atomic unit. A decrement that matches zero rows
// aborts the whole transaction with InsufficientStock for that product;
// no partial order rows survive.
func (r *Repository) CreateOrder(ctx context.Context, order *Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			ok, err := catalog.DecrementStock(tx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "stock decrement failed", err)
			}
			if !ok {
				return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
					"%s: stock was consumed by a concurrent order", item.ProductName)
			}
		}
		if err := tx.Create(order).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "order insert failed", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Debug("order committed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber))
	return nil
}

// GetOrder retrieves an order with its line items.
func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	var order Order
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", orderID).First(&order).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "order lookup failed", err)
	}
	return &order, nil
}

// ListOrdersByUser returns a page of the user's orders, newest first.
func (r *Repository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "order count failed", err)
	}
	var orders []*Order
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "order list failed", err)
	}
	return orders, total, nil
}

// History returns the applied transitions for an order, oldest first.
func (r *Repository) History(ctx context.Context, orderID uuid.UUID) ([]OrderStatusHistory, error) {
	var history []OrderStatusHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "history read failed", err)
	}
	return history, nil
}

// TransitionStatus applies trigger to the order's current persisted status
// via compare-and-swap and appends a history row in the same transaction.
// guard, when non-nil, is evaluated against the persisted status inside
// the transaction so authorization rules cannot be bypassed by a stale
// read. A concurrent transition that changed the status between read and
// write surfaces as ConcurrentModification; the caller re-reads and
// decides.
func (r *Repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, trigger Trigger, actor string, guard func(OrderStatus) error) (OrderStatus, OrderStatus, error) {
	var from, to OrderStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.currentStatus(tx, orderID)
		if err != nil {
			return err
		}
		from = current

		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}

		next, err := Next(current, trigger)
		if err != nil {
			return err
		}

		if err := r.casStatus(tx, orderID, current, next, trigger, actor); err != nil {
			return err
		}
		to = next
		return nil
	})
	if err != nil {
		return from, "", err
	}
	return from, to, nil
}

// ApplyPaymentEvent applies the mapped trigger and records the ledger
// entry in one transaction, so a crash can never leave a transition
// without its ledger row. A duplicate event id aborts with
// ConcurrentModification (a concurrent delivery already applied it).
func (r *Repository) ApplyPaymentEvent(ctx context.Context, orderID uuid.UUID, trigger Trigger, eventID, eventType string) (OrderStatus, OrderStatus, error) {
	var from, to OrderStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.currentStatus(tx, orderID)
		if err != nil {
			return err
		}
		from = current

		next, err := Next(current, trigger)
		if err != nil {
			return err
		}

		entry := &ProcessedPaymentEvent{
			EventID:     eventID,
			OrderID:     orderID,
			EventType:   eventType,
			ProcessedAt: time.Now(),
		}
		if err := tx.Create(entry).Error; err != nil {
			if pkgerrors.Is(err, gorm.ErrDuplicatedKey) {
				return pkgerrors.Newf(pkgerrors.CodeConcurrentModification,
					"event %s was applied by a concurrent delivery", eventID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "event ledger insert failed", err)
		}

		if err := r.casStatus(tx, orderID, current, next, trigger, "payment:"+eventType); err != nil {
			return err
		}
		to = next
		return nil
	})
	if err != nil {
		return from, "", err
	}
	r.cacheEventID(ctx, eventID)
	return from, to, nil
}

// RecordEvent inserts a ledger entry without a transition, used when an
// event is acknowledged but intentionally not applied (e.g. it arrived
// after the order reached a terminal state). Returns false when the event
// id was already recorded.
func (r *Repository) RecordEvent(ctx context.Context, eventID string, orderID uuid.UUID, eventType string) (bool, error) {
	entry := &ProcessedPaymentEvent{
		EventID:     eventID,
		OrderID:     orderID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "event ledger insert failed", err)
	}
	r.cacheEventID(ctx, eventID)
	return true, nil
}

// IsEventProcessed checks the ledger for an event id, consulting the redis
// fast path first when available.
func (r *Repository) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	if r.cache != nil {
		n, err := r.cache.Exists(ctx, eventCacheKey(eventID)).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		if err != nil {
			r.logger.Warn("event cache lookup failed, falling back to store", zap.Error(err))
		}
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&ProcessedPaymentEvent{}).
		Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "event ledger lookup failed", err)
	}
	return count > 0, nil
}

func (r *Repository) currentStatus(tx *gorm.DB, orderID uuid.UUID) (OrderStatus, error) {
	var order Order
	if err := tx.Select("id", "status").Where("id = ?", orderID).First(&order).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "order lookup failed", err)
	}
	return order.Status, nil
}

// casStatus performs the conditional status update and appends the history
// row. Zero rows affected means another writer won; fail closed.
func (r *Repository) casStatus(tx *gorm.DB, orderID uuid.UUID, from, to OrderStatus, trigger Trigger, actor string) error {
	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "status update failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeConcurrentModification,
			"order %s was modified concurrently; re-read before retrying", orderID)
	}

	history := &OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Trigger:    trigger,
		Actor:      actor,
		CreatedAt:  time.Now(),
	}
	if err := tx.Create(history).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "history insert failed", err)
	}
	return nil
}

func (r *Repository) cacheEventID(ctx context.Context, eventID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, eventCacheKey(eventID), "1", eventCacheTTL).Err(); err != nil {
		r.logger.Warn("event cache write failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

func eventCacheKey(eventID string) string { return "payments:event:" + eventID }
