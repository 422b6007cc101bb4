// Package catalog exposes the narrow product surface the order engine
// consumes: point-in-time availability snapshots and the conditional stock
// decrement used inside the order-creation transaction. Full catalog CRUD
// lives elsewhere.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// Product is a precious-metals catalog entry.
type Product struct {
	ID                   uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	SKU                  string          `json:"sku" gorm:"uniqueIndex"`
	Name                 string          `json:"name"`
	Metal                string          `json:"metal"`
	UnitPrice            decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2)"`
	Currency             string          `json:"currency"`
	StockQuantity        int64           `json:"stock_quantity"`
	MinimumOrderQuantity int64           `json:"minimum_order_quantity"`
	InStock              bool            `json:"in_stock"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// AvailabilitySnapshot is a transient, point-in-time read of a product.
// It is advisory only; the authoritative stock check is the conditional
// decrement at commit time.
type AvailabilitySnapshot struct {
	ProductID            uuid.UUID
	Name                 string
	UnitPrice            decimal.Decimal
	Currency             string
	StockQuantity        int64
	MinimumOrderQuantity int64
	InStock              bool
}

// AvailabilityProvider is the lookup contract the order engine consumes.
type AvailabilityProvider interface {
	Availability(ctx context.Context, productID uuid.UUID) (*AvailabilitySnapshot, error)
}

// Store reads and mutates product rows.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a catalog store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Availability returns a snapshot of the product, or ProductNotFound.
func (s *Store) Availability(ctx context.Context, productID uuid.UUID) (*AvailabilitySnapshot, error) {
	var product Product
	if err := s.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeProductNotFound, "product %s not found", productID)
		}
		if ctx.Err() != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "catalog lookup timed out", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "catalog lookup failed", err)
	}
	return &AvailabilitySnapshot{
		ProductID:            product.ID,
		Name:                 product.Name,
		UnitPrice:            product.UnitPrice,
		Currency:             product.Currency,
		StockQuantity:        product.StockQuantity,
		MinimumOrderQuantity: product.MinimumOrderQuantity,
		InStock:              product.InStock,
	}, nil
}

// DecrementStock conditionally consumes qty units of a product inside the
// caller's transaction. Returns false when the remaining stock no longer
// covers qty; zero rows affected is the signal, there is no read-then-write
// race. This is the correctness boundary against overselling.
func DecrementStock(tx *gorm.DB, productID uuid.UUID, qty int64) (bool, error) {
	result := tx.Model(&Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"in_stock":       gorm.Expr("stock_quantity - ? > 0", qty),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
