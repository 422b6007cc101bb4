package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurumdesk/aurumdesk/internal/catalog"
	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// ItemRequest is a raw requested line item before enrichment.
type ItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

// EnrichedItem carries the product snapshot captured at enrichment time.
// The price is a copy, not a live reference: later catalog price changes do
// not affect an order that has already been priced.
type EnrichedItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Currency    string
}

// StockEnrichmentValidator resolves product snapshots for requested items
// and applies the advisory availability rules. The advisory check gives
// fast rejection and precise messages; the authoritative guard is the
// conditional stock decrement at commit time.
type StockEnrichmentValidator struct {
	provider catalog.AvailabilityProvider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewStockEnrichmentValidator creates a validator. timeout bounds each
// catalog lookup; expiry is reported as TransientFailure, distinct from the
// permanent validation rejections.
func NewStockEnrichmentValidator(provider catalog.AvailabilityProvider, timeout time.Duration, logger *zap.Logger) *StockEnrichmentValidator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &StockEnrichmentValidator{provider: provider, timeout: timeout, logger: logger}
}

// Enrich validates and enriches the requested items, or fails on the first
// rejection. No partial results are returned.
func (v *StockEnrichmentValidator) Enrich(ctx context.Context, items []ItemRequest) ([]EnrichedItem, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "order must contain at least one item")
	}

	enriched := make([]EnrichedItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidInput,
				"quantity must be positive, got %d", item.Quantity)
		}

		lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
		snapshot, err := v.provider.Availability(lookupCtx, item.ProductID)
		cancel()
		if err != nil {
			if lookupCtx.Err() == context.DeadlineExceeded {
				return nil, pkgerrors.Wrap(pkgerrors.CodeTransientFailure,
					"catalog lookup timed out", err)
			}
			return nil, err
		}

		if !snapshot.InStock {
			return nil, pkgerrors.Newf(pkgerrors.CodeOutOfStock,
				"%s is out of stock", snapshot.Name)
		}
		if item.Quantity < snapshot.MinimumOrderQuantity {
			return nil, pkgerrors.Newf(pkgerrors.CodeBelowMinimumOrder,
				"%s requires a minimum order of %d, requested: %d",
				snapshot.Name, snapshot.MinimumOrderQuantity, item.Quantity)
		}
		if item.Quantity > snapshot.StockQuantity {
			return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
				"%s: available: %d, requested: %d",
				snapshot.Name, snapshot.StockQuantity, item.Quantity)
		}

		enriched = append(enriched, EnrichedItem{
			ProductID:   snapshot.ProductID,
			ProductName: snapshot.Name,
			Quantity:    item.Quantity,
			UnitPrice:   snapshot.UnitPrice,
			Currency:    snapshot.Currency,
		})
	}

	return enriched, nil
}
