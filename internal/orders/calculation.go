package orders

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// PricingConfig carries the configurable rates and flat fees used by the
// calculation engine.
type PricingConfig struct {
	ProcessingFeeRate decimal.Decimal
	TaxRate           decimal.Decimal
	ShippingFee       decimal.Decimal
	InsuranceFee      decimal.Decimal
}

// DefaultPricingConfig returns the platform defaults: 5% processing fee,
// 8.25% tax, no flat shipping or insurance fees.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		ProcessingFeeRate: decimal.NewFromFloat(0.05),
		TaxRate:           decimal.NewFromFloat(0.0825),
		ShippingFee:       decimal.Zero,
		InsuranceFee:      decimal.Zero,
	}
}

// LineInput is the quantity/price pair the calculation engine prices.
type LineInput struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Totals is the deterministic pricing breakdown for an order.
type Totals struct {
	Subtotal      decimal.Decimal
	ProcessingFee decimal.Decimal
	ShippingFee   decimal.Decimal
	InsuranceFee  decimal.Decimal
	Taxes         decimal.Decimal
	Total         decimal.Decimal
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// ComputeTotals prices an item list. Monetary values are rounded to two
// places at each aggregation step; the rounding order is part of the
// contract and is locked by tests. Pure function, no I/O.
//
//	subtotal       = sum(round2(quantity * unitPrice))
//	processingFee  = round2(subtotal * processingFeeRate)
//	taxableAmount  = subtotal + processingFee + shippingFee + insuranceFee
//	taxes          = round2(taxableAmount * taxRate)
//	total          = taxableAmount + taxes
func ComputeTotals(items []LineInput, cfg PricingConfig) (Totals, error) {
	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, pkgerrors.Newf(pkgerrors.CodeInvalidInput,
				"item %d: quantity must be positive, got %d", i, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, pkgerrors.Newf(pkgerrors.CodeInvalidInput,
				"item %d: unit price must not be negative, got %s", i, item.UnitPrice)
		}
		line := round2(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
		subtotal = subtotal.Add(line)
	}

	processingFee := round2(subtotal.Mul(cfg.ProcessingFeeRate))
	taxable := subtotal.Add(processingFee).Add(cfg.ShippingFee).Add(cfg.InsuranceFee)
	taxes := round2(taxable.Mul(cfg.TaxRate))
	total := taxable.Add(taxes)

	return Totals{
		Subtotal:      subtotal,
		ProcessingFee: processingFee,
		ShippingFee:   cfg.ShippingFee,
		InsuranceFee:  cfg.InsuranceFee,
		Taxes:         taxes,
		Total:         total,
	}, nil
}
