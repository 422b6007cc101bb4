// Package orders implements the order lifecycle engine: pricing, stock
// enrichment, the workflow state machine and atomic persistence.
package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of workflow states an order can occupy.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusProcessing     OrderStatus = "processing"
	StatusShipped        OrderStatus = "shipped"
	StatusDelivered      OrderStatus = "delivered"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
	StatusPaymentFailed  OrderStatus = "payment_failed"
	StatusRequiresAction OrderStatus = "requires_action"
)

// OrderType distinguishes customer buys from sells.
type OrderType string

const (
	TypeBuy  OrderType = "buy"
	TypeSell OrderType = "sell"
)

// Trigger is a named workflow event evaluated against the current status.
type Trigger string

const (
	TriggerProcess               Trigger = "process"
	TriggerCancel                Trigger = "cancel"
	TriggerPaymentSucceeded      Trigger = "payment_succeeded"
	TriggerPaymentFailed         Trigger = "payment_failed"
	TriggerPaymentCanceled       Trigger = "payment_canceled"
	TriggerPaymentRequiresAction Trigger = "payment_requires_action"
)

// Order represents a customer order for precious-metals products.
type Order struct {
	ID               uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	OrderNumber      string          `json:"order_number" gorm:"uniqueIndex"`
	UserID           uuid.UUID       `json:"user_id" gorm:"type:uuid;index"`
	Type             OrderType       `json:"type"`
	Status           OrderStatus     `json:"status" gorm:"index"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `json:"subtotal" gorm:"type:numeric(18,2)"`
	ProcessingFee    decimal.Decimal `json:"processing_fee" gorm:"type:numeric(18,2)"`
	ShippingFee      decimal.Decimal `json:"shipping_fee" gorm:"type:numeric(18,2)"`
	InsuranceFee     decimal.Decimal `json:"insurance_fee" gorm:"type:numeric(18,2)"`
	Taxes            decimal.Decimal `json:"taxes" gorm:"type:numeric(18,2)"`
	Total            decimal.Decimal `json:"total" gorm:"type:numeric(18,2)"`
	CustodyServiceID *uuid.UUID      `json:"custody_service_id,omitempty" gorm:"type:uuid"`
	Items            []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItem is an immutable line item carrying the price snapshot captured
// at order-creation time. It is never re-read from the live catalog.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	OrderID     uuid.UUID       `json:"order_id" gorm:"type:uuid;index"`
	ProductID   uuid.UUID       `json:"product_id" gorm:"type:uuid;index"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2)"`
	TotalPrice  decimal.Decimal `json:"total_price" gorm:"type:numeric(18,2)"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderStatusHistory records every applied workflow transition.
type OrderStatusHistory struct {
	ID         uuid.UUID   `json:"id" gorm:"primaryKey;type:uuid"`
	OrderID    uuid.UUID   `json:"order_id" gorm:"type:uuid;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	Trigger    Trigger     `json:"trigger"`
	Actor      string      `json:"actor"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ProcessedPaymentEvent is the idempotency ledger entry for an external
// payment event id. Created once per distinct event, never updated.
type ProcessedPaymentEvent struct {
	EventID     string    `json:"event_id" gorm:"primaryKey"`
	OrderID     uuid.UUID `json:"order_id" gorm:"type:uuid;index"`
	EventType   string    `json:"event_type"`
	ProcessedAt time.Time `json:"processed_at"`
}

// TerminalStatuses is the set of states no trigger can leave.
var TerminalStatuses = map[OrderStatus]bool{
	StatusCompleted: true,
	StatusCancelled: true,
}

// IsTerminal reports whether s admits no further transitions.
func (s OrderStatus) IsTerminal() bool { return TerminalStatuses[s] }

// Valid reports whether s is a member of the defined status set.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCompleted, StatusCancelled,
		StatusPaymentFailed, StatusRequiresAction:
		return true
	}
	return false
}

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool { return t == TypeBuy || t == TypeSell }

// NewOrderNumber derives the human-readable order number from the order id.
// Stable once assigned: it is computed exactly once, at creation.
func NewOrderNumber(id uuid.UUID, createdAt time.Time) string {
	return fmt.Sprintf("PM-%d-%X", createdAt.Year(), id[:4])
}
