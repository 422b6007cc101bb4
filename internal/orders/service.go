package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurumdesk/aurumdesk/internal/auth"
	"github.com/aurumdesk/aurumdesk/internal/custody"
	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
	"github.com/aurumdesk/aurumdesk/pkg/metrics"
)

// CreateOrderRequest is the enriched-and-validated input to order
// creation, produced by the HTTP layer.
type CreateOrderRequest struct {
	UserID           uuid.UUID
	Type             OrderType
	Items            []ItemRequest
	CustodyServiceID *uuid.UUID
}

// TransitionResult reports a workflow step taken on an order.
type TransitionResult struct {
	OrderID        uuid.UUID   `json:"order_id"`
	PreviousStatus OrderStatus `json:"previous_status"`
	NewStatus      OrderStatus `json:"new_status"`
}

// Service is the order orchestrator: it wires enrichment, calculation and
// persistence for creation, and exposes the workflow operations.
type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	ProcessOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*TransitionResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*Order, error)
	ListOrders(ctx context.Context, actor auth.Actor, limit, offset int) ([]*Order, int64, error)
	OrderHistory(ctx context.Context, orderID uuid.UUID, actor auth.Actor) ([]OrderStatusHistory, error)
}

type service struct {
	repo      *Repository
	enricher  *StockEnrichmentValidator
	custodian custody.ReferenceChecker
	pricing   PricingConfig
	hooks     *HookRunner
	logger    *zap.Logger
}

// NewService creates the order orchestrator.
func NewService(repo *Repository, enricher *StockEnrichmentValidator, custodian custody.ReferenceChecker, pricing PricingConfig, hooks *HookRunner, logger *zap.Logger) Service {
	return &service{
		repo:      repo,
		enricher:  enricher,
		custodian: custodian,
		pricing:   pricing,
		hooks:     hooks,
		logger:    logger,
	}
}

// CreateOrder enriches the requested items, prices them, and persists the
// order atomically. Nothing is written when enrichment or calculation
// rejects the request.
func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	start := time.Now()
	order, err := s.createOrder(ctx, req)
	if err != nil {
		metrics.OrdersRejected.WithLabelValues(string(pkgerrors.CodeOf(err))).Inc()
		return nil, err
	}
	metrics.OrdersCreated.WithLabelValues(string(order.Type)).Inc()
	metrics.OrderCreateLatency.Observe(time.Since(start).Seconds())

	s.hooks.Run(ctx, NotifyOrderCreated, order)
	return order, nil
}

func (s *service) createOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if !req.Type.Valid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidInput, "unknown order type %q", req.Type)
	}
	if req.CustodyServiceID != nil {
		if err := s.custodian.CheckReference(ctx, *req.CustodyServiceID); err != nil {
			return nil, err
		}
	}

	enriched, err := s.enricher.Enrich(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	currency := enriched[0].Currency
	lines := make([]LineInput, len(enriched))
	for i, item := range enriched {
		if item.Currency != currency {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidInput,
				"items are priced in mixed currencies (%s and %s)", currency, item.Currency)
		}
		lines[i] = LineInput{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}

	totals, err := ComputeTotals(lines, s.pricing)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	orderID := uuid.New()
	order := &Order{
		ID:               orderID,
		OrderNumber:      NewOrderNumber(orderID, now),
		UserID:           req.UserID,
		Type:             req.Type,
		Status:           StatusPending,
		Currency:         currency,
		Subtotal:         totals.Subtotal,
		ProcessingFee:    totals.ProcessingFee,
		ShippingFee:      totals.ShippingFee,
		InsuranceFee:     totals.InsuranceFee,
		Taxes:            totals.Taxes,
		Total:            totals.Total,
		CustodyServiceID: req.CustodyServiceID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, item := range enriched {
		order.Items = append(order.Items, OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  round2(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))),
			CreatedAt:   now,
		})
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID.String()),
		zap.String("type", string(order.Type)),
		zap.String("total", order.Total.String()))
	return order, nil
}

// ProcessOrder advances the order exactly one step along the fulfillment
// chain. The actor must own the order or be an administrator.
func (s *service) ProcessOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*TransitionResult, error) {
	order, err := s.visibleOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	from, to, err := s.repo.TransitionStatus(ctx, orderID, TriggerProcess, actorLabel(actor), nil)
	if err != nil {
		metrics.StatusTransitions.WithLabelValues(string(TriggerProcess), "rejected").Inc()
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(TriggerProcess), "applied").Inc()

	order.Status = to
	s.hooks.Run(ctx, NotifyOrderAdvanced, order)

	s.logger.Info("order advanced",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return &TransitionResult{OrderID: orderID, PreviousStatus: from, NewStatus: to}, nil
}

// CancelOrder cancels the order. Owners may cancel while pending;
// administrators from any non-terminal state. The authorization rule is
// re-evaluated against the persisted status inside the transition
// transaction.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*Order, error) {
	order, err := s.visibleOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	guard := func(current OrderStatus) error {
		return CancelAuthorization(current, actor.Admin)
	}
	_, to, err := s.repo.TransitionStatus(ctx, orderID, TriggerCancel, actorLabel(actor), guard)
	if err != nil {
		metrics.StatusTransitions.WithLabelValues(string(TriggerCancel), "rejected").Inc()
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(TriggerCancel), "applied").Inc()

	order.Status = to
	order.UpdatedAt = time.Now()
	s.hooks.Run(ctx, NotifyOrderCancelled, order)

	s.logger.Info("order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("actor", actorLabel(actor)))
	return order, nil
}

// GetOrder returns the order when the actor owns it or is an
// administrator. Other callers observe NotFound rather than Forbidden so
// order ids do not leak.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*Order, error) {
	return s.visibleOrder(ctx, orderID, actor)
}

// ListOrders returns a page of the actor's own orders.
func (s *service) ListOrders(ctx context.Context, actor auth.Actor, limit, offset int) ([]*Order, int64, error) {
	return s.repo.ListOrdersByUser(ctx, actor.UserID, limit, offset)
}

// OrderHistory returns the applied transitions for an order the actor may
// see.
func (s *service) OrderHistory(ctx context.Context, orderID uuid.UUID, actor auth.Actor) ([]OrderStatusHistory, error) {
	if _, err := s.visibleOrder(ctx, orderID, actor); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, orderID)
}

func (s *service) visibleOrder(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
	}
	return order, nil
}

func actorLabel(actor auth.Actor) string {
	if actor.Admin {
		return fmt.Sprintf("admin:%s", actor.UserID)
	}
	return fmt.Sprintf("user:%s", actor.UserID)
}
