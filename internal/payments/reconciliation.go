package payments

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurumdesk/aurumdesk/internal/orders"
	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
	"github.com/aurumdesk/aurumdesk/pkg/metrics"
)

// Outcome classifies what reconciliation did with a delivery.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
)

// Result reports the reconciliation outcome for a verified event.
type Result struct {
	Outcome Outcome   `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	EventID string    `json:"event_id,omitempty"`
	OrderID uuid.UUID `json:"order_id,omitempty"`
}

// ReconciliationService maps verified payment events idempotently onto
// order workflow transitions.
type ReconciliationService struct {
	verifier *SignatureVerifier
	repo     *orders.Repository
	hooks    *orders.HookRunner
	logger   *zap.Logger
}

// NewReconciliationService creates the reconciliation service.
func NewReconciliationService(verifier *SignatureVerifier, repo *orders.Repository, hooks *orders.HookRunner, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{verifier: verifier, repo: repo, hooks: hooks, logger: logger}
}

// HandleEvent verifies, dedupes and applies one webhook delivery.
//
// The signature check is a hard boundary: nothing below it runs on a bad
// signature. Past that boundary the service prefers "ignored" over errors
// so the processor does not retry deliveries that can never apply;
// only transient store failures propagate as errors.
func (s *ReconciliationService) HandleEvent(ctx context.Context, body []byte, signature string) (*Result, error) {
	if err := s.verifier.Verify(body, signature); err != nil {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		return nil, err
	}

	event, err := ParseEvent(body)
	if err != nil {
		// Signed but unparseable: a retry cannot fix it.
		s.logger.Warn("ignoring unparseable payment event", zap.Error(err))
		return s.ignored("", uuid.Nil, "unparseable payload"), nil
	}

	logger := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	processed, err := s.repo.IsEventProcessed(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if processed {
		logger.Debug("duplicate payment event")
		return s.ignored(event.ID, uuid.Nil, "already processed"), nil
	}

	orderID, ok := event.OrderID()
	if !ok {
		logger.Info("payment event carries no order reference")
		return s.ignored(event.ID, uuid.Nil, "no order reference"), nil
	}

	trigger, ok := TriggerForEventType(event.Type)
	if !ok {
		logger.Info("unhandled payment event type")
		return s.ignored(event.ID, orderID, "unhandled event type"), nil
	}

	from, to, err := s.repo.ApplyPaymentEvent(ctx, orderID, trigger, event.ID, event.Type)
	if err != nil {
		switch pkgerrors.CodeOf(err) {
		case pkgerrors.CodeWorkflowInvalidState, pkgerrors.CodeAlreadyTerminal:
			// The order moved on (e.g. cancelled by an admin) before the
			// event arrived. Record the event so the ledger stops future
			// duplicates, and acknowledge.
			logger.Info("payment event not applicable to current order state", zap.Error(err))
			if _, recErr := s.repo.RecordEvent(ctx, event.ID, orderID, event.Type); recErr != nil {
				return nil, recErr
			}
			return s.ignored(event.ID, orderID, "order state does not accept event"), nil
		case pkgerrors.CodeConcurrentModification:
			// A concurrent delivery of the same event id won the ledger
			// insert, or another transition raced this one. Either way the
			// event's effect is accounted for exactly once.
			logger.Debug("payment event lost a concurrent race", zap.Error(err))
			return s.ignored(event.ID, orderID, "concurrent delivery"), nil
		case pkgerrors.CodeNotFound:
			logger.Warn("payment event references unknown order", zap.String("order_id", orderID.String()))
			return s.ignored(event.ID, orderID, "unknown order"), nil
		}
		return nil, err
	}

	metrics.WebhookEvents.WithLabelValues(string(OutcomeApplied)).Inc()
	metrics.StatusTransitions.WithLabelValues(string(trigger), "applied").Inc()
	logger.Info("payment event applied",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	// Side effects run strictly after the transition and ledger entry
	// committed; their failure cannot roll anything back.
	if order, getErr := s.repo.GetOrder(ctx, orderID); getErr == nil {
		s.hooks.Run(ctx, orders.NotifyPaymentApplied, order)
	} else {
		logger.Warn("order fetch for post-commit hooks failed", zap.Error(getErr))
	}

	return &Result{Outcome: OutcomeApplied, EventID: event.ID, OrderID: orderID}, nil
}

func (s *ReconciliationService) ignored(eventID string, orderID uuid.UUID, reason string) *Result {
	metrics.WebhookEvents.WithLabelValues(string(OutcomeIgnored)).Inc()
	return &Result{Outcome: OutcomeIgnored, Reason: reason, EventID: eventID, OrderID: orderID}
}
