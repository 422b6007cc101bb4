package orders

import (
	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// transitions is the closed workflow relation: (current status, trigger) ->
// next status. Absence means the transition is invalid. Authorization
// (owner vs admin cancel) is enforced by the orchestrator, not here; this
// table is the pure relation.
var transitions = map[OrderStatus]map[Trigger]OrderStatus{
	StatusPending: {
		TriggerProcess:               StatusConfirmed,
		TriggerCancel:                StatusCancelled,
		TriggerPaymentSucceeded:      StatusConfirmed,
		TriggerPaymentFailed:         StatusPaymentFailed,
		TriggerPaymentCanceled:       StatusCancelled,
		TriggerPaymentRequiresAction: StatusRequiresAction,
	},
	StatusConfirmed: {
		TriggerProcess: StatusProcessing,
		TriggerCancel:  StatusCancelled,
	},
	StatusProcessing: {
		TriggerProcess: StatusShipped,
		TriggerCancel:  StatusCancelled,
	},
	StatusShipped: {
		TriggerProcess: StatusDelivered,
		TriggerCancel:  StatusCancelled,
	},
	StatusDelivered: {
		TriggerProcess: StatusCompleted,
		TriggerCancel:  StatusCancelled,
	},
	// Payment sub-states: a later outcome event can still resolve the
	// order, and an admin can cancel it.
	StatusPaymentFailed: {
		TriggerCancel:                StatusCancelled,
		TriggerPaymentSucceeded:      StatusConfirmed,
		TriggerPaymentFailed:         StatusPaymentFailed,
		TriggerPaymentCanceled:       StatusCancelled,
		TriggerPaymentRequiresAction: StatusRequiresAction,
	},
	StatusRequiresAction: {
		TriggerCancel:                StatusCancelled,
		TriggerPaymentSucceeded:      StatusConfirmed,
		TriggerPaymentFailed:         StatusPaymentFailed,
		TriggerPaymentCanceled:       StatusCancelled,
		TriggerPaymentRequiresAction: StatusRequiresAction,
	},
}

// Next evaluates trigger against current and returns the resulting status.
// Invalid transitions are reported with the current state and attempted
// trigger so callers can render a precise message.
func Next(current OrderStatus, trigger Trigger) (OrderStatus, error) {
	if current.IsTerminal() {
		if trigger == TriggerCancel {
			return "", pkgerrors.Newf(pkgerrors.CodeAlreadyTerminal,
				"order is already %s and cannot be cancelled", current)
		}
		return "", pkgerrors.Newf(pkgerrors.CodeWorkflowInvalidState,
			"order is already %s; trigger %q is not applicable", current, trigger)
	}
	next, ok := transitions[current][trigger]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeWorkflowInvalidState,
			"trigger %q is not valid for an order in status %q", trigger, current)
	}
	return next, nil
}

// CanTransition reports whether trigger is applicable to current.
func CanTransition(current OrderStatus, trigger Trigger) bool {
	_, err := Next(current, trigger)
	return err == nil
}

// CancelAuthorization validates a cancel attempt for the given actor role.
// Owners may cancel only while the order is still pending; administrators
// may cancel from any non-terminal state.
func CancelAuthorization(current OrderStatus, admin bool) error {
	if current.IsTerminal() {
		return pkgerrors.Newf(pkgerrors.CodeAlreadyTerminal,
			"order is already %s and cannot be cancelled", current)
	}
	if !admin && current != StatusPending {
		return pkgerrors.Newf(pkgerrors.CodeForbidden,
			"orders in status %q can only be cancelled by an administrator", current)
	}
	return nil
}
