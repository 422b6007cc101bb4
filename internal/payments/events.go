package payments

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aurumdesk/aurumdesk/internal/orders"
	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// Event is the processor's webhook envelope. The linked order id travels
// in the payment object's metadata, written there at checkout time.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData wraps the payment object the event describes.
type EventData struct {
	Object EventObject `json:"object"`
}

// EventObject is the payment intent carried by the event.
type EventObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// metadataOrderKey is the metadata field carrying the linked order id.
const metadataOrderKey = "order_id"

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, "unparseable event payload", err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "event is missing id or type")
	}
	return &event, nil
}

// OrderID extracts the linked order id from the event metadata. Not every
// processor event targets an order.
func (e *Event) OrderID() (uuid.UUID, bool) {
	raw, ok := e.Data.Object.Metadata[metadataOrderKey]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// triggerByEventType maps processor event types onto workflow triggers.
var triggerByEventType = map[string]orders.Trigger{
	"payment_intent.succeeded":       orders.TriggerPaymentSucceeded,
	"payment_intent.payment_failed":  orders.TriggerPaymentFailed,
	"payment_intent.canceled":        orders.TriggerPaymentCanceled,
	"payment_intent.requires_action": orders.TriggerPaymentRequiresAction,
}

// TriggerForEventType returns the workflow trigger for a processor event
// type, when one is defined.
func TriggerForEventType(eventType string) (orders.Trigger, bool) {
	trigger, ok := triggerByEventType[eventType]
	return trigger, ok
}
