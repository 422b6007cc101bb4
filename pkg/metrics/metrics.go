package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrdersCreated counts committed orders by type (buy/sell)
var OrdersCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurumdesk_orders_created_total",
		Help: "Total number of orders committed to the store",
	},
	[]string{"type"},
)

// OrdersRejected counts order creation failures by error code
var OrdersRejected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurumdesk_orders_rejected_total",
		Help: "Total number of order creation attempts rejected",
	},
	[]string{"code"},
)

// StatusTransitions counts workflow transitions by trigger and outcome
var StatusTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurumdesk_order_status_transitions_total",
		Help: "Total number of order workflow transition attempts",
	},
	[]string{"trigger", "outcome"},
)

// WebhookEvents counts payment webhook deliveries by outcome
// (applied/ignored/rejected)
var WebhookEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurumdesk_payment_webhook_events_total",
		Help: "Total number of payment webhook deliveries by outcome",
	},
	[]string{"outcome"},
)

// OrderCreateLatency records latency distribution for order creation
var OrderCreateLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "aurumdesk_order_create_latency_seconds",
		Help:    "Latency in seconds to enrich, price and persist an order",
		Buckets: prometheus.DefBuckets,
	},
)

func init() {
	prometheus.MustRegister(OrdersCreated, OrdersRejected, StatusTransitions, WebhookEvents, OrderCreateLatency)
}
