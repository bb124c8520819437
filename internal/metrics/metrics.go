// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pedidos_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	// WebhookEvents counts inbound webhook deliveries by parsed kind.
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedidos_webhook_events_total",
			Help: "Inbound webhook events by kind",
		},
		[]string{"kind"},
	)

	// GatewaySends counts outbound messages by message type and result.
	GatewaySends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedidos_gateway_sends_total",
			Help: "Outbound WhatsApp messages by type and result",
		},
		[]string{"type", "result"},
	)

	// CatalogWrites counts catalog replace attempts.
	CatalogWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedidos_catalog_writes_total",
			Help: "Catalog replace attempts by result",
		},
		[]string{"result"},
	)

	// OrdersTotal counts closed carts.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedidos_orders_total",
			Help: "Orders closed by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSend records one gateway send.
func RecordSend(msgType string, err error) {
	GatewaySends.WithLabelValues(msgType, result(err)).Inc()
}

// RecordCatalogWrite records one catalog replace.
func RecordCatalogWrite(err error) {
	CatalogWrites.WithLabelValues(result(err)).Inc()
}
