// Package metrics определяет счётчики prometheus для потока зачисления покупок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEventsReceived — все полученные события webhook, по типу события.
	WebhookEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_webhook_events_received_total",
		Help: "Webhook events received from the payment gateway.",
	}, []string{"event_type"})

	// PurchasesFulfilled — успешно зачисленные покупки, по источнику
	// (webhook или client_fallback).
	PurchasesFulfilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_purchases_fulfilled_total",
		Help: "Purchases credited to a user entitlement.",
	}, []string{"source"})

	// PurchasesDuplicate — повторные доставки уже зачисленных сессий.
	PurchasesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_service_purchases_duplicate_total",
		Help: "Deliveries acknowledged as no-ops because the session was already credited.",
	})

	// WebhookRejected — отклонённые события, по причине
	// (bad_signature, malformed).
	WebhookRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_webhook_rejected_total",
		Help: "Webhook events rejected before fulfillment.",
	}, []string{"reason"})
)
