package services

import (
	"go.uber.org/zap"
)

// EventPublisher publishes domain events. Implemented by *rabbitmq.Client.
type EventPublisher interface {
	PublishEvent(routingKey string, payload interface{}) error
}

// RegistrationEvent is published after products are registered.
type RegistrationEvent struct {
	Email          string   `json:"email"`
	SerialNumbers  []string `json:"serial_numbers"`
	InvoiceReceipt string   `json:"invoice_receipt,omitempty"`
	NewAccount     bool     `json:"new_account"`
}

// ClaimEvent is published when a claim is filed or its status changes.
type ClaimEvent struct {
	SerialNumber string `json:"serial_number"`
	Email        string `json:"email,omitempty"`
	FromStatus   string `json:"from_status,omitempty"`
	ClaimStatus  string `json:"claim_status"`
	ChangedBy    string `json:"changed_by,omitempty"`
}

// publish sends an event when a publisher is configured. Failures are
// logged; they never fail the request that produced the event.
func publish(log *zap.Logger, p EventPublisher, routingKey string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(routingKey, payload); err != nil {
		log.Warn("Failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
