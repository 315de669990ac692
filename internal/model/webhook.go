package model

import "time"

// Webhook event names emitted by the order lifecycle.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status.changed"
	EventOrderReady         = "order.ready"
	EventPickupConfirmed    = "pickup.confirmed"
)

var AllEvents = []string{
	EventOrderCreated, EventOrderStatusChanged, EventOrderReady, EventPickupConfirmed,
}

func KnownEvent(name string) bool {
	for _, known := range AllEvents {
		if name == known {
			return true
		}
	}
	return false
}

// WebhookConfig subscribes an external URL to a set of lifecycle events.
type WebhookConfig struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WantsEvent reports whether the subscription covers the named event.
func (c WebhookConfig) WantsEvent(name string) bool {
	for _, ev := range c.Events {
		if ev == name {
			return true
		}
	}
	return false
}
