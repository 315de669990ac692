package model

import (
	"fmt"
	"time"
)

// OrderStatus is the fulfillment stage of an order. The lifecycle is
// permissive: any status may move to any other status; a transition to the
// current status is rejected as a no-op.
type OrderStatus string

const (
	StatusNew       OrderStatus = "new"
	StatusPrepping  OrderStatus = "prepping"
	StatusPrinting  OrderStatus = "printing"
	StatusFinished  OrderStatus = "finished"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusArchived  OrderStatus = "archived"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusNew, StatusPrepping, StatusPrinting, StatusFinished,
	StatusReady, StatusDelivered, StatusArchived,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the status may change to next. The only
// rejected move is the identity transition; callers surface it as a no-op.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return next.Valid() && next != s
}

type Attachment struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"-"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

type Order struct {
	ID            string       `json:"id"`
	VendorID      string       `json:"vendor_id"`
	VendorName    string       `json:"vendor_name"`
	ItemName      string       `json:"item_name"`
	Quantity      int          `json:"quantity"`
	ColorMaterial string       `json:"color_material,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	PreferredDate *time.Time   `json:"preferred_date,omitempty"`
	Status        OrderStatus  `json:"status"`
	PickupTime    *time.Time   `json:"pickup_time,omitempty"`
	Version       int64        `json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Attachments   []Attachment `json:"attachments"`
}

// StatusEvent is an audit row written on order creation and on every
// successful status transition.
type StatusEvent struct {
	ID        string       `json:"id"`
	OrderID   string       `json:"order_id"`
	ActorID   string       `json:"actor_id"`
	OldStatus *OrderStatus `json:"old_status,omitempty"`
	NewStatus OrderStatus  `json:"new_status"`
	EventType string       `json:"event_type"`
	CreatedAt time.Time    `json:"created_at"`
}
