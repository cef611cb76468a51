package event

import (
	"time"
)

const TypeOrderUpdate = "order_update"

// OrderUpdate is broadcast to dashboard subscribers after a message is
// processed successfully.
type OrderUpdate struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Product     string    `json:"product"`
	Status      string    `json:"status,omitempty"`
	Created     bool      `json:"created"`
	UpdatedAt   time.Time `json:"updated_at"`
}
