package order

import (
	"time"
)

const SourceWebhook = "webhook"

// Order represents a tracked order assembled from notification payloads.
// OrderNumber is the business key; notifications for the same number
// update the existing row instead of creating a duplicate.
type Order struct {
	ID              int64     `json:"id"`
	OrderNumber     string    `json:"order_number"`
	Product         string    `json:"product"`
	Price           float64   `json:"price"`
	Total           float64   `json:"total,omitempty"`
	Commission      float64   `json:"commission,omitempty"`
	Quantity        int       `json:"quantity"`
	Email           string    `json:"email,omitempty"`
	CustomerName    string    `json:"customer_name,omitempty"`
	Profile         string    `json:"profile,omitempty"`
	ProxyList       string    `json:"proxy_list,omitempty"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	Status          Status    `json:"status,omitempty"`
	TrackingNumber  string    `json:"tracking_number,omitempty"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	ShippingMethod  string    `json:"shipping_method,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Source          string    `json:"source"`
	OrderDate       time.Time `json:"order_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Event records a single mutation of an order.
type Event struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	Metadata    []byte    `json:"metadata,omitempty"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}
