package iorderrepo

import (
	"context"

	"github.com/roms-labs/ingest-svc/internal/service/models/order"
)

// IOrderRepository defines the interface for order storage.
type IOrderRepository interface {
	// GetByNumber retrieves an order by its business key. Returns nil when absent
	GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error)

	// GetByID retrieves an order by its id. Returns nil when absent
	GetByID(ctx context.Context, id int64) (*order.Order, error)

	// List returns a page of orders matching the query, newest first,
	// along with the total number of matches
	List(ctx context.Context, q order.Query) ([]order.Order, int, error)

	// Insert creates a new order and returns it with its id assigned
	Insert(ctx context.Context, o order.Order) (order.Order, error)

	// Update overwrites the mutable fields of an existing order
	Update(ctx context.Context, o order.Order) error

	// InsertEvent appends an order event record
	InsertEvent(ctx context.Context, e order.Event) error
}
