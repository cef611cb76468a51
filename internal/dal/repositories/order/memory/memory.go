package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/roms-labs/ingest-svc/internal/service/models/order"
)

// OrderRepository keeps orders in memory, keyed by order number. Used when
// the service runs without PostgreSQL.
type OrderRepository struct {
	mu       sync.Mutex
	byNumber map[string]order.Order
	events   []order.Event
	nextID   int64
}

// NewOrderRepository creates a new in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		byNumber: make(map[string]order.Order),
	}
}

// GetByNumber retrieves an order by its business key. Returns nil when absent.
func (r *OrderRepository) GetByNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byNumber[orderNumber]
	if !ok {
		return nil, nil
	}

	return &o, nil
}

// GetByID retrieves an order by its id. Returns nil when absent.
func (r *OrderRepository) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.byNumber {
		if o.ID == id {
			return &o, nil
		}
	}

	return nil, nil
}

// List returns a page of orders matching the query, newest first.
func (r *OrderRepository) List(_ context.Context, q order.Query) ([]order.Order, int, error) {
	q = q.Normalize()

	r.mu.Lock()
	matched := make([]order.Order, 0, len(r.byNumber))
	for _, o := range r.byNumber {
		if matchesQuery(o, q) {
			matched = append(matched, o)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := q.Offset()
	if start >= total {
		return []order.Order{}, total, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func matchesQuery(o order.Order, q order.Query) bool {
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	if q.Search == "" {
		return true
	}

	needle := strings.ToLower(q.Search)
	for _, field := range []string{o.OrderNumber, o.Product, o.Email} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}

	return false
}

// Insert creates a new order and returns it with its id assigned.
func (r *OrderRepository) Insert(_ context.Context, o order.Order) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	o.ID = r.nextID
	r.byNumber[o.OrderNumber] = o

	return o, nil
}

// Update overwrites the mutable fields of an existing order.
func (r *OrderRepository) Update(_ context.Context, o order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byNumber[o.OrderNumber] = o

	return nil
}

// InsertEvent appends an order event record.
func (r *OrderRepository) InsertEvent(_ context.Context, e order.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.ID = int64(len(r.events) + 1)
	r.events = append(r.events, e)

	return nil
}

// Events returns a copy of the recorded events.
func (r *OrderRepository) Events() []order.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]order.Event, len(r.events))
	copy(out, r.events)

	return out
}
