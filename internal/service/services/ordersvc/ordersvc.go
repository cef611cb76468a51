package ordersvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/iorderrepo"
	"github.com/roms-labs/ingest-svc/internal/service/models/order"
)

// ErrOrderNotFound is returned when no order exists for the requested id.
var ErrOrderNotFound = errors.New("order not found")

// OrderService serves read access to orders assembled by the pipeline.
type OrderService struct {
	orderRepo iorderrepo.IOrderRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.orderRepo == nil {
		panic("order repository is required")
	}

	return s
}

// WithOrderRepository sets the order repository for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *OrderService) {
		s.orderRepo = repo
	}
}

// GetOrders returns a page of orders matching the query along with the
// total number of matches.
func (s *OrderService) GetOrders(ctx context.Context, q order.Query) ([]order.Order, int, error) {
	orders, total, err := s.orderRepo.List(ctx, q.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	if orders == nil {
		orders = []order.Order{}
	}

	return orders, total, nil
}

// GetOrder returns a single order by id.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	return o, nil
}
