package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/roms-labs/ingest-svc/internal/dal/postgres"
	"github.com/roms-labs/ingest-svc/internal/service/models/order"
)

// OrderRepository implements the order repository for PostgreSQL.
type OrderRepository struct {
	client *postgres.Client
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(client *postgres.Client) *OrderRepository {
	return &OrderRepository{
		client: client,
	}
}

var orderColumns = []string{
	"id",
	"order_number",
	"product",
	"price",
	"total",
	"commission",
	"quantity",
	"email",
	"customer_name",
	"profile",
	"proxy_list",
	"reference_number",
	"status",
	"tracking_number",
	"payment_method",
	"shipping_address",
	"shipping_method",
	"notes",
	"source",
	"order_date",
	"created_at",
	"updated_at",
}

func selectOrders() sq.SelectBuilder {
	return sq.Select(orderColumns...).
		From("orders").
		PlaceholderFormat(sq.Dollar)
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var o order.Order
	var status string
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.Product,
		&o.Price,
		&o.Total,
		&o.Commission,
		&o.Quantity,
		&o.Email,
		&o.CustomerName,
		&o.Profile,
		&o.ProxyList,
		&o.ReferenceNumber,
		&status,
		&o.TrackingNumber,
		&o.PaymentMethod,
		&o.ShippingAddress,
		&o.ShippingMethod,
		&o.Notes,
		&o.Source,
		&o.OrderDate,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	o.Status = order.Status(status)

	return o, nil
}

// GetByNumber retrieves an order by its business key. Returns nil when absent.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"order_number": orderNumber})
}

// GetByID retrieves an order by its id. Returns nil when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *OrderRepository) getOne(ctx context.Context, pred sq.Eq) (*order.Order, error) {
	query, args, err := selectOrders().Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := scanOrder(r.client.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &o, nil
}

// List returns a page of orders matching the query, newest first,
// along with the total number of matches.
func (r *OrderRepository) List(ctx context.Context, q order.Query) ([]order.Order, int, error) {
	q = q.Normalize()

	filters := listFilters(q)

	countQuery, countArgs, err := sq.Select("count(*)").
		From("orders").
		Where(filters).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.client.Pool().QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query, args, err := selectOrders().
		Where(filters).
		OrderBy("created_at DESC").
		Limit(uint64(q.PageSize)).
		Offset(uint64(q.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]order.Order, 0, q.PageSize)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, total, nil
}

func listFilters(q order.Query) sq.And {
	filters := sq.And{}
	if q.Status != "" {
		filters = append(filters, sq.Eq{"status": q.Status.String()})
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		filters = append(filters, sq.Or{
			sq.ILike{"order_number": pattern},
			sq.ILike{"product": pattern},
			sq.ILike{"email": pattern},
		})
	}

	return filters
}

// Insert creates a new order and returns it with its id assigned.
func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	query, args, err := sq.Insert("orders").
		Columns(
			"order_number",
			"product",
			"price",
			"total",
			"commission",
			"quantity",
			"email",
			"customer_name",
			"profile",
			"proxy_list",
			"reference_number",
			"status",
			"tracking_number",
			"payment_method",
			"shipping_address",
			"shipping_method",
			"notes",
			"source",
			"order_date",
			"created_at",
			"updated_at",
		).
		Values(
			o.OrderNumber,
			o.Product,
			o.Price,
			o.Total,
			o.Commission,
			o.Quantity,
			o.Email,
			o.CustomerName,
			o.Profile,
			o.ProxyList,
			o.ReferenceNumber,
			o.Status.String(),
			o.TrackingNumber,
			o.PaymentMethod,
			o.ShippingAddress,
			o.ShippingMethod,
			o.Notes,
			o.Source,
			o.OrderDate,
			o.CreatedAt,
			o.UpdatedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.client.Pool().QueryRow(ctx, query, args...).Scan(&o.ID); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// Update overwrites the mutable fields of an existing order.
func (r *OrderRepository) Update(ctx context.Context, o order.Order) error {
	query, args, err := sq.Update("orders").
		Set("product", o.Product).
		Set("price", o.Price).
		Set("total", o.Total).
		Set("commission", o.Commission).
		Set("quantity", o.Quantity).
		Set("email", o.Email).
		Set("customer_name", o.CustomerName).
		Set("profile", o.Profile).
		Set("proxy_list", o.ProxyList).
		Set("reference_number", o.ReferenceNumber).
		Set("status", o.Status.String()).
		Set("tracking_number", o.TrackingNumber).
		Set("payment_method", o.PaymentMethod).
		Set("shipping_address", o.ShippingAddress).
		Set("shipping_method", o.ShippingMethod).
		Set("notes", o.Notes).
		Set("updated_at", o.UpdatedAt).
		Where(sq.Eq{"id": o.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	return nil
}

// InsertEvent appends an order event record.
func (r *OrderRepository) InsertEvent(ctx context.Context, e order.Event) error {
	query, args, err := sq.Insert("order_events").
		Columns(
			"order_id",
			"event_type",
			"description",
			"metadata",
			"source",
			"created_at",
		).
		Values(
			e.OrderID,
			e.EventType,
			e.Description,
			e.Metadata,
			e.Source,
			e.CreatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order event: %w", err)
	}

	return nil
}
