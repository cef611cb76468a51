package processorsvc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/iorderrepo"
	"github.com/roms-labs/ingest-svc/internal/parser"
	"github.com/roms-labs/ingest-svc/internal/service/models/event"
	"github.com/roms-labs/ingest-svc/internal/service/models/message"
	"github.com/roms-labs/ingest-svc/internal/service/models/order"
)

// notifier broadcasts order updates to dashboard subscribers.
type notifier interface {
	Notify(update event.OrderUpdate)
}

// ProcessorService turns raw notification payloads into order rows. An
// order number is the business key: repeated notifications for the same
// number update the existing order instead of duplicating it.
type ProcessorService struct {
	orderRepo iorderrepo.IOrderRepository
	notifier  notifier
}

// option is a function that configures the ProcessorService.
type option func(*ProcessorService)

// MustNewProcessorService creates a new ProcessorService.
func MustNewProcessorService(opts ...option) *ProcessorService {
	s := &ProcessorService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.orderRepo == nil {
		panic("processorsvc: order repository is required")
	}

	return s
}

// WithOrderRepository sets the order repository for the ProcessorService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *ProcessorService) {
		s.orderRepo = repo
	}
}

// WithNotifier sets the broadcast sink for the ProcessorService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(n notifier) option {
	return func(s *ProcessorService) {
		s.notifier = n
	}
}

// Process parses the payload and upserts the order it describes. Parse
// failures are permanent; storage failures are transient.
func (s *ProcessorService) Process(ctx context.Context, msg message.InboundMessage) error {
	fields, err := parser.Parse(msg.Payload, msg.ContentType)
	if err != nil {
		return &PermanentError{Reason: "failed to parse payload", Err: err}
	}

	if fields.OrderNumber == "" {
		return &PermanentError{Reason: "payload has no order number"}
	}

	existing, err := s.orderRepo.GetByNumber(ctx, fields.OrderNumber)
	if err != nil {
		return &TransientError{Reason: "failed to load order", Err: err}
	}

	if existing == nil {
		return s.createOrder(ctx, msg, fields)
	}

	return s.updateOrder(ctx, msg, *existing, fields)
}

func (s *ProcessorService) createOrder(ctx context.Context, msg message.InboundMessage, fields parser.Fields) error {
	now := time.Now().UTC()

	o := orderFromFields(fields)
	o.CreatedAt = now
	o.UpdatedAt = now

	inserted, err := s.orderRepo.Insert(ctx, o)
	if err != nil {
		return &TransientError{Reason: "failed to insert order", Err: err}
	}

	if err := s.orderRepo.InsertEvent(ctx, order.Event{
		OrderID:     inserted.ID,
		EventType:   "created",
		Description: "Order created from webhook",
		Metadata:    msg.Payload,
		Source:      order.SourceWebhook,
		CreatedAt:   now,
	}); err != nil {
		return &TransientError{Reason: "failed to insert order event", Err: err}
	}

	slog.Info("Order created", "order_number", inserted.OrderNumber, "order_id", inserted.ID)

	s.notify(inserted, true)

	return nil
}

func (s *ProcessorService) updateOrder(ctx context.Context, msg message.InboundMessage, existing order.Order, fields parser.Fields) error {
	merged, changes := mergeOrder(existing, fields)
	if len(changes) == 0 {
		return nil
	}

	now := time.Now().UTC()
	merged.UpdatedAt = now

	if err := s.orderRepo.Update(ctx, merged); err != nil {
		return &TransientError{Reason: "failed to update order", Err: err}
	}

	if err := s.orderRepo.InsertEvent(ctx, order.Event{
		OrderID:     merged.ID,
		EventType:   "updated",
		Description: "Order updated from webhook. Changes: " + strings.Join(changes, ", "),
		Metadata:    msg.Payload,
		Source:      order.SourceWebhook,
		CreatedAt:   now,
	}); err != nil {
		return &TransientError{Reason: "failed to insert order event", Err: err}
	}

	slog.Info("Order updated", "order_number", merged.OrderNumber, "changes", len(changes))

	s.notify(merged, false)

	return nil
}

func (s *ProcessorService) notify(o order.Order, created bool) {
	if s.notifier == nil {
		return
	}

	s.notifier.Notify(event.OrderUpdate{
		Type:        event.TypeOrderUpdate,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Product:     o.Product,
		Status:      o.Status.String(),
		Created:     created,
		UpdatedAt:   o.UpdatedAt,
	})
}

func orderFromFields(fields parser.Fields) order.Order {
	return order.Order{
		OrderNumber:     fields.OrderNumber,
		Product:         fields.Product,
		Price:           fields.Price,
		Total:           fields.Total,
		Commission:      fields.Commission,
		Quantity:        fields.Quantity,
		Email:           fields.Email,
		CustomerName:    fields.CustomerName,
		Profile:         fields.Profile,
		ProxyList:       fields.ProxyList,
		ReferenceNumber: fields.ReferenceNumber,
		Status:          fields.Status,
		TrackingNumber:  fields.TrackingNumber,
		PaymentMethod:   fields.PaymentMethod,
		ShippingAddress: fields.ShippingAddress,
		ShippingMethod:  fields.ShippingMethod,
		Notes:           fields.Notes,
		Source:          order.SourceWebhook,
		OrderDate:       fields.OrderDate,
	}
}

// mergeOrder overlays non-empty incoming fields onto the existing order
// and reports what changed.
func mergeOrder(existing order.Order, fields parser.Fields) (order.Order, []string) {
	merged := existing
	var changes []string

	mergeString(&merged.Product, fields.Product, "product", &changes)
	mergeFloat(&merged.Price, fields.Price, "price", &changes)
	mergeFloat(&merged.Total, fields.Total, "total", &changes)
	mergeFloat(&merged.Commission, fields.Commission, "commission", &changes)
	mergeInt(&merged.Quantity, fields.Quantity, "quantity", &changes)
	mergeString(&merged.Email, fields.Email, "email", &changes)
	mergeString(&merged.CustomerName, fields.CustomerName, "customer_name", &changes)
	mergeString(&merged.Profile, fields.Profile, "profile", &changes)
	mergeString(&merged.ProxyList, fields.ProxyList, "proxy_list", &changes)
	mergeString(&merged.ReferenceNumber, fields.ReferenceNumber, "reference_number", &changes)
	mergeString(&merged.TrackingNumber, fields.TrackingNumber, "tracking_number", &changes)
	mergeString(&merged.PaymentMethod, fields.PaymentMethod, "payment_method", &changes)
	mergeString(&merged.ShippingAddress, fields.ShippingAddress, "shipping_address", &changes)
	mergeString(&merged.ShippingMethod, fields.ShippingMethod, "shipping_method", &changes)
	mergeString(&merged.Notes, fields.Notes, "notes", &changes)

	if fields.Status != "" && fields.Status != merged.Status {
		changes = append(changes, fmt.Sprintf("status: %s -> %s", merged.Status, fields.Status))
		merged.Status = fields.Status
	}

	return merged, changes
}

func mergeString(dst *string, src, name string, changes *[]string) {
	if src == "" || src == *dst {
		return
	}
	*changes = append(*changes, fmt.Sprintf("%s: %s -> %s", name, *dst, src))
	*dst = src
}

func mergeFloat(dst *float64, src float64, name string, changes *[]string) {
	if src == 0 || src == *dst {
		return
	}
	*changes = append(*changes, fmt.Sprintf("%s: %v -> %v", name, *dst, src))
	*dst = src
}

func mergeInt(dst *int, src int, name string, changes *[]string) {
	if src == 0 || src == *dst {
		return
	}
	*changes = append(*changes, fmt.Sprintf("%s: %d -> %d", name, *dst, src))
	*dst = src
}
