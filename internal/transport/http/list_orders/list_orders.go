package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/roms-labs/ingest-svc/internal/service/models/order"
)

type service interface {
	GetOrders(ctx context.Context, q order.Query) ([]order.Order, int, error)
}

var validate = validator.New()

// Zero page and page_size mean "not provided" and fall back to defaults.
type listOrdersRequest struct {
	Page     int    `schema:"page"      validate:"gte=0"`
	PageSize int    `schema:"page_size" validate:"gte=0,lte=1000"`
	Status   string `schema:"status"`
	Search   string `schema:"search"`
}

func (req *listOrdersRequest) toQuery() (order.Query, error) {
	q := order.Query{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   strings.TrimSpace(req.Search),
	}

	if req.Status != "" {
		status, err := order.ParseStatus(req.Status)
		if err != nil {
			return order.Query{}, err
		}
		q.Status = status
	}

	return q.Normalize(), nil
}

type listOrdersResponse struct {
	Orders      []order.Order `json:"orders"`
	Total       int           `json:"total"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
}

// ListOrders serves the dashboard order listing with pagination, an
// optional status filter and a search over order number, product and email.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	req := &listOrdersRequest{}
	if err := decoder.Decode(req, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	q, err := req.toQuery()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	orders, total, err := service.GetOrders(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting orders", "error", err)

		return
	}

	resp := listOrdersResponse{
		Orders:      orders,
		Total:       total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		HasNext:     q.Page*q.PageSize < total,
		HasPrevious: q.Page > 1,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
