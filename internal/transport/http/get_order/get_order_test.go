package getorder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roms-labs/ingest-svc/internal/service/models/order"
	"github.com/roms-labs/ingest-svc/internal/service/services/ordersvc"
)

type stubService struct {
	order *order.Order
	err   error
}

func (s *stubService) GetOrder(_ context.Context, _ int64) (*order.Order, error) {
	return s.order, s.err
}

func serve(svc *stubService, target string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/api/orders/{orderID}", func(w http.ResponseWriter, r *http.Request) {
		GetOrder(w, r, svc)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func TestGetOrder_ReturnsOrder(t *testing.T) {
	svc := &stubService{order: &order.Order{ID: 7, OrderNumber: "BBY01-0007"}}

	rec := serve(svc, "/api/orders/7")

	require.Equal(t, http.StatusOK, rec.Code)

	var o order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, "BBY01-0007", o.OrderNumber)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &stubService{err: ordersvc.ErrOrderNotFound}

	rec := serve(svc, "/api/orders/404")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_RejectsNonNumericID(t *testing.T) {
	rec := serve(&stubService{}, "/api/orders/abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
