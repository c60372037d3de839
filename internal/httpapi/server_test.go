package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/facade"
	"github.com/lemonmarkets/matching-engine/internal/idgen"
	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/lemonmarkets/matching-engine/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedIDGen struct{ id string }

func (g fixedIDGen) Generate() string { return g.id }

type fakeStore struct {
	inserted map[string]*models.Order
}

func newFakeStore() *fakeStore { return &fakeStore{inserted: make(map[string]*models.Order)} }

func (s *fakeStore) InsertOrder(ctx context.Context, order *models.Order) error {
	s.inserted[order.ID] = order
	return nil
}

func (s *fakeStore) LoadRestorableOrders(ctx context.Context) ([]*models.Order, error) {
	return nil, nil
}

func (s *fakeStore) BeginPass(ctx context.Context) (store.Pass, error) { return nil, nil }

func (s *fakeStore) LoadByID(ctx context.Context, id string) (*models.Order, error) {
	o, ok := s.inserted[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return o, nil
}

type noopQueue struct{ enqueued []string }

func (q *noopQueue) Enqueue(id string) { q.enqueued = append(q.enqueued, id) }

func newTestServer() (*Server, *fakeStore) {
	fs := newFakeStore()
	f := facade.New(fs, fixedIDGen{id: "order-1"}, &noopQueue{}, zap.NewNop(), nil)
	return New(f, fs, zap.NewNop()), fs
}

func TestHandleOrders_ValidSubmissionReturns201(t *testing.T) {
	s, _ := newTestServer()

	body, _ := json.Marshal(map[string]interface{}{
		"type":        "limit",
		"side":        "buy",
		"instrument":  "DE0001234567",
		"limit_price": "100.00",
		"quantity":    10,
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "order-1", resp.ID)
}

func TestHandleOrders_ValidationErrorReturns422(t *testing.T) {
	s, _ := newTestServer()

	body, _ := json.Marshal(map[string]interface{}{
		"type":       "limit",
		"side":       "buy",
		"instrument": "TOO_SHORT",
		"quantity":   10,
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "instrument", payload["field"])
}

func TestHandleOrders_WrongMethodReturns405(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleOrderByID_FoundReturns200(t *testing.T) {
	s, fs := newTestServer()
	fs.inserted["order-9"] = &models.Order{ID: "order-9", CreatedAt: time.Now().UTC(), Type: models.Market, Side: models.Sell, Instrument: "DE0001234567", Quantity: 5, Status: models.Open}

	req := httptest.NewRequest(http.MethodGet, "/orders/order-9", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "order-9", resp.ID)
}

func TestHandleOrderByID_NotFoundReturns404(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/orders/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

var _ idgen.Generator = fixedIDGen{}
