// Package httpapi is the thin HTTP adapter over the submission
// facade. It carries no matching logic: it decodes a request,
// delegates to the facade, and renders the result.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lemonmarkets/matching-engine/internal/facade"
	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/lemonmarkets/matching-engine/internal/store"
	"go.uber.org/zap"
)

// OrderReader is the read path the GET /orders/{id} handler uses. It
// is a narrow, store-independent view so the server can be tested
// without a live database.
type OrderReader interface {
	LoadByID(ctx context.Context, id string) (*models.Order, error)
}

// Server is the net/http surface over the facade.
type Server struct {
	facade *facade.Facade
	orders OrderReader
	log    *zap.Logger
	mux    *http.ServeMux
}

// New wires routes for submission, lookup, and health.
func New(f *facade.Facade, orders OrderReader, log *zap.Logger) *Server {
	s := &Server{facade: f, orders: orders, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/orders", s.handleOrders)
	s.mux.HandleFunc("/orders/", s.handleOrderByID)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type submitRequestBody struct {
	Type       string `json:"type"`
	Side       string `json:"side"`
	Instrument string `json:"instrument"`
	LimitPrice string `json:"limit_price"`
	Quantity   int64  `json:"quantity"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_json", "request body is not valid JSON")
		return
	}

	resp, err := s.facade.Submit(r.Context(), models.SubmitRequest{
		Type:       body.Type,
		Side:       body.Side,
		Instrument: body.Instrument,
		LimitPrice: body.LimitPrice,
		Quantity:   body.Quantity,
	})
	if err != nil {
		var verr *facade.ValidationError
		if asValidationError(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, verr.Field, verr.Reason)
			return
		}
		s.log.Error("submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to submit order")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	id := r.URL.Path[len("/orders/"):]
	if id == "" {
		writeError(w, http.StatusNotFound, "not_found", "order id is required")
		return
	}

	order, err := s.orders.LoadByID(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		s.log.Error("load order failed", zap.String("order_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load order")
		return
	}

	writeJSON(w, http.StatusOK, order.ToResponse())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func asValidationError(err error, target **facade.ValidationError) bool {
	verr, ok := err.(*facade.ValidationError)
	if !ok {
		return false
	}
	*target = verr
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, field, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"field":   field,
		"message": message,
	})
}
