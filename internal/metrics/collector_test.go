package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_RegistersWithoutPanicking(t *testing.T) {
	require.NotPanics(t, func() {
		New()
	})
}

func TestCollector_HandlerServesExposition(t *testing.T) {
	c := New()
	c.OrdersSubmittedTotal.Inc()
	c.PlacementOutcomes.WithLabelValues("ok").Inc()
	c.QueueDepth.Set(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "matching_engine_orders_submitted_total 1")
	require.Contains(t, body, `matching_engine_placement_outcomes_total{outcome="ok"} 1`)
	require.Contains(t, body, "matching_engine_queue_depth 3")
}

func TestNew_IndependentInstancesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.OrdersMatchedTotal.Inc()
	require.NotSame(t, a.Handler(), b.Handler())
}
