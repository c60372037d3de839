package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/models"
)

// HTTPClient forwards residual orders to an upstream HTTP placement
// endpoint and classifies the response.
type HTTPClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewHTTPClient returns an HTTPClient posting to url with a bounded timeout.
func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type placementRequest struct {
	OrderID    string `json:"order_id"`
	Instrument string `json:"instrument"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Quantity   int64  `json:"quantity"`
}

// PlaceOrder submits order upstream and classifies the outcome.
// Network errors and 5xx responses are Transient; 4xx are Permanent.
func (c *HTTPClient) PlaceOrder(ctx context.Context, order *models.Order) (Result, error) {
	body, err := json.Marshal(placementRequest{
		OrderID:    order.ID,
		Instrument: order.Instrument,
		Side:       string(order.Side),
		Type:       string(order.Type),
		Quantity:   order.Quantity,
	})
	if err != nil {
		return Result{Outcome: Permanent, Reason: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: Permanent, Reason: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || strings.Contains(err.Error(), "connection") {
			return Result{Outcome: Transient, Reason: fmt.Sprintf("%s: %v", TransientMarker, err)}, nil
		}
		return Result{Outcome: Transient, Reason: err.Error()}, nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Result{Outcome: Ok}, nil
	case resp.StatusCode >= 500:
		return Result{Outcome: Transient, Reason: fmt.Sprintf("%s: upstream status %d", TransientMarker, resp.StatusCode)}, nil
	default:
		return Result{Outcome: Permanent, Reason: fmt.Sprintf("upstream status %d", resp.StatusCode)}, nil
	}
}
