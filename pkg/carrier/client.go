package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/palletworks/palletworks-backend/pkg/config"
)

// Processor settles delivery charges with the shipping carrier.
type Processor interface {
	ProcessShippingOrder(ctx context.Context, req ShippingOrderRequest) error
}

// ShippingOrderRequest asks the carrier network to charge for a delivery.
type ShippingOrderRequest struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CarrierName string    `json:"carrier_name"`
	CostCents   int       `json:"cost_cents"`
}

// Client talks to the carrier payments gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(cfg config.CarrierConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// ProcessShippingOrder submits the delivery charge. The gateway treats the
// order id as an idempotency key, so replays of the same order are safe.
func (c *Client) ProcessShippingOrder(ctx context.Context, req ShippingOrderRequest) error {
	if c.baseURL == "" {
		return errors.New("carrier base url is not configured")
	}
	if req.OrderID == uuid.Nil {
		return errors.New("order id is required")
	}
	if strings.TrimSpace(req.CarrierName) == "" {
		return errors.New("carrier name is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding shipping order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/shipping-orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building shipping order request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.OrderID.String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("processing shipping order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("carrier gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
