package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/palletworks/palletworks-backend/pkg/config"
)

// Sender delivers chat alerts to merchant-owned inboxes.
type Sender interface {
	SendMessage(ctx context.Context, to string, text string, credentials string) error
}

// Client posts messages through the chat gateway. Each merchant stores its own
// destination address and credentials, so both travel per call instead of
// living on the client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg config.ChatConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type messageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// SendMessage posts a plain-text message to the given chat address.
func (c *Client) SendMessage(ctx context.Context, to string, text string, credentials string) error {
	if c.baseURL == "" {
		return errors.New("chat base url is not configured")
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("chat destination is required")
	}
	if strings.TrimSpace(credentials) == "" {
		return errors.New("chat credentials are required")
	}

	body, err := json.Marshal(messageRequest{To: to, Text: text})
	if err != nil {
		return fmt.Errorf("encoding chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credentials)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending chat message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("chat gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
