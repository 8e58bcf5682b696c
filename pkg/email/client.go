package email

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

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	SendOrderConfirmation(ctx context.Context, data OrderConfirmationData) error
}

// Message is a single transactional email.
type Message struct {
	To      []string
	From    string
	Subject string
	Body    string
}

// OrderConfirmationData feeds the order confirmation template. An empty
// CarrierName renders the pickup variant.
type OrderConfirmationData struct {
	To           string
	CustomerName string
	OrderNumber  int64
	TotalCents   int
	CarrierName  string
}

// Client talks to the SendGrid v3 mail API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	defaultFrom string
}

// NewClient builds the SendGrid-backed sender. An empty API key produces a
// client that fails on send rather than at startup, so dev environments can
// boot without credentials.
func NewClient(cfg config.EmailConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		defaultFrom: cfg.DefaultFrom,
	}
}

// SendOrderConfirmation renders the order confirmation template and delivers
// it to the buyer.
func (c *Client) SendOrderConfirmation(ctx context.Context, data OrderConfirmationData) error {
	return c.Send(ctx, Message{
		To:      []string{data.To},
		Subject: fmt.Sprintf("Order #%d confirmed", data.OrderNumber),
		Body:    orderConfirmationBody(data),
	})
}

func orderConfirmationBody(data OrderConfirmationData) string {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour order #%d has been confirmed. Total charged: $%.2f.",
		data.CustomerName, data.OrderNumber, float64(data.TotalCents)/100,
	)
	if data.CarrierName != "" {
		body += fmt.Sprintf("\nDelivery via %s.", data.CarrierName)
	} else {
		body += "\nYour order is ready for pickup arrangements."
	}
	return body
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send delivers the message to every recipient in a single API call.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.apiKey == "" {
		return errors.New("email api key is not configured")
	}

	recipients := []emailAddress{}
	for _, to := range msg.To {
		if addr := strings.TrimSpace(to); addr != "" {
			recipients = append(recipients, emailAddress{Email: addr})
		}
	}
	if len(recipients) == 0 {
		return errors.New("email message has no recipients")
	}

	from := msg.From
	if from == "" {
		from = c.defaultFrom
	}

	payload := sendRequest{
		Personalizations: []personalization{{To: recipients}},
		From:             emailAddress{Email: from},
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/plain", Value: msg.Body}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
