package notifications

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/palletworks/palletworks-backend/pkg/chat"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/email"
	"github.com/palletworks/palletworks-backend/pkg/logger"
	"github.com/palletworks/palletworks-backend/pkg/metrics"
)

const (
	ChannelCustomerEmail = "customer_email"
	ChannelMerchantEmail = "merchant_email"
	ChannelMerchantChat  = "merchant_chat"
)

// Input carries the records needed to notify both sides of a new order.
type Input struct {
	Order    models.Order
	Customer models.Customer
	Merchant models.Merchant
}

// ChannelResult is the per-channel dispatch outcome.
type ChannelResult struct {
	Channel string
	Skipped bool
	Err     error
}

// Dispatcher fans a new order out to three independent channels: customer
// confirmation email, merchant alert email, and merchant chat. Channels do
// not share a transaction and one failing never prevents the others.
type Dispatcher struct {
	email   email.Sender
	chat    chat.Sender
	logg    *logger.Logger
	metrics *metrics.ReconcileMetrics
}

// DispatcherParams bundles the dispatcher dependencies.
type DispatcherParams struct {
	Email   email.Sender
	Chat    chat.Sender
	Logger  *logger.Logger
	Metrics *metrics.ReconcileMetrics
}

// NewDispatcher builds the notification dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Email == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Chat == nil {
		return nil, fmt.Errorf("chat sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		email:   params.Email,
		chat:    params.Chat,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Dispatch attempts every channel and returns the per-channel results plus
// the combined error across failed channels.
func (d *Dispatcher) Dispatch(ctx context.Context, input Input) ([]ChannelResult, error) {
	results := []ChannelResult{
		d.sendCustomerEmail(ctx, input),
		d.sendMerchantEmail(ctx, input),
		d.sendMerchantChat(ctx, input),
	}

	var combined error
	for _, result := range results {
		if result.Err == nil {
			continue
		}
		combined = multierr.Append(combined, fmt.Errorf("%s: %w", result.Channel, result.Err))

		logCtx := d.logg.WithFields(ctx, map[string]any{
			"channel":  result.Channel,
			"order_id": input.Order.ID.String(),
		})
		d.logg.Error(logCtx, "notification channel failed", result.Err)
		d.metrics.IncStageFailure("notification_" + result.Channel)
	}
	return results, combined
}

func (d *Dispatcher) sendCustomerEmail(ctx context.Context, input Input) ChannelResult {
	result := ChannelResult{Channel: ChannelCustomerEmail}
	if input.Customer.Email == nil || *input.Customer.Email == "" {
		result.Skipped = true
		return result
	}

	carrierName := ""
	if input.Order.CarrierName != nil {
		carrierName = *input.Order.CarrierName
	}
	result.Err = d.email.SendOrderConfirmation(ctx, email.OrderConfirmationData{
		To:           *input.Customer.Email,
		CustomerName: input.Customer.Name,
		OrderNumber:  input.Order.OrderNumber,
		TotalCents:   input.Order.TotalCents,
		CarrierName:  carrierName,
	})
	return result
}

func (d *Dispatcher) sendMerchantEmail(ctx context.Context, input Input) ChannelResult {
	result := ChannelResult{Channel: ChannelMerchantEmail}

	recipients := append([]string{}, input.Merchant.AlertEmails...)
	if len(recipients) == 0 && input.Merchant.SupportEmail != "" {
		recipients = []string{input.Merchant.SupportEmail}
	}
	if len(recipients) == 0 {
		result.Skipped = true
		return result
	}

	msg := email.Message{
		To:      recipients,
		Subject: fmt.Sprintf("New order #%d", input.Order.OrderNumber),
		Body:    merchantAlertBody(input),
	}
	result.Err = d.email.Send(ctx, msg)
	return result
}

func (d *Dispatcher) sendMerchantChat(ctx context.Context, input Input) ChannelResult {
	result := ChannelResult{Channel: ChannelMerchantChat}
	if input.Merchant.ChatAddress == nil || *input.Merchant.ChatAddress == "" ||
		input.Merchant.ChatCredentials == nil || *input.Merchant.ChatCredentials == "" {
		result.Skipped = true
		return result
	}

	result.Err = d.chat.SendMessage(ctx, *input.Merchant.ChatAddress, merchantAlertBody(input), *input.Merchant.ChatCredentials)
	return result
}

func merchantAlertBody(input Input) string {
	return fmt.Sprintf(
		"New order #%d from %s for $%.2f (%s).",
		input.Order.OrderNumber, input.Customer.Name,
		float64(input.Order.TotalCents)/100, input.Order.FulfillmentType,
	)
}
