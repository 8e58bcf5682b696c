package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	"github.com/palletworks/palletworks-backend/pkg/outbox"
	"github.com/palletworks/palletworks-backend/pkg/outbox/payloads"
)

type fakeOrderLoader struct {
	order *models.Order
	err   error
}

func (f *fakeOrderLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.order, f.err
}

type fakeCustomerLoader struct {
	customer *models.Customer
	err      error
}

func (f *fakeCustomerLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return f.customer, f.err
}

type fakeMerchantRepo struct {
	merchant *models.Merchant
	err      error
}

func (f *fakeMerchantRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	return f.merchant, f.err
}

func orderCreatedEnvelope(t *testing.T, orderID uuid.UUID) outbox.PayloadEnvelope {
	t.Helper()

	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:     orderID,
		OrderNumber: 42,
	})
	require.NoError(t, err)

	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	}
}

func newTestConsumer(t *testing.T, emailSender *fakeEmailSender, chatSender *fakeChatSender, order *models.Order, customer *models.Customer, merchant *models.Merchant) *Consumer {
	t.Helper()

	consumer, err := NewConsumer(ConsumerParams{
		Dispatcher: newTestDispatcher(t, emailSender, chatSender),
		Orders:     &fakeOrderLoader{order: order},
		Customers:  &fakeCustomerLoader{customer: customer},
		Merchants:  &fakeMerchantRepo{merchant: merchant},
		Logger:     testLogger(),
	})
	require.NoError(t, err)
	return consumer
}

func TestConsumerDispatchesOrderCreated(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: 42, CustomerID: uuid.New(), MerchantID: uuid.New()}
	customer := &models.Customer{ID: order.CustomerID, Name: "Dana Retail", Email: strPtr("dana@example.com")}
	merchant := &models.Merchant{ID: order.MerchantID, SupportEmail: "support@acme.example"}

	emailSender := &fakeEmailSender{}
	consumer := newTestConsumer(t, emailSender, &fakeChatSender{}, order, customer, merchant)

	err := consumer.Process(context.Background(), enums.EventOrderCreated, orderCreatedEnvelope(t, order.ID))

	require.NoError(t, err)
	require.Len(t, emailSender.confirmations, 1)
	assert.Equal(t, "dana@example.com", emailSender.confirmations[0].To)
	assert.Len(t, emailSender.sent, 1)
}

func TestConsumerIgnoresOtherEventTypes(t *testing.T) {
	emailSender := &fakeEmailSender{}
	consumer := newTestConsumer(t, emailSender, &fakeChatSender{}, nil, nil, nil)

	err := consumer.Process(context.Background(), enums.EventStockAdjusted, orderCreatedEnvelope(t, uuid.New()))

	require.NoError(t, err)
	assert.Empty(t, emailSender.sent)
}

func TestConsumerRejectsMalformedPayload(t *testing.T) {
	consumer := newTestConsumer(t, &fakeEmailSender{}, &fakeChatSender{}, nil, nil, nil)

	envelope := outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    json.RawMessage(`{broken`),
	}
	err := consumer.Process(context.Background(), enums.EventOrderCreated, envelope)
	assert.Error(t, err)

	envelope = orderCreatedEnvelope(t, uuid.Nil)
	err = consumer.Process(context.Background(), enums.EventOrderCreated, envelope)
	assert.Error(t, err)
}

func TestConsumerReturnsErrorWhenOrderLoadFails(t *testing.T) {
	consumer, err := NewConsumer(ConsumerParams{
		Dispatcher: newTestDispatcher(t, &fakeEmailSender{}, &fakeChatSender{}),
		Orders:     &fakeOrderLoader{err: errors.New("db down")},
		Customers:  &fakeCustomerLoader{},
		Merchants:  &fakeMerchantRepo{},
		Logger:     testLogger(),
	})
	require.NoError(t, err)

	err = consumer.Process(context.Background(), enums.EventOrderCreated, orderCreatedEnvelope(t, uuid.New()))
	assert.Error(t, err)
}

func TestConsumerPartialChannelFailureStillAcks(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: 42, CustomerID: uuid.New(), MerchantID: uuid.New()}
	customer := &models.Customer{ID: order.CustomerID, Name: "Dana Retail", Email: strPtr("dana@example.com")}
	merchant := &models.Merchant{
		ID:              order.MerchantID,
		SupportEmail:    "support@acme.example",
		ChatAddress:     strPtr("acme-channel"),
		ChatCredentials: strPtr("chat-token"),
	}

	// Chat fails, both emails succeed: retrying would double-send the
	// emails, so the message must still be acknowledged.
	chatSender := &fakeChatSender{err: errors.New("chat api down")}
	consumer := newTestConsumer(t, &fakeEmailSender{}, chatSender, order, customer, merchant)

	err := consumer.Process(context.Background(), enums.EventOrderCreated, orderCreatedEnvelope(t, order.ID))
	assert.NoError(t, err)
}

func TestConsumerTotalChannelFailureReturnsError(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: 42, CustomerID: uuid.New(), MerchantID: uuid.New()}
	customer := &models.Customer{ID: order.CustomerID, Name: "Dana Retail", Email: strPtr("dana@example.com")}
	merchant := &models.Merchant{
		ID:              order.MerchantID,
		SupportEmail:    "support@acme.example",
		ChatAddress:     strPtr("acme-channel"),
		ChatCredentials: strPtr("chat-token"),
	}

	emailSender := &fakeEmailSender{err: errors.New("smtp relay down")}
	chatSender := &fakeChatSender{err: errors.New("chat api down")}
	consumer := newTestConsumer(t, emailSender, chatSender, order, customer, merchant)

	err := consumer.Process(context.Background(), enums.EventOrderCreated, orderCreatedEnvelope(t, order.ID))
	assert.Error(t, err)
}
