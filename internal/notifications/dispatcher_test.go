package notifications

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/email"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

type fakeEmailSender struct {
	sent          []email.Message
	confirmations []email.OrderConfirmationData
	err           error
}

func (f *fakeEmailSender) Send(ctx context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeEmailSender) SendOrderConfirmation(ctx context.Context, data email.OrderConfirmationData) error {
	if f.err != nil {
		return f.err
	}
	f.confirmations = append(f.confirmations, data)
	return nil
}

type fakeChatSender struct {
	to          []string
	texts       []string
	credentials []string
	err         error
}

func (f *fakeChatSender) SendMessage(ctx context.Context, to, text, credentials string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.texts = append(f.texts, text)
	f.credentials = append(f.credentials, credentials)
	return nil
}

func strPtr(s string) *string { return &s }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestDispatcher(t *testing.T, emailSender *fakeEmailSender, chatSender *fakeChatSender) *Dispatcher {
	t.Helper()

	dispatcher, err := NewDispatcher(DispatcherParams{
		Email:  emailSender,
		Chat:   chatSender,
		Logger: testLogger(),
	})
	require.NoError(t, err)
	return dispatcher
}

func fullInput() Input {
	return Input{
		Order: models.Order{
			ID:              uuid.New(),
			OrderNumber:     42,
			TotalCents:      11100,
			FulfillmentType: "delivery",
			CarrierName:     strPtr("Pallet Express"),
		},
		Customer: models.Customer{
			ID:    uuid.New(),
			Name:  "Dana Retail",
			Email: strPtr("dana@example.com"),
		},
		Merchant: models.Merchant{
			ID:              uuid.New(),
			Name:            "Acme Wholesale",
			SupportEmail:    "support@acme.example",
			AlertEmails:     pq.StringArray{"alerts@acme.example", "ops@acme.example"},
			ChatAddress:     strPtr("acme-channel"),
			ChatCredentials: strPtr("chat-token"),
		},
	}
}

func TestDispatchAllChannels(t *testing.T) {
	emailSender := &fakeEmailSender{}
	chatSender := &fakeChatSender{}
	dispatcher := newTestDispatcher(t, emailSender, chatSender)

	results, err := dispatcher.Dispatch(context.Background(), fullInput())

	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, result := range results {
		assert.False(t, result.Skipped, result.Channel)
		assert.NoError(t, result.Err, result.Channel)
	}

	require.Len(t, emailSender.confirmations, 1)
	assert.Equal(t, "dana@example.com", emailSender.confirmations[0].To)
	assert.Equal(t, "Dana Retail", emailSender.confirmations[0].CustomerName)
	assert.Equal(t, int64(42), emailSender.confirmations[0].OrderNumber)
	assert.Equal(t, 11100, emailSender.confirmations[0].TotalCents)
	assert.Equal(t, "Pallet Express", emailSender.confirmations[0].CarrierName)

	require.Len(t, emailSender.sent, 1)
	assert.Equal(t, []string{"alerts@acme.example", "ops@acme.example"}, emailSender.sent[0].To)

	require.Len(t, chatSender.to, 1)
	assert.Equal(t, "acme-channel", chatSender.to[0])
	assert.Equal(t, "chat-token", chatSender.credentials[0])
}

func TestDispatchSkipsCustomerEmailWhenAbsent(t *testing.T) {
	emailSender := &fakeEmailSender{}
	dispatcher := newTestDispatcher(t, emailSender, &fakeChatSender{})

	input := fullInput()
	input.Customer.Email = nil

	results, err := dispatcher.Dispatch(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, results[0].Skipped)
	assert.Empty(t, emailSender.confirmations)
	require.Len(t, emailSender.sent, 1, "only the merchant alert goes out")
}

func TestDispatchMerchantEmailFallsBackToSupportAddress(t *testing.T) {
	emailSender := &fakeEmailSender{}
	dispatcher := newTestDispatcher(t, emailSender, &fakeChatSender{})

	input := fullInput()
	input.Merchant.AlertEmails = nil

	_, err := dispatcher.Dispatch(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, emailSender.sent, 1)
	assert.Equal(t, []string{"support@acme.example"}, emailSender.sent[0].To)
}

func TestDispatchSkipsChatWithoutCredentials(t *testing.T) {
	chatSender := &fakeChatSender{}
	dispatcher := newTestDispatcher(t, &fakeEmailSender{}, chatSender)

	input := fullInput()
	input.Merchant.ChatCredentials = nil

	results, err := dispatcher.Dispatch(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, results[2].Skipped)
	assert.Empty(t, chatSender.to)
}

func TestDispatchChannelFailureDoesNotBlockOthers(t *testing.T) {
	emailSender := &fakeEmailSender{err: errors.New("smtp relay down")}
	chatSender := &fakeChatSender{}
	dispatcher := newTestDispatcher(t, emailSender, chatSender)

	results, err := dispatcher.Dispatch(context.Background(), fullInput())

	require.Error(t, err)
	assert.Error(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	require.Len(t, chatSender.to, 1, "chat still went out despite email failures")
}
