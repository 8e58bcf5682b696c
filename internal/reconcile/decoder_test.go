package reconcile

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletworks/palletworks-backend/pkg/enums"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestDecodeFullEvent(t *testing.T) {
	merchantID := uuid.New()
	productID := uuid.New()

	decoder := NewDecoder(testLogger())
	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "  conf-123  ",
		MerchantID:     merchantID.String(),
		Metadata: map[string]string{
			"cart":          `[{"productId":"` + productID.String() + `","quantity":3,"unitPrice":"12.50","sellingType":"pallet"}]`,
			"customer":      `{"name":"Dana Retail","email":"Dana@Example.com","phone":"555-0100","address":"1 Dock St"}`,
			"subtotal":      "37.50",
			"customer_fee":  "1.25",
			"shipping_info": `{"option":"Delivery","service":{"price":"8.00","serviceName":"Pallet Express"}}`,
		},
	})

	assert.Equal(t, "conf-123", intent.ConfirmationID)
	assert.Equal(t, merchantID, intent.MerchantID)

	require.Len(t, intent.Items, 1)
	require.NotNil(t, intent.Items[0].ProductID)
	assert.Equal(t, productID, *intent.Items[0].ProductID)
	assert.Equal(t, 3, intent.Items[0].Qty)
	assert.Equal(t, 1250, intent.Items[0].UnitPriceCents)
	assert.Equal(t, enums.SellingTypePallet, intent.Items[0].SellingType)

	assert.Equal(t, "Dana Retail", intent.CustomerName)
	assert.Equal(t, "Dana@Example.com", intent.CustomerEmail)
	assert.Equal(t, "555-0100", intent.CustomerPhone)

	assert.Equal(t, 3750, intent.SubtotalCents)
	assert.Equal(t, 125, intent.CustomerFeeCents)

	require.NotNil(t, intent.Shipping)
	assert.Equal(t, "delivery", intent.Shipping.Option)
	assert.Equal(t, "Pallet Express", intent.Shipping.ServiceName)
	assert.Equal(t, 800, intent.Shipping.PriceCents)
}

func TestDecodeMalformedFragmentsTreatedAsAbsent(t *testing.T) {
	decoder := NewDecoder(testLogger())
	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		MerchantID:     uuid.NewString(),
		Metadata: map[string]string{
			"cart":          `{not json`,
			"customer":      `[broken`,
			"shipping_info": `???`,
			"subtotal":      "ten dollars",
		},
	})

	assert.Empty(t, intent.Items)
	assert.Empty(t, intent.CustomerName)
	assert.Nil(t, intent.Shipping)
	assert.Zero(t, intent.SubtotalCents)
}

func TestDecodeFlatCustomerKeysFillGaps(t *testing.T) {
	decoder := NewDecoder(testLogger())
	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		Metadata: map[string]string{
			"customer":       `{"name":"Dana Retail"}`,
			"customer_name":  "Ignored Name",
			"customer_email": "dana@example.com",
			"customer_phone": "555-0100",
		},
	})

	// The embedded document wins where it declared a value; flat keys fill
	// only what it left empty.
	assert.Equal(t, "Dana Retail", intent.CustomerName)
	assert.Equal(t, "dana@example.com", intent.CustomerEmail)
	assert.Equal(t, "555-0100", intent.CustomerPhone)
}

func TestDecodeMerchantIDFallsBackToMetadata(t *testing.T) {
	merchantID := uuid.New()
	decoder := NewDecoder(testLogger())

	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		MerchantID:     "not-a-uuid",
		Metadata:       map[string]string{"merchant_id": merchantID.String()},
	})

	assert.Equal(t, merchantID, intent.MerchantID)
}

func TestDecodeSubtotalFallsBackToCartSum(t *testing.T) {
	decoder := NewDecoder(testLogger())
	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		Metadata: map[string]string{
			"cart": `[{"quantity":2,"unitPrice":"5.00"},{"quantity":1,"unitPrice":"3.25"}]`,
		},
	})

	assert.Equal(t, 1325, intent.SubtotalCents)
}

func TestDecodeTransactionFeeAlias(t *testing.T) {
	decoder := NewDecoder(testLogger())
	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		Metadata:       map[string]string{"transaction_fee": "0.75"},
	})

	assert.Equal(t, 75, intent.CustomerFeeCents)
}

func TestParseMoneyCentsNegativeResolvesToZero(t *testing.T) {
	decoder := NewDecoder(testLogger())
	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		Metadata:       map[string]string{"subtotal": "-4.00"},
	})

	assert.Zero(t, intent.SubtotalCents)
}

func TestDecodeAutoPayDelivery(t *testing.T) {
	decoder := NewDecoder(testLogger())

	intent := decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		Metadata:       map[string]string{"auto_pay_delivery": "true"},
	})
	assert.True(t, intent.AutoPayDelivery)

	intent = decoder.Decode(context.Background(), PaymentConfirmationEvent{
		ConfirmationID: "conf-1",
		Metadata:       map[string]string{"auto_pay_delivery": "maybe"},
	})
	assert.False(t, intent.AutoPayDelivery)
}
