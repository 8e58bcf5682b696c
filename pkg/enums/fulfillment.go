package enums

import "fmt"

// FulfillmentType distinguishes customer pickup from carrier delivery.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

// IsValid reports whether the value is a known fulfillment type.
func (f FulfillmentType) IsValid() bool {
	return f == FulfillmentPickup || f == FulfillmentDelivery
}

// ParseFulfillmentType converts raw input into FulfillmentType.
func ParseFulfillmentType(value string) (FulfillmentType, error) {
	switch FulfillmentType(value) {
	case FulfillmentPickup:
		return FulfillmentPickup, nil
	case FulfillmentDelivery:
		return FulfillmentDelivery, nil
	default:
		return "", fmt.Errorf("invalid fulfillment type %q", value)
	}
}
