package reconcile

import (
	"github.com/palletworks/palletworks-backend/pkg/enums"
)

// UnknownCarrierName is recorded when a legacy event implies delivery without
// naming the carrier.
const UnknownCarrierName = "Unknown Delivery Service"

// ClassifyFulfillment derives the fulfillment decision from the purchase
// intent. The tiers form a compatibility chain over historical event shapes
// and the first matching tier always wins, even when later tiers would also
// match.
//
//  1. Explicit shipping selection says delivery.
//  2. Legacy positive shipping_cost field.
//  3. Legacy positive delivery_cost field.
//  4. Pickup.
func ClassifyFulfillment(intent PurchaseIntent) FulfillmentDecision {
	// An explicit delivery selection wins even when its quoted price is
	// zero or absent; once a selection is present the legacy cost fields
	// are never consulted.
	if intent.Shipping != nil && intent.Shipping.Option == "delivery" {
		return FulfillmentDecision{
			Type:        enums.FulfillmentDelivery,
			CarrierName: intent.Shipping.ServiceName,
			CostCents:   intent.Shipping.PriceCents,
		}
	}

	if intent.ShippingCostCents > 0 {
		return FulfillmentDecision{
			Type:        enums.FulfillmentDelivery,
			CarrierName: carrierOrUnknown(intent.ShippingCarrier),
			CostCents:   intent.ShippingCostCents,
		}
	}

	if intent.DeliveryCostCents > 0 {
		return FulfillmentDecision{
			Type:        enums.FulfillmentDelivery,
			CarrierName: carrierOrUnknown(intent.DeliveryCarrier),
			CostCents:   intent.DeliveryCostCents,
		}
	}

	return FulfillmentDecision{
		Type:      enums.FulfillmentPickup,
		CostCents: 0,
	}
}

func carrierOrUnknown(name string) string {
	if name == "" {
		return UnknownCarrierName
	}
	return name
}
