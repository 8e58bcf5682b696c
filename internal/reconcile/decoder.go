package reconcile

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/palletworks/palletworks-backend/pkg/enums"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

// Decoder turns raw confirmation events into purchase intents. Malformed
// metadata fragments are treated as absent and logged, never surfaced as
// errors: decoding must not be able to fail a reconciliation run.
type Decoder struct {
	logg *logger.Logger
}

func NewDecoder(logg *logger.Logger) *Decoder {
	return &Decoder{logg: logg}
}

type rawCartItem struct {
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	SellingType string `json:"sellingType"`
}

type rawShippingService struct {
	Price       string `json:"price"`
	ServiceName string `json:"serviceName"`
}

type rawShippingInfo struct {
	Option  string             `json:"option"`
	Service rawShippingService `json:"service"`
}

type rawCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Decode builds a PurchaseIntent from the event's metadata bag.
func (d *Decoder) Decode(ctx context.Context, event PaymentConfirmationEvent) PurchaseIntent {
	meta := event.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	intent := PurchaseIntent{
		ConfirmationID: strings.TrimSpace(event.ConfirmationID),
	}

	if merchantID, err := uuid.Parse(strings.TrimSpace(event.MerchantID)); err == nil {
		intent.MerchantID = merchantID
	} else if raw := strings.TrimSpace(meta["merchant_id"]); raw != "" {
		if merchantID, err := uuid.Parse(raw); err == nil {
			intent.MerchantID = merchantID
		} else {
			d.warnField(ctx, "merchant_id", err)
		}
	}

	intent.Items = d.decodeCart(ctx, meta["cart"])
	d.decodeCustomer(ctx, meta, &intent)

	intent.SubtotalCents = d.parseMoneyCents(ctx, "subtotal", meta["subtotal"])
	intent.CustomerFeeCents = d.parseMoneyCents(ctx, "customer_fee", firstNonEmpty(meta["customer_fee"], meta["transaction_fee"]))

	intent.Shipping = d.decodeShippingInfo(ctx, meta["shipping_info"])
	intent.ShippingCostCents = d.parseMoneyCents(ctx, "shipping_cost", meta["shipping_cost"])
	intent.ShippingCarrier = strings.TrimSpace(meta["shipping_carrier"])
	intent.DeliveryCostCents = d.parseMoneyCents(ctx, "delivery_cost", meta["delivery_cost"])
	intent.DeliveryCarrier = strings.TrimSpace(meta["delivery_carrier"])

	intent.AutoPayDelivery = parseBool(meta["auto_pay_delivery"])

	if intent.SubtotalCents == 0 && len(intent.Items) > 0 {
		for _, item := range intent.Items {
			intent.SubtotalCents += item.UnitPriceCents * item.Qty
		}
	}

	return intent
}

func (d *Decoder) decodeCart(ctx context.Context, raw string) []CartItem {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var rawItems []rawCartItem
	if err := json.Unmarshal([]byte(raw), &rawItems); err != nil {
		d.warnField(ctx, "cart", err)
		return nil
	}

	items := make([]CartItem, 0, len(rawItems))
	for _, entry := range rawItems {
		item := CartItem{
			Qty:            entry.Quantity,
			UnitPriceCents: d.parseMoneyCents(ctx, "cart.unitPrice", entry.UnitPrice),
			SellingType:    enums.SellingTypeUnit,
		}
		if st := enums.SellingType(strings.TrimSpace(entry.SellingType)); st.IsValid() {
			item.SellingType = st
		}
		if id, err := uuid.Parse(strings.TrimSpace(entry.ProductID)); err == nil {
			productID := id
			item.ProductID = &productID
		}
		items = append(items, item)
	}
	return items
}

func (d *Decoder) decodeShippingInfo(ctx context.Context, raw string) *ShippingSelection {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var info rawShippingInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		d.warnField(ctx, "shipping_info", err)
		return nil
	}

	return &ShippingSelection{
		Option:      strings.ToLower(strings.TrimSpace(info.Option)),
		ServiceName: strings.TrimSpace(info.Service.ServiceName),
		PriceCents:  d.parseMoneyCents(ctx, "shipping_info.service.price", info.Service.Price),
	}
}

func (d *Decoder) decodeCustomer(ctx context.Context, meta map[string]string, intent *PurchaseIntent) {
	if raw := strings.TrimSpace(meta["customer"]); raw != "" {
		var customer rawCustomer
		if err := json.Unmarshal([]byte(raw), &customer); err != nil {
			d.warnField(ctx, "customer", err)
		} else {
			intent.CustomerName = strings.TrimSpace(customer.Name)
			intent.CustomerEmail = strings.TrimSpace(customer.Email)
			intent.CustomerPhone = strings.TrimSpace(customer.Phone)
			intent.CustomerAddress = strings.TrimSpace(customer.Address)
		}
	}

	// Flat keys fill whatever the embedded document left empty.
	if intent.CustomerName == "" {
		intent.CustomerName = strings.TrimSpace(meta["customer_name"])
	}
	if intent.CustomerEmail == "" {
		intent.CustomerEmail = strings.TrimSpace(meta["customer_email"])
	}
	if intent.CustomerPhone == "" {
		intent.CustomerPhone = strings.TrimSpace(meta["customer_phone"])
	}
	if intent.CustomerAddress == "" {
		intent.CustomerAddress = strings.TrimSpace(meta["customer_address"])
	}
}

// parseMoneyCents converts a decimal money string ("10.00") to integer cents.
// Unparseable or negative values resolve to zero.
func (d *Decoder) parseMoneyCents(ctx context.Context, field, raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		d.warnField(ctx, field, err)
		return 0
	}
	cents := value.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents < 0 {
		return 0
	}
	return int(cents)
}

func (d *Decoder) warnField(ctx context.Context, field string, err error) {
	if d.logg == nil {
		return
	}
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"field": field,
		"error": err.Error(),
	})
	d.logg.Warn(logCtx, "malformed metadata field treated as absent")
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
