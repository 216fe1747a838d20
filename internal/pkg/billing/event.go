package billing

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

type EventKind string

const (
	EventSale    EventKind = "sale"
	EventRenewal EventKind = "renewal"
	EventRefund  EventKind = "refund"
	EventCancel  EventKind = "cancel"
	EventIgnored EventKind = "ignored"
)

// Event is the provider-neutral shape of a verified webhook delivery.
type Event struct {
	Provider       string
	ID             string
	Type           string
	Kind           EventKind
	OrderID        string
	ReferralCode   string
	ProductName    string
	Gross          decimal.Decimal
	CustomerEmail  string
	SubscriptionID string
	Plan           string
}

func (e *Event) IsRecurring() bool {
	return e.Kind == EventRenewal
}

var hundred = decimal.NewFromInt(100)

// centsToAmount converts a minor-unit amount into a decimal currency amount.
func centsToAmount(n json.Number) (decimal.Decimal, error) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.InvalidInput("Invalid amount")
	}
	return d.Div(hundred).Round(2), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func ParseEvent(provider string, payload []byte, deliveryID string) (*Event, error) {
	switch provider {
	case ProviderLemonSqueezy:
		return ParseLemonSqueezyEvent(payload)
	case ProviderPolar:
		return ParsePolarEvent(payload, deliveryID)
	default:
		return nil, apperr.InvalidInput("Unknown provider")
	}
}

type lemonSqueezyPayload struct {
	Meta struct {
		EventName  string         `json:"event_name"`
		CustomData map[string]any `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			UserEmail      string         `json:"user_email"`
			TotalUSD       json.Number    `json:"total_usd"`
			Total          json.Number    `json:"total"`
			ProductName    string         `json:"product_name"`
			SubscriptionID json.Number    `json:"subscription_id"`
			CustomData     map[string]any `json:"custom_data"`
			FirstOrderItem struct {
				ProductName string `json:"product_name"`
			} `json:"first_order_item"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseLemonSqueezyEvent maps a Lemon Squeezy webhook body. Amounts are in cents.
func ParseLemonSqueezyEvent(payload []byte) (*Event, error) {
	var raw lemonSqueezyPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, apperr.InvalidInput("Invalid JSON payload")
	}
	name := strings.TrimSpace(raw.Meta.EventName)
	if name == "" {
		return nil, apperr.InvalidInput("Missing event name")
	}
	attrs := raw.Data.Attributes
	dataID := strings.TrimSpace(raw.Data.ID)

	ref := firstNonEmpty(
		metaString(raw.Meta.CustomData, "ref"), metaString(raw.Meta.CustomData, "referral_code"),
		metaString(attrs.CustomData, "ref"), metaString(attrs.CustomData, "referral_code"),
	)

	ev := &Event{
		Provider:      ProviderLemonSqueezy,
		Type:          name,
		ID:            name + ":" + dataID,
		CustomerEmail: strings.TrimSpace(attrs.UserEmail),
		ReferralCode:  ref,
	}

	gross, err := centsToAmount(firstNumber(attrs.TotalUSD, attrs.Total))
	if err != nil {
		return nil, err
	}
	ev.Gross = gross

	switch name {
	case "order_created":
		ev.Kind = EventSale
		ev.OrderID = dataID
		ev.ProductName = firstNonEmpty(attrs.FirstOrderItem.ProductName, attrs.ProductName, "Unknown")
		ev.Plan = ev.ProductName
	case "subscription_payment_success":
		ev.Kind = EventRenewal
		if dataID != "" {
			ev.OrderID = "recurring_" + dataID
		}
		ev.ProductName = firstNonEmpty(attrs.ProductName, "Subscription")
		ev.SubscriptionID = attrs.SubscriptionID.String()
	case "order_refunded":
		ev.Kind = EventRefund
		ev.OrderID = dataID
	case "subscription_cancelled", "subscription_expired":
		ev.Kind = EventCancel
		ev.SubscriptionID = dataID
	default:
		ev.Kind = EventIgnored
		return ev, nil
	}

	if err := validateActionable(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

type polarPayload struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Data  struct {
		ID             string         `json:"id"`
		OrderID        string         `json:"order_id"`
		Status         string         `json:"status"`
		BillingReason  string         `json:"billing_reason"`
		SubscriptionID string         `json:"subscription_id"`
		Amount         json.Number    `json:"amount"`
		TotalAmount    json.Number    `json:"total_amount"`
		Email          string         `json:"email"`
		CustomerEmail  string         `json:"customer_email"`
		Metadata       map[string]any `json:"metadata"`
		Customer       struct {
			Email string `json:"email"`
		} `json:"customer"`
		Product struct {
			Name string `json:"name"`
		} `json:"product"`
		Items []struct {
			Product struct {
				Name string `json:"name"`
			} `json:"product"`
		} `json:"items"`
	} `json:"data"`
}

// ParsePolarEvent maps a Polar webhook body. deliveryID is the webhook-id
// header when present. Amounts are in cents.
func ParsePolarEvent(payload []byte, deliveryID string) (*Event, error) {
	var raw polarPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, apperr.InvalidInput("Invalid JSON payload")
	}
	name := firstNonEmpty(raw.Type, raw.Event)
	if name == "" {
		return nil, apperr.InvalidInput("Missing event type")
	}
	d := raw.Data
	dataID := strings.TrimSpace(d.ID)

	ev := &Event{
		Provider:       ProviderPolar,
		Type:           name,
		ID:             firstNonEmpty(deliveryID, name+":"+dataID),
		CustomerEmail:  firstNonEmpty(d.Customer.Email, d.CustomerEmail, d.Email),
		ReferralCode:   firstNonEmpty(metaString(d.Metadata, "affiliateCode"), metaString(d.Metadata, "ref")),
		SubscriptionID: strings.TrimSpace(d.SubscriptionID),
	}
	gross, err := centsToAmount(firstNumber(d.TotalAmount, d.Amount))
	if err != nil {
		return nil, err
	}
	ev.Gross = gross

	productName := d.Product.Name
	if productName == "" && len(d.Items) > 0 {
		productName = d.Items[0].Product.Name
	}

	switch name {
	case "order.created", "checkout.completed":
		ev.Kind = EventSale
		ev.OrderID = dataID
		if name == "checkout.completed" {
			// Keyed by the order id so the order.created for the same
			// purchase dedups; without one the order event does the work.
			ev.OrderID = strings.TrimSpace(d.OrderID)
			if ev.OrderID == "" {
				ev.Kind = EventIgnored
				return ev, nil
			}
		}
		if d.BillingReason == "subscription_cycle" {
			ev.Kind = EventRenewal
		}
		ev.ProductName = firstNonEmpty(productName, metaString(d.Metadata, "plan"), "Pro")
		ev.Plan = firstNonEmpty(metaString(d.Metadata, "plan"), ev.ProductName)
	case "refund.created":
		ev.Kind = EventRefund
		ev.OrderID = strings.TrimSpace(d.OrderID)
	case "order.refunded":
		ev.Kind = EventRefund
		ev.OrderID = dataID
	case "subscription.canceled", "subscription.revoked":
		ev.Kind = EventCancel
		ev.SubscriptionID = dataID
	case "subscription.updated":
		if strings.EqualFold(d.Status, "canceled") {
			ev.Kind = EventCancel
			ev.SubscriptionID = dataID
		} else {
			ev.Kind = EventIgnored
			return ev, nil
		}
	default:
		ev.Kind = EventIgnored
		return ev, nil
	}

	if err := validateActionable(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func validateActionable(ev *Event) error {
	switch ev.Kind {
	case EventSale, EventRenewal, EventRefund:
		if ev.OrderID == "" {
			return apperr.InvalidInput("Missing order id")
		}
	case EventCancel:
		if ev.SubscriptionID == "" {
			return apperr.InvalidInput("Missing subscription id")
		}
	}
	return nil
}

func firstNumber(values ...json.Number) json.Number {
	for _, v := range values {
		if strings.TrimSpace(v.String()) != "" {
			return v
		}
	}
	return ""
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
