package billing

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/license"
)

// ConversionRecorder is the part of the affiliate ledger fed by webhooks.
type ConversionRecorder interface {
	RecordConversion(ctx context.Context, in affiliate.ConversionInput) (*affiliate.ConversionResult, error)
	RefundConversion(ctx context.Context, orderID string) (*affiliate.RefundResult, error)
}

// LicenseIssuer is the part of the license service fed by webhooks.
type LicenseIssuer interface {
	Issue(ctx context.Context, in license.IssueInput) (*license.IssueResult, error)
	DeactivateBySubscription(ctx context.Context, subscriptionID string) (int64, error)
}

// Outcome describes what a delivery did. LicenseError is set when a sale was
// recorded but no license could be issued for its customer email.
type Outcome struct {
	Event        *Event
	Duplicate    bool
	Ignored      bool
	Conversion   *affiliate.ConversionResult
	Refund       *affiliate.RefundResult
	License      *models.License
	LicenseError string
	Deactivated  int64
}

// SecretsFromEnv returns the webhook signing secrets per provider.
func SecretsFromEnv() map[string]string {
	return map[string]string{
		ProviderLemonSqueezy: env.GetEnv("LEMON_SQUEEZY_WEBHOOK_SECRET", ""),
		ProviderPolar:        env.GetEnv("POLAR_WEBHOOK_SECRET", ""),
	}
}

// Ingestor verifies provider deliveries and routes them to the ledger and
// the license service.
type Ingestor struct {
	events      *Service
	conversions ConversionRecorder
	licenses    LicenseIssuer
	secrets     map[string]string
}

func NewIngestor(events *Service, conversions ConversionRecorder, licenses LicenseIssuer, secrets map[string]string) *Ingestor {
	return &Ingestor{events: events, conversions: conversions, licenses: licenses, secrets: secrets}
}

// VerifyAndRoute handles one delivery. A bad signature is rejected before
// anything is written. Replays of a processed delivery are acknowledged as
// duplicates; a delivery whose handling failed is run again.
func (i *Ingestor) VerifyAndRoute(ctx context.Context, provider string, payload []byte, signature, deliveryID string) (*Outcome, error) {
	secret := i.secrets[provider]
	if secret == "" {
		log.Errorf("[Webhook] No signing secret configured for %s", provider)
		return nil, apperr.InvalidSignature("Invalid signature")
	}
	if !VerifySignature(provider, payload, signature, secret) {
		log.Warnf("[Webhook] Invalid %s signature", provider)
		return nil, apperr.InvalidSignature("Invalid signature")
	}

	ev, err := ParseEvent(provider, payload, deliveryID)
	if err != nil {
		return nil, err
	}

	created, stored, err := i.events.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        provider,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		Payload:         payload,
	})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to record webhook event")
	}
	if !created && stored.IsProcessed() {
		log.Infof("[Webhook] Duplicate %s delivery %s", provider, ev.ID)
		return &Outcome{Event: ev, Duplicate: true}, nil
	}

	out, routeErr := i.route(ctx, ev)
	if err := i.events.MarkWebhookProcessed(ctx, stored.ID, routeErr); err != nil {
		log.Errorf("[Webhook] Failed to mark event %d processed: %v", stored.ID, err)
	}
	if routeErr != nil {
		log.Errorf("[Webhook] %s %s failed: %v", provider, ev.Type, routeErr)
		return nil, routeErr
	}
	return out, nil
}

func (i *Ingestor) route(ctx context.Context, ev *Event) (*Outcome, error) {
	out := &Outcome{Event: ev}
	switch ev.Kind {
	case EventSale, EventRenewal:
		res, err := i.conversions.RecordConversion(ctx, affiliate.ConversionInput{
			OrderID:       ev.OrderID,
			ReferralCode:  ev.ReferralCode,
			ProductName:   ev.ProductName,
			GrossAmount:   ev.Gross,
			IsRecurring:   ev.IsRecurring(),
			CustomerEmail: ev.CustomerEmail,
			Provider:      ev.Provider,
			ProviderRef:   ev.ID,
		})
		if err != nil {
			return nil, err
		}
		out.Conversion = res
		if res.Attributed && !res.Duplicate {
			log.Infof("[Webhook] Commission recorded for order %s", ev.OrderID)
		}

		if ev.Kind == EventSale && ev.CustomerEmail != "" && i.licenses != nil {
			issued, err := i.licenses.Issue(ctx, license.IssueInput{
				Email:          ev.CustomerEmail,
				Plan:           ev.Plan,
				Provider:       ev.Provider,
				OrderID:        ev.OrderID,
				SubscriptionID: ev.SubscriptionID,
			})
			switch {
			case apperr.KindOf(err) == apperr.KindInvalidInput:
				// the commission is already committed
				log.Warnf("[Webhook] No license for order %s: %s", ev.OrderID, apperr.Message(err))
				out.LicenseError = apperr.Message(err)
			case err != nil:
				return nil, err
			default:
				out.License = issued.License
			}
		}
	case EventRefund:
		res, err := i.conversions.RefundConversion(ctx, ev.OrderID)
		if err != nil {
			return nil, err
		}
		out.Refund = res
	case EventCancel:
		if i.licenses == nil {
			out.Ignored = true
			return out, nil
		}
		n, err := i.licenses.DeactivateBySubscription(ctx, ev.SubscriptionID)
		if err != nil {
			return nil, err
		}
		out.Deactivated = n
	default:
		out.Ignored = true
	}
	return out, nil
}
