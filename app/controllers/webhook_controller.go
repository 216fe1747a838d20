package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/billing"
)

const webhookTimeout = 15 * time.Second

// WebhookController receives signed provider deliveries.
type WebhookController struct {
	ingestor *billing.Ingestor
}

func NewWebhookController(ingestor *billing.Ingestor) *WebhookController {
	return &WebhookController{ingestor: ingestor}
}

func (wc *WebhookController) HandleLemonSqueezy(c *fiber.Ctx) error {
	return wc.handle(c, billing.ProviderLemonSqueezy, c.Get(billing.HeaderLemonSqueezySignature), "")
}

func (wc *WebhookController) HandlePolar(c *fiber.Ctx) error {
	return wc.handle(c, billing.ProviderPolar, c.Get(billing.HeaderPolarSignature), c.Get(billing.HeaderPolarWebhookID))
}

func (wc *WebhookController) handle(c *fiber.Ctx, provider, signature, deliveryID string) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	// The request body buffer is reused by fasthttp once the handler returns.
	payload := append([]byte(nil), c.Body()...)

	out, err := wc.ingestor.VerifyAndRoute(ctx, provider, payload, signature, deliveryID)
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{"received": true}
	if out.Event != nil {
		resp["event"] = out.Event.Type
	}
	if out.Duplicate {
		resp["duplicate"] = true
	}
	if out.Ignored {
		resp["ignored"] = true
	}
	if out.LicenseError != "" {
		resp["licenseError"] = out.LicenseError
	}
	return c.JSON(resp)
}
