package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AffiliateFox/app/controllers"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/middleware"
)

type ApiRouter struct {
	controllers *controllers.Controllers
	limiter     fiber.Handler
	adminAuth   fiber.Handler
	cronAuth    fiber.Handler
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	if h.limiter != nil {
		api.Use(h.limiter)
	}
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	c := h.controllers

	// affiliate program
	aff := api.Group("/affiliate")
	aff.Get("/track", c.Affiliate.HandleTrackClick)
	aff.Post("/track", c.Affiliate.HandleTrackAction)
	aff.Get("/stats", c.Affiliate.HandleStats)
	aff.Post("/signup", c.Affiliate.HandleSignup)
	aff.Get("/qr", c.Affiliate.HandleQRCode)
	aff.Get("/payout", c.Payout.HandleGetPayouts)
	aff.Post("/payout", c.Payout.HandlePayoutAction)

	// provider webhooks
	api.Post("/webhook/lemon-squeezy", c.Webhook.HandleLemonSqueezy)
	api.Post("/webhook/polar", c.Webhook.HandlePolar)

	// checkout and licenses
	api.Post("/promo/validate", c.Checkout.HandleValidatePromo)
	api.Post("/checkout", c.Checkout.HandleCreateCheckout)
	api.Get("/license/validate", c.License.HandleValidateLicense)
	api.Post("/license/validate", c.License.HandleValidateLicense)
	api.Post("/license/generate", h.adminAuth, c.License.HandleGenerateLicense)
	api.Get("/subscription/status", c.License.HandleSubscriptionStatus)

	// AGC credits
	holder := c.Credits.Auth()
	api.Get("/credits", holder, c.Credits.HandleGetCredits)
	api.Post("/credits/transfer", holder, c.Credits.HandleTransfer)
	api.Post("/credits/redeem", holder, c.Credits.HandleRedeem)

	// email
	api.Post("/email/send", h.adminAuth, c.Email.HandleSendEmail)
	api.Get("/cron/emails", h.cronAuth, c.Email.HandleProcessEmails)
	api.Post("/cron/emails", h.cronAuth, c.Email.HandleProcessEmails)

	// operator endpoints
	admin := api.Group("/admin", h.adminAuth)
	admin.Post("/payouts/:id/settle", c.Payout.HandleSettlePayout)
	admin.Post("/affiliates/:id/recompute", c.Admin.HandleRecompute)
	admin.Get("/exports/:kind.xlsx", c.Admin.HandleExport)
	admin.Get("/webhooks", c.Admin.HandleWebhookEvents)
	admin.Post("/credits/grant", c.Credits.HandleGrant)
}

// NewApiRouter wires the API routes with the environment's admin key, cron
// secret and rate limiter.
func NewApiRouter(c *controllers.Controllers) *ApiRouter {
	return &ApiRouter{
		controllers: c,
		limiter:     newLimiter(),
		adminAuth:   middleware.AdminKeyAuthFromEnv(),
		cronAuth:    middleware.CronSecretAuthFromEnv(),
	}
}

// NewApiRouterWithAuth is NewApiRouter with explicit middleware and no rate limit.
func NewApiRouterWithAuth(c *controllers.Controllers, adminAuth, cronAuth fiber.Handler) *ApiRouter {
	return &ApiRouter{controllers: c, adminAuth: adminAuth, cronAuth: cronAuth}
}
