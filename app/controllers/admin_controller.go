package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/billing"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/export"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/s3archive"
)

const (
	defaultWebhookListLimit = 50
	maxWebhookListLimit     = 200
)

// AdminController serves the operator endpoints: ledger recompute, exports
// and the webhook delivery log.
type AdminController struct {
	affiliates *affiliate.Service
	exports    *export.Service
	webhooks   *billing.Service
}

func NewAdminController(affiliates *affiliate.Service, exports *export.Service, webhooks *billing.Service) *AdminController {
	return &AdminController{affiliates: affiliates, exports: exports, webhooks: webhooks}
}

// HandleRecompute rebuilds an affiliate's balances and click total.
func (ac *AdminController) HandleRecompute(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	clicks, err := ac.affiliates.ReconcileClicks(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	totals, err := ac.affiliates.Recompute(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":          true,
		"affiliateId":      id,
		"totalClicks":      clicks,
		"totalConversions": totals.TotalConversions,
		"totalEarnings":    totals.TotalEarnings,
		"pendingPayout":    totals.PendingPayout,
		"lifetimeEarnings": totals.LifetimeEarnings,
		"badge":            totals.Badge,
	})
}

// HandleExport streams an XLSX workbook. The route parameter carries the
// kind with its .xlsx suffix.
func (ac *AdminController) HandleExport(c *fiber.Ctx) error {
	kind, ok := export.ParseKind(strings.TrimSuffix(c.Params("kind"), ".xlsx"))
	if !ok {
		return respondError(c, apperr.InvalidInput("Unknown export kind"))
	}
	res, err := ac.exports.Export(c.UserContext(), kind, c.Query("affiliateId"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, s3archive.ContentTypeXLSX)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
	if res.ObjectKey != "" {
		c.Set("X-Export-Object-Key", res.ObjectKey)
	}
	return c.Send(res.Data)
}

// HandleWebhookEvents lists recent deliveries, optionally for one provider.
func (ac *AdminController) HandleWebhookEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultWebhookListLimit)
	if limit <= 0 || limit > maxWebhookListLimit {
		limit = defaultWebhookListLimit
	}
	events, err := ac.webhooks.RecentWebhookEvents(c.UserContext(), c.Query("provider"), limit)
	if err != nil {
		return respondError(c, apperr.Internal(err, "Failed to load webhook events"))
	}
	return c.JSON(fiber.Map{"success": true, "events": events})
}
