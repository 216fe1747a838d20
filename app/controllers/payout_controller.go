package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/mail"
)

// EmailEnqueuer queues a templated email for later delivery.
type EmailEnqueuer interface {
	Enqueue(ctx context.Context, email, template string, data map[string]any, sendAt time.Time) error
}

type PayoutController struct {
	svc    *affiliate.Service
	emails EmailEnqueuer
}

// NewPayoutController creates the payout controller. emails may be nil.
func NewPayoutController(svc *affiliate.Service, emails EmailEnqueuer) *PayoutController {
	return &PayoutController{svc: svc, emails: emails}
}

// HandleGetPayouts returns the payout history and whether a request is possible.
func (pc *PayoutController) HandleGetPayouts(c *fiber.Ctx) error {
	affiliateID := c.Query("affiliateId")
	if affiliateID == "" {
		return respondError(c, apperr.InvalidInput("Affiliate ID required"))
	}
	s, err := pc.svc.PayoutSummary(c.UserContext(), affiliateID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":          true,
		"pendingAmount":    s.PendingAmount,
		"paymentMethod":    s.PaymentMethod,
		"paymentEmail":     s.PaymentEmail,
		"threshold":        s.Threshold,
		"canRequestPayout": s.CanRequestPayout,
		"hasOpenRequest":   s.HasOpenRequest,
		"payouts":          s.Payouts,
	})
}

type payoutRequest struct {
	Action       string `json:"action" validate:"required"`
	AffiliateID  string `json:"affiliateId"`
	Method       string `json:"method"`
	PaymentEmail string `json:"paymentEmail" validate:"omitempty,email,max=200"`
}

// HandlePayoutAction opens a payout request or changes the payment method.
func (pc *PayoutController) HandlePayoutAction(c *fiber.Ctx) error {
	var req payoutRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx := c.UserContext()

	switch req.Action {
	case "request":
		if req.AffiliateID == "" {
			return respondError(c, apperr.InvalidInput("Affiliate ID required"))
		}
		payout, err := pc.svc.RequestPayout(ctx, affiliate.PayoutInput{
			AffiliateID:  req.AffiliateID,
			Method:       req.Method,
			PaymentEmail: req.PaymentEmail,
		})
		if err != nil {
			return respondError(c, err)
		}
		pc.notifyRequested(ctx, payout)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Payout request submitted successfully",
			"payout": fiber.Map{
				"id":                  payout.ID,
				"amount":              payout.Amount,
				"method":              payout.Method,
				"status":              payout.Status,
				"estimatedProcessing": "24-48 hours",
			},
		})

	case "update_payment":
		if req.AffiliateID == "" || req.Method == "" {
			return respondError(c, apperr.InvalidInput("Missing required fields"))
		}
		if _, err := pc.svc.UpdatePaymentMethod(ctx, req.AffiliateID, req.Method, req.PaymentEmail); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Payment method updated"})

	default:
		return respondError(c, apperr.InvalidInput("Invalid action"))
	}
}

func (pc *PayoutController) notifyRequested(ctx context.Context, payout *models.AffiliatePayout) {
	if pc.emails == nil || payout.PaymentEmail == "" {
		return
	}
	data := map[string]any{
		"amount": payout.Amount.StringFixed(2),
		"method": payout.Method,
	}
	if err := pc.emails.Enqueue(ctx, payout.PaymentEmail, mail.TemplatePayoutRequested, data, time.Now()); err != nil {
		log.Warnf("[Payout] Queueing confirmation for payout %s failed: %v", payout.ID, err)
	}
}

type settleRequest struct {
	Outcome string `json:"outcome" validate:"required"`
	Note    string `json:"note" validate:"max=500"`
}

// HandleSettlePayout moves a payout request through processing to paid or rejected.
func (pc *PayoutController) HandleSettlePayout(c *fiber.Ctx) error {
	var req settleRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	payout, err := pc.svc.SettlePayout(c.UserContext(), c.Params("id"), req.Outcome, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "payout": payout})
}
