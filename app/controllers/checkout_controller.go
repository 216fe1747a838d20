package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/billing"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/promo"
)

// CheckoutCreator opens a hosted checkout session at the payment provider.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, in billing.CheckoutRequest) (*billing.CheckoutSession, error)
}

// CheckoutController serves checkout creation and promo code lookups.
type CheckoutController struct {
	checkout    CheckoutCreator
	policy      *promo.Policy
	tokenSecret string
	now         func() time.Time
}

func NewCheckoutController(checkout CheckoutCreator, policy *promo.Policy, tokenSecret string) *CheckoutController {
	return &CheckoutController{checkout: checkout, policy: policy, tokenSecret: tokenSecret, now: time.Now}
}

type checkoutRequest struct {
	Plan             string `json:"plan"`
	Billing          string `json:"billing"`
	Email            string `json:"email" validate:"omitempty,email,max=200"`
	AffiliateCode    string `json:"affiliateCode"`
	AttributionToken string `json:"attributionToken"`
}

// HandleCreateCheckout creates a checkout carrying the resolved referral code.
func (cc *CheckoutController) HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.Billing == "" {
		req.Billing = "monthly"
	}

	code := billing.ResolveReferralCode(req.AffiliateCode, req.AttributionToken, c.Cookies(CookieReferral), cc.tokenSecret, cc.now())
	session, err := cc.checkout.CreateCheckout(c.UserContext(), billing.CheckoutRequest{
		Plan:          req.Plan,
		Billing:       req.Billing,
		Email:         req.Email,
		AffiliateCode: code,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"checkoutUrl": session.URL,
		"checkoutId":  session.ID,
	})
}

type promoRequest struct {
	Code string `json:"code"`
}

// HandleValidatePromo looks a code up in the promo policy table.
func (cc *CheckoutController) HandleValidatePromo(c *fiber.Ctx) error {
	var req promoRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := cc.policy.Validate(req.Code)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "error": apperr.Message(err)})
	}
	if !res.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	return c.JSON(fiber.Map{
		"valid":    true,
		"source":   res.Source,
		"code":     res.Code,
		"name":     res.Name,
		"type":     "percentage",
		"value":    res.Value,
		"currency": "usd",
		"duration": "once",
	})
}
