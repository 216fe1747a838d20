package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/skip2/go-qrcode"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

const (
	CookieReferral = "aff_ref"
	CookieClick    = "aff_click"

	qrCodeSize = 256
)

// AffiliateController serves click tracking, dashboard stats, registration
// and the referral QR code.
type AffiliateController struct {
	svc         *affiliate.Service
	tokenSecret string
}

func NewAffiliateController(svc *affiliate.Service, tokenSecret string) *AffiliateController {
	return &AffiliateController{svc: svc, tokenSecret: tokenSecret}
}

// HandleTrackClick records a referral click and sets the attribution cookies.
func (ac *AffiliateController) HandleTrackClick(c *fiber.Ctx) error {
	res, err := ac.svc.RecordClick(c.UserContext(), c.Query("ref"), affiliate.ClickContext{
		Source:      c.Query("source"),
		Medium:      c.Query("medium"),
		Campaign:    c.Query("campaign"),
		LandingPage: c.Query("page"),
		RemoteIP:    c.IP(),
		UserAgent:   c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return respondError(c, err)
	}

	token := ""
	if ac.tokenSecret != "" {
		if token, err = res.Token.Sign(ac.tokenSecret); err != nil {
			log.Warnf("[Affiliate] Signing attribution token failed: %v", err)
			token = ""
		}
	}

	maxAge := res.Token.MaxAgeSeconds()
	c.Cookie(&fiber.Cookie{
		Name:     CookieReferral,
		Value:    res.Token.ReferralCode,
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     CookieClick,
		Value:    res.Click.ID,
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"success":          true,
		"clickId":          res.Click.ID,
		"attributionToken": token,
		"expiresAt":        res.Token.ExpiresAt.Format(time.RFC3339),
		"message":          "Click tracked successfully",
	})
}

type trackActionRequest struct {
	Action      string `json:"action" validate:"required"`
	AffiliateID string `json:"affiliateId"`
}

// HandleTrackAction serves the dashboard stats and the leaderboard.
func (ac *AffiliateController) HandleTrackAction(c *fiber.Ctx) error {
	var req trackActionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid action"))
	}

	switch req.Action {
	case "stats":
		stats, err := ac.svc.Stats(c.UserContext(), req.AffiliateID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "stats": stats})
	case "leaderboard":
		entries, err := ac.svc.Leaderboard(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "leaderboard": entries})
	default:
		return respondError(c, apperr.InvalidInput("Invalid action"))
	}
}

// HandleStats returns rank progression, achievements and the next payout date.
func (ac *AffiliateController) HandleStats(c *fiber.Ctx) error {
	d, err := ac.svc.Dashboard(c.UserContext(), c.Query("affiliate_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"stats":          d.Stats,
		"rank":           d.Rank,
		"nextPayoutDate": d.NextPayoutDate.Format("2006-01-02"),
	})
}

type signupRequest struct {
	Action        string `json:"action" validate:"required,oneof=register update get"`
	AffiliateID   string `json:"affiliateId"`
	UserID        string `json:"userId"`
	Email         string `json:"email" validate:"omitempty,max=200"`
	Name          string `json:"name" validate:"max=150"`
	PaymentMethod string `json:"paymentMethod"`
	PaymentEmail  string `json:"paymentEmail"`
}

// HandleSignup registers, updates or looks up an affiliate.
func (ac *AffiliateController) HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid action"))
	}
	ctx := c.UserContext()

	switch req.Action {
	case "register":
		res, err := ac.svc.Register(ctx, affiliate.RegisterInput{
			Email:         req.Email,
			Name:          req.Name,
			UserID:        req.UserID,
			PaymentMethod: req.PaymentMethod,
			PaymentEmail:  req.PaymentEmail,
		})
		if err != nil {
			return respondError(c, err)
		}
		status, message := fiber.StatusOK, "Affiliate already registered"
		if res.Created {
			status, message = fiber.StatusCreated, "Affiliate registered successfully"
		}
		return c.Status(status).JSON(fiber.Map{
			"success":      true,
			"message":      message,
			"affiliateId":  res.Affiliate.ID,
			"referralCode": res.Affiliate.ReferralCode,
			"referralLink": res.ReferralLink,
		})

	case "update":
		if req.AffiliateID == "" {
			return respondError(c, apperr.InvalidInput("Affiliate ID is required"))
		}
		if _, err := ac.svc.Update(ctx, req.AffiliateID, affiliate.ProfileUpdate{
			Name:          optional(req.Name),
			PaymentMethod: optional(req.PaymentMethod),
			PaymentEmail:  optional(req.PaymentEmail),
		}); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Settings updated"})

	default:
		a, err := ac.svc.GetByEmail(ctx, req.Email)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"affiliate": fiber.Map{
				"id":               a.ID,
				"email":            a.Email,
				"name":             a.Name,
				"referralCode":     a.ReferralCode,
				"referralLink":     ac.svc.ReferralLink(a.ReferralCode),
				"paymentMethod":    a.PaymentMethod,
				"paymentEmail":     a.PaymentEmail,
				"totalClicks":      a.TotalClicks,
				"totalConversions": a.TotalConversions,
				"totalEarnings":    a.TotalEarnings,
				"pendingPayout":    a.PendingPayout,
				"badge":            a.Badge,
				"isActive":         a.IsActive,
				"createdAt":        a.CreatedAt,
			},
		})
	}
}

// HandleQRCode renders the referral link of an active affiliate as PNG.
func (ac *AffiliateController) HandleQRCode(c *fiber.Ctx) error {
	a, err := ac.svc.ResolveCode(c.UserContext(), c.Query("ref"))
	if err != nil {
		return respondError(c, err)
	}
	png, err := qrcode.Encode(ac.svc.ReferralLink(a.ReferralCode), qrcode.Medium, qrCodeSize)
	if err != nil {
		return respondError(c, apperr.Internal(err, "Failed to render QR code"))
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(png)
}
