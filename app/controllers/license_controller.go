package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/license"
)

// LicenseController serves license validation, manual issuance and the
// subscription status lookup.
type LicenseController struct {
	svc *license.Service
}

func NewLicenseController(svc *license.Service) *LicenseController {
	return &LicenseController{svc: svc}
}

type licenseKeyRequest struct {
	Key        string `json:"key"`
	LicenseKey string `json:"license_key"`
}

// HandleValidateLicense accepts the key as query (key, license_key) or JSON body.
func (lc *LicenseController) HandleValidateLicense(c *fiber.Ctx) error {
	key := c.Query("key", c.Query("license_key"))
	if key == "" && c.Method() == fiber.MethodPost {
		var req licenseKeyRequest
		if err := c.BodyParser(&req); err == nil {
			key = req.Key
			if key == "" {
				key = req.LicenseKey
			}
		}
	}

	v, err := lc.svc.Validate(c.UserContext(), key)
	if err != nil {
		return c.Status(apperr.HTTPStatus(apperr.KindOf(err))).JSON(fiber.Map{
			"valid": false,
			"error": apperr.Message(err),
		})
	}

	lic := v.License
	if !v.Valid {
		resp := fiber.Map{"valid": false, "error": v.Reason}
		if v.Reason == license.ReasonExpired {
			resp["expires_at"] = lic.ExpiresAt
		} else {
			resp["status"] = lic.Status
		}
		return c.Status(fiber.StatusForbidden).JSON(resp)
	}

	activatedAt := lic.CreatedAt
	if lic.ActivatedAt != nil {
		activatedAt = *lic.ActivatedAt
	}
	return c.JSON(fiber.Map{
		"valid":        true,
		"plan":         lic.Plan,
		"email":        lic.Email,
		"activated_at": activatedAt,
		"expires_at":   lic.ExpiresAt,
		"limits":       v.Limits,
	})
}

type generateLicenseRequest struct {
	Email   string `json:"email" validate:"required,email,max=200"`
	Name    string `json:"name" validate:"max=150"`
	Plan    string `json:"plan"`
	OrderID string `json:"order_id"`
}

// HandleGenerateLicense issues a license by hand. Admin only.
func (lc *LicenseController) HandleGenerateLicense(c *fiber.Ctx) error {
	var req generateLicenseRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid request body"))
	}
	if req.Email == "" {
		return respondError(c, apperr.InvalidInput("Email is required"))
	}
	if err := validate.Struct(&req); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid email"))
	}

	res, err := lc.svc.Issue(c.UserContext(), license.IssueInput{
		Email:    req.Email,
		Name:     req.Name,
		Plan:     req.Plan,
		Provider: license.ProviderManual,
		OrderID:  req.OrderID,
	})
	if err != nil {
		return respondError(c, err)
	}
	lic := res.License
	return c.JSON(fiber.Map{
		"success":     true,
		"created":     res.Created,
		"license_key": lic.LicenseKey,
		"email":       lic.Email,
		"plan":        lic.Plan,
		"created_at":  lic.CreatedAt,
	})
}

// HandleSubscriptionStatus reports the tier and limits for an email or key.
// Customers without a usable license get 404 together with the free tier.
func (lc *LicenseController) HandleSubscriptionStatus(c *fiber.Ctx) error {
	status, err := lc.svc.StatusFor(c.UserContext(), c.Query("email"), c.Query("license_key"))
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return respondError(c, err)
		}
		free := license.FreeStatus()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":            apperr.Message(err),
			"has_subscription": false,
			"tier":             free.Tier,
			"limits":           free.Limits,
			"features":         free.Features,
		})
	}
	return c.JSON(status)
}
