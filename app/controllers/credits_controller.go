package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/credits"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/middleware"
)

// CreditsController serves the AGC credit ledger. Holder routes run behind
// Auth; grants are admin only.
type CreditsController struct {
	svc  *credits.Service
	auth fiber.Handler
}

func NewCreditsController(svc *credits.Service, licenses middleware.LicenseValidator) *CreditsController {
	return &CreditsController{svc: svc, auth: middleware.LicenseHolderAuth(licenses)}
}

// Auth authenticates the license holder.
func (cc *CreditsController) Auth() fiber.Handler {
	return cc.auth
}

// HandleGetCredits returns the balance, or the history with ?type=history.
func (cc *CreditsController) HandleGetCredits(c *fiber.Ctx) error {
	email := middleware.LicenseHolder(c)
	if c.Query("type") == "history" {
		txs, err := cc.svc.History(c.UserContext(), email)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"transactions": txs})
	}

	a, err := cc.svc.Balance(c.UserContext(), email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"balance":         a.Balance,
		"lifetime_earned": a.LifetimeEarned,
		"lifetime_spent":  a.LifetimeSpent,
	})
}

type transferRequest struct {
	ToEmail     string          `json:"to_email"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (cc *CreditsController) HandleTransfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid transfer request"))
	}
	tx, err := cc.svc.Transfer(c.UserContext(), credits.TransferInput{
		FromEmail:   middleware.LicenseHolder(c),
		ToEmail:     req.ToEmail,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     fmt.Sprintf("Transferred %s AGC to %s", tx.Amount.String(), tx.ToEmail),
		"transaction": tx,
	})
}

type redeemRequest struct {
	ProductID string `json:"product_id"`
}

func (cc *CreditsController) HandleRedeem(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid request body"))
	}
	ctx := c.UserContext()
	email := middleware.LicenseHolder(c)

	res, err := cc.svc.Redeem(ctx, email, req.ProductID)
	switch apperr.KindOf(err) {
	case "":
	case apperr.KindInvalidInput:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":     apperr.Message(err),
			"available": credits.ProductIDs(),
		})
	case apperr.KindInsufficient:
		resp := fiber.Map{"error": apperr.Message(err)}
		if p, ok := credits.LookupProduct(req.ProductID); ok {
			resp["required"] = p.Price
		}
		if a, berr := cc.svc.Balance(ctx, email); berr == nil {
			resp["available"] = a.Balance
		}
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	default:
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"message":           fmt.Sprintf("Purchased %s with %s AGC", res.Product.ID, res.Product.Price.String()),
		"license_key":       res.License.LicenseKey,
		"expires_at":        res.License.ExpiresAt,
		"remaining_balance": res.RemainingBalance,
	})
}

type grantRequest struct {
	Email       string          `json:"email"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	Reference   string          `json:"reference" validate:"max=191"`
}

// HandleGrant credits a holder. Admin only.
func (cc *CreditsController) HandleGrant(c *fiber.Ctx) error {
	var req grantRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := cc.svc.Grant(c.UserContext(), credits.GrantInput{
		Email:       req.Email,
		Amount:      req.Amount,
		Description: req.Description,
		Reference:   req.Reference,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"duplicate":   res.Duplicate,
		"transaction": res.Transaction,
	})
}
