package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/license"
)

const licenseHolderKey = "licenseHolder"

// LicenseValidator resolves a license key.
type LicenseValidator interface {
	Validate(ctx context.Context, key string) (*license.Validation, error)
}

// LicenseHolderAuth accepts "Authorization: Bearer <license key>" for an
// active license and stores the holder's email for LicenseHolder.
func LicenseHolderAuth(licenses LicenseValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := bearerToken(c)
		if key == "" {
			return unauthorized(c)
		}
		v, err := licenses.Validate(c.UserContext(), key)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				log.Errorf("[Middleware] License lookup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": apperr.Message(err)})
			}
			return invalidToken(c)
		}
		if !v.Valid {
			return invalidToken(c)
		}
		c.Locals(licenseHolderKey, v.License.Email)
		return c.Next()
	}
}

// LicenseHolder returns the email stored by LicenseHolderAuth.
func LicenseHolder(c *fiber.Ctx) string {
	email, _ := c.Locals(licenseHolderKey).(string)
	return email
}

func invalidToken(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}
