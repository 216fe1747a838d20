package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

var validate = validator.New()

// respondError renders err as {"error": message} with the status of its kind.
// Internal causes are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(apperr.HTTPStatus(kind)).JSON(fiber.Map{"error": apperr.Message(err)})
}

// parseBody decodes the JSON body into dst and runs its validate tags.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.InvalidInput("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.InvalidInput("Invalid field: %s", verrs[0].Field())
		}
		return apperr.InvalidInput("Invalid request body")
	}
	return nil
}

// optional returns nil for blank values so partial updates leave fields untouched.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
