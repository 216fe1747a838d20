package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/license"
)

type fakeLicenses map[string]*license.Validation

func (f fakeLicenses) Validate(ctx context.Context, key string) (*license.Validation, error) {
	if key == "BROKEN" {
		return nil, apperr.Internal(errors.New("db down"), "Failed to load license")
	}
	v, ok := f[key]
	if !ok {
		return nil, apperr.NotFound("License key not found")
	}
	return v, nil
}

func TestLicenseHolderAuth(t *testing.T) {
	licenses := fakeLicenses{
		"GOOD":     {Valid: true, License: &models.License{Email: "ana@example.com"}},
		"INACTIVE": {Valid: false, Reason: license.ReasonInactive, License: &models.License{Email: "ben@example.com"}},
	}
	app := fiber.New()
	app.Get("/", LicenseHolderAuth(licenses), func(c *fiber.Ctx) error {
		return c.SendString(LicenseHolder(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer GOOD")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", string(body))

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "", ""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "Authorization", "Bearer INACTIVE"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "Authorization", "Bearer UNKNOWN"))
	assert.Equal(t, fiber.StatusInternalServerError, status(t, app, "Authorization", "Bearer BROKEN"))
}
