package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
)

// AdminKeyHeader carries the plain admin API key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyAuth authenticates admin requests against a bcrypt hash of the admin
// API key. An empty hash disables every admin route.
func AdminKeyAuth(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			log.Warn("[Middleware] Admin route called without ADMIN_API_KEY_HASH configured")
			return unauthorized(c)
		}
		key := extractAdminKey(c)
		if key == "" {
			return unauthorized(c)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// AdminKeyAuthFromEnv reads ADMIN_API_KEY_HASH.
func AdminKeyAuthFromEnv() fiber.Handler {
	return AdminKeyAuth(env.GetEnv("ADMIN_API_KEY_HASH", ""))
}

// CronSecretAuth accepts "Authorization: Bearer <secret>". An empty secret
// rejects everything.
func CronSecretAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if secret == "" || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// CronSecretAuthFromEnv reads CRON_SECRET.
func CronSecretAuthFromEnv() fiber.Handler {
	return CronSecretAuth(env.GetEnv("CRON_SECRET", ""))
}

func extractAdminKey(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get(AdminKeyHeader)); key != "" {
		return key
	}
	return bearerToken(c)
}

func bearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}
