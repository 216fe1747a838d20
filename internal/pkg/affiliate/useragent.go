package affiliate

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/ManuelReschke/AffiliateFox/app/models"
)

const maxUserAgentLength = 500

// ClassifyUserAgent returns device class and browser family.
func ClassifyUserAgent(raw string) (device, browser string) {
	if strings.TrimSpace(raw) == "" {
		return models.DeviceDesktop, models.BrowserUnknown
	}
	ua := useragent.Parse(raw)

	switch {
	case ua.Bot:
		device = models.DeviceBot
	case ua.Tablet:
		device = models.DeviceTablet
	case ua.Mobile:
		device = models.DeviceMobile
	default:
		device = models.DeviceDesktop
	}

	browser = ua.Name
	if browser == "" {
		browser = models.BrowserUnknown
	}
	if len(browser) > 50 {
		browser = browser[:50]
	}
	return device, browser
}

// ClientIP strips the port from a remote address. Forwarded headers are
// resolved by fiber's ProxyHeader setting, never here.
func ClientIP(remote string) string {
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return strings.TrimSpace(remote)
}

// HashIP returns the first 16 hex chars of sha256(ip + salt).
func HashIP(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])[:16]
}

func truncateUserAgent(ua string) string {
	if len(ua) <= maxUserAgentLength {
		return ua
	}
	return ua[:maxUserAgentLength]
}
