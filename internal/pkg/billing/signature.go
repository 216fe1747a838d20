package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

const (
	ProviderLemonSqueezy = "lemonsqueezy"
	ProviderPolar        = "polar"

	HeaderLemonSqueezySignature = "X-Signature"
	HeaderPolarSignature        = "X-Polar-Signature"
	HeaderPolarWebhookID        = "Webhook-Id"
)

// VerifyLemonSqueezySignature checks the hex HMAC-SHA256 sent in X-Signature.
func VerifyLemonSqueezySignature(payload []byte, signatureHeader, webhookSecret string) bool {
	return verifyHexSHA256(payload, signatureHeader, webhookSecret)
}

// VerifyPolarSignature checks X-Polar-Signature in the form sha256=<hex>.
func VerifyPolarSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if !strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		return false
	}
	return verifyHexSHA256(payload, sig[len("sha256="):], webhookSecret)
}

// VerifySignature dispatches on provider.
func VerifySignature(provider string, payload []byte, signatureHeader, webhookSecret string) bool {
	switch provider {
	case ProviderLemonSqueezy:
		return VerifyLemonSqueezySignature(payload, signatureHeader, webhookSecret)
	case ProviderPolar:
		return VerifyPolarSignature(payload, signatureHeader, webhookSecret)
	default:
		return false
	}
}

// SignPayload returns the hex HMAC-SHA256 of payload. Used by tools and tests
// that replay deliveries.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHexSHA256(payload []byte, signature, webhookSecret string) bool {
	sig := strings.TrimSpace(signature)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMAC(payload, decodedSig, []byte(secret), sha256.New)
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
