package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AttributionWindow is how long a click keeps credit for a later purchase.
const AttributionWindow = 60 * 24 * time.Hour

// AttributionToken binds a referral code and click to a fixed expiry. The
// expiry is set once at issuance and never moves.
type AttributionToken struct {
	ReferralCode string
	ClickID      string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

type attributionClaims struct {
	ReferralCode string `json:"ref"`
	ClickID      string `json:"click"`
	jwt.RegisteredClaims
}

func NewAttributionToken(referralCode, clickID string, now time.Time) AttributionToken {
	issued := now.UTC().Truncate(time.Second)
	return AttributionToken{
		ReferralCode: referralCode,
		ClickID:      clickID,
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(AttributionWindow),
	}
}

// MaxAgeSeconds is the remaining lifetime relative to issuance, for cookie Max-Age.
func (t AttributionToken) MaxAgeSeconds() int {
	return int(t.ExpiresAt.Sub(t.IssuedAt) / time.Second)
}

func (t AttributionToken) Sign(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for token generation")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, attributionClaims{
		ReferralCode: t.ReferralCode,
		ClickID:      t.ClickID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   t.ReferralCode,
			IssuedAt:  jwt.NewNumericDate(t.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(t.ExpiresAt),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseAttributionToken verifies signature and expiry against now.
func ParseAttributionToken(raw, secret string, now time.Time) (AttributionToken, error) {
	if secret == "" {
		return AttributionToken{}, errors.New("secret is required for token verification")
	}
	parsed, err := jwt.ParseWithClaims(raw, &attributionClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return AttributionToken{}, err
	}
	claims, ok := parsed.Claims.(*attributionClaims)
	if !ok || !parsed.Valid || claims.ReferralCode == "" || claims.ExpiresAt == nil {
		return AttributionToken{}, errors.New("invalid token claims")
	}

	out := AttributionToken{
		ReferralCode: claims.ReferralCode,
		ClickID:      claims.ClickID,
		ExpiresAt:    claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}
