package codegen

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	// ReferralAlphabet omits 0, O, 1 and I.
	ReferralAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	ReferralCodeLength = 8

	LicenseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	LicensePrefix   = "AGENCYOS"
	licenseSegments = 4
	licenseSegLen   = 4
)

var (
	licenseKeyPattern   = regexp.MustCompile(`^AGENCYOS-[A-Z0-9]{4}(-[A-Z0-9]{4}){3}$`)
	referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// Generate returns a random string over alphabet using crypto/rand.
func Generate(alphabet string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}
	n := len(alphabet)
	if n == 0 || n > 256 {
		return "", fmt.Errorf("invalid alphabet size: %d", n)
	}

	// Rejection sampling to avoid modulo bias.
	maxRandomByte := 256 - 256%n

	out := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if int(b) >= maxRandomByte {
				continue
			}
			out[written] = alphabet[int(b)%n]
			written++
			if written == length {
				break
			}
		}
	}

	return string(out), nil
}

func ReferralCode() (string, error) {
	return Generate(ReferralAlphabet, ReferralCodeLength)
}

// LicenseKey returns a key like AGENCYOS-K3F9-QX2M-7TBA-H0LZ.
func LicenseKey() (string, error) {
	parts := make([]string, 0, licenseSegments+1)
	parts = append(parts, LicensePrefix)
	for i := 0; i < licenseSegments; i++ {
		seg, err := Generate(LicenseAlphabet, licenseSegLen)
		if err != nil {
			return "", err
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "-"), nil
}

func ValidLicenseKey(key string) bool {
	return licenseKeyPattern.MatchString(key)
}

// NormalizeReferralCode trims and uppercases a code and reports whether it has
// the stored shape.
func NormalizeReferralCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return code, referralCodePattern.MatchString(code)
}
