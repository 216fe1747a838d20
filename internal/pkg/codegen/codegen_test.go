package codegen

import (
	"strings"
	"testing"
)

func TestGenerate_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := Generate(ReferralAlphabet, 0); err == nil {
		t.Fatalf("expected error for invalid length")
	}
	if _, err := Generate("", 4); err == nil {
		t.Fatalf("expected error for empty alphabet")
	}
}

func TestReferralCode_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	code, err := ReferralCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != ReferralCodeLength {
		t.Fatalf("expected code length %d, got %d", ReferralCodeLength, len(code))
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(ReferralAlphabet, code[i]) == -1 {
			t.Fatalf("code contains invalid character %q", code[i])
		}
	}
}

func TestReferralCode_UniqueWithinSmallBatch(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := ReferralCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, exists := seen[code]; exists {
			t.Fatalf("duplicate code generated in small batch: %s", code)
		}
		seen[code] = struct{}{}
	}
}

func TestLicenseKey_Format(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		key, err := LicenseKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ValidLicenseKey(key) {
			t.Fatalf("generated key has invalid format: %s", key)
		}
	}
}

func TestValidLicenseKey(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"AGENCYOS-ABCD-1234-EFGH-5678": true,
		"AGENCYOS-ABCD-1234-EFGH":      false,
		"agencyos-abcd-1234-efgh-5678": false,
		"AGENCYOS-ABCD-1234-EFGH-567!": false,
		"":                             false,
	}
	for key, want := range cases {
		if got := ValidLicenseKey(key); got != want {
			t.Fatalf("ValidLicenseKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestNormalizeReferralCode(t *testing.T) {
	t.Parallel()

	code, ok := NormalizeReferralCode(" abc12345 ")
	if !ok || code != "ABC12345" {
		t.Fatalf("unexpected result %q %v", code, ok)
	}
	if _, ok := NormalizeReferralCode("ABC"); ok {
		t.Fatalf("short code accepted")
	}
}
