package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/codegen"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/security"
)

const (
	defaultPolarAPIURL     = "https://api.polar.sh"
	defaultPolarSuccessURL = "https://agencyos.network/success"
)

var (
	checkoutPlans    = map[string]bool{"starter": true, "pro": true, "franchise": true}
	checkoutBillings = map[string]bool{"monthly": true, "annual": true}
)

type PolarClient struct {
	AccessToken string
	APIBaseURL  string
	SuccessURL  string

	// ProductID maps plan and billing period to a Polar product id.
	ProductID func(plan, billing string) string

	HTTPClient *http.Client
}

type CheckoutRequest struct {
	Plan          string
	Billing       string
	Email         string
	AffiliateCode string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func NewPolarClientFromEnv() *PolarClient {
	return &PolarClient{
		AccessToken: strings.TrimSpace(env.GetEnv("POLAR_ACCESS_TOKEN", "")),
		APIBaseURL:  strings.TrimRight(strings.TrimSpace(env.GetEnv("POLAR_API_URL", defaultPolarAPIURL)), "/"),
		SuccessURL:  strings.TrimSpace(env.GetEnv("POLAR_SUCCESS_URL", defaultPolarSuccessURL)),
		ProductID:   ProductIDFromEnv,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ProductIDFromEnv reads POLAR_PRODUCT_<PLAN>_<BILLING>.
func ProductIDFromEnv(plan, billing string) string {
	key := fmt.Sprintf("POLAR_PRODUCT_%s_%s", strings.ToUpper(plan), strings.ToUpper(billing))
	return strings.TrimSpace(env.GetEnv(key, ""))
}

// CreateCheckout opens a hosted Polar checkout for plan/billing. The referral
// code travels in the checkout metadata and comes back on the order webhook.
func (c *PolarClient) CreateCheckout(ctx context.Context, in CheckoutRequest) (*CheckoutSession, error) {
	plan := strings.ToLower(strings.TrimSpace(in.Plan))
	billing := strings.ToLower(strings.TrimSpace(in.Billing))
	if !checkoutPlans[plan] {
		return nil, apperr.InvalidInput("Invalid plan")
	}
	if !checkoutBillings[billing] {
		return nil, apperr.InvalidInput("Invalid billing period")
	}

	productID := ""
	if c.ProductID != nil {
		productID = c.ProductID(plan, billing)
	}
	if productID == "" {
		return nil, apperr.InvalidInput("Product not configured")
	}
	if c.AccessToken == "" {
		return nil, apperr.Internal(errors.New("POLAR_ACCESS_TOKEN is not configured"), "Failed to create checkout")
	}

	metadata := map[string]string{"plan": plan, "billing": billing}
	if code := strings.TrimSpace(in.AffiliateCode); code != "" {
		metadata["affiliateCode"] = code
	}
	reqBody := map[string]any{
		"products":    []string{productID},
		"success_url": c.SuccessURL + "?checkout_id={CHECKOUT_ID}",
		"metadata":    metadata,
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		reqBody["customer_email"] = email
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create checkout")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v1/checkouts/", bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create checkout")
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create checkout")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("polar checkout failed: status=%d body=%s", resp.StatusCode, string(body))
		log.Errorf("[Checkout] %v", err)
		return nil, apperr.Internal(err, "Failed to create checkout")
	}

	var out CheckoutSession
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperr.Internal(err, "Failed to create checkout")
	}
	if out.URL == "" {
		return nil, apperr.Internal(errors.New("polar checkout response without url"), "Failed to create checkout")
	}
	log.Infof("[Checkout] Created Polar checkout %s (plan=%s billing=%s ref=%s)", out.ID, plan, billing, metadata["affiliateCode"])
	return &out, nil
}

// ResolveReferralCode picks the referral code for a checkout: an explicit
// code first, then a valid attribution token, then the aff_ref cookie.
// Codes that do not have the referral code shape are skipped.
func ResolveReferralCode(explicit, attributionToken, cookieRef, tokenSecret string, now time.Time) string {
	if code, ok := codegen.NormalizeReferralCode(explicit); ok {
		return code
	}
	if attributionToken != "" && tokenSecret != "" {
		if tok, err := security.ParseAttributionToken(attributionToken, tokenSecret, now); err == nil {
			if code, ok := codegen.NormalizeReferralCode(tok.ReferralCode); ok {
				return code
			}
		}
	}
	if code, ok := codegen.NormalizeReferralCode(cookieRef); ok {
		return code
	}
	return ""
}
