package affiliate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/security"
)

// PayoutThreshold is the minimum pending balance for a withdrawal request.
var PayoutThreshold = decimal.NewFromInt(50)

// ClickContext carries the request attributes recorded with a click.
type ClickContext struct {
	Source      string
	Medium      string
	Campaign    string
	LandingPage string
	// RemoteIP is the client address as resolved by the HTTP layer, which
	// honours a configured proxy header.
	RemoteIP  string
	UserAgent string
}

type ClickResult struct {
	Click *models.AffiliateClick
	Token security.AttributionToken
}

type ConversionInput struct {
	OrderID       string
	ReferralCode  string
	ProductName   string
	GrossAmount   decimal.Decimal
	IsRecurring   bool
	CustomerEmail string
	Provider      string
	ProviderRef   string
}

// ConversionResult reports what RecordConversion did. Attributed is false when
// no active affiliate owns the referral code; Duplicate is true for a replayed order.
type ConversionResult struct {
	Attributed bool
	Duplicate  bool
	Conversion *models.AffiliateConversion
}

type RefundResult struct {
	Found      bool
	Status     string
	Conversion *models.AffiliateConversion
}

// Totals are the derived balance fields of an affiliate.
type Totals struct {
	TotalConversions int64
	TotalEarnings    decimal.Decimal
	PendingPayout    decimal.Decimal
	LifetimeEarnings decimal.Decimal
	Badge            string
}

type PayoutInput struct {
	AffiliateID  string
	Method       string
	PaymentEmail string
}

type PayoutSummary struct {
	Payouts          []models.AffiliatePayout `json:"payouts"`
	PendingAmount    decimal.Decimal          `json:"pendingAmount"`
	PaymentMethod    string                   `json:"paymentMethod"`
	PaymentEmail     string                   `json:"paymentEmail"`
	Threshold        decimal.Decimal          `json:"threshold"`
	CanRequestPayout bool                     `json:"canRequestPayout"`
	HasOpenRequest   bool                     `json:"hasOpenRequest"`
}

type RegisterInput struct {
	Email         string
	Name          string
	UserID        string
	PaymentMethod string
	PaymentEmail  string
}

type RegisterResult struct {
	Affiliate    *models.Affiliate
	Created      bool
	ReferralLink string
}

type ProfileUpdate struct {
	Name          *string
	PaymentMethod *string
	PaymentEmail  *string
}

type RecentConversion struct {
	ID          string          `json:"id"`
	ProductName string          `json:"productName"`
	Commission  decimal.Decimal `json:"commission"`
	Status      string          `json:"status"`
	IsRecurring bool            `json:"isRecurring"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Achievement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Unlocked bool   `json:"unlocked"`
}

type Stats struct {
	AffiliateID       string             `json:"affiliateId"`
	ReferralCode      string             `json:"referralCode"`
	ReferralLink      string             `json:"referralLink"`
	TotalClicks       int64              `json:"totalClicks"`
	TotalConversions  int64              `json:"totalConversions"`
	TotalEarnings     decimal.Decimal    `json:"totalEarnings"`
	PendingPayout     decimal.Decimal    `json:"pendingPayout"`
	LifetimeEarnings  decimal.Decimal    `json:"lifetimeEarnings"`
	MonthClicks       int64              `json:"monthClicks"`
	MonthConversions  int64              `json:"monthConversions"`
	MonthEarnings     decimal.Decimal    `json:"monthEarnings"`
	ConversionRate    float64            `json:"conversionRate"`
	Badge             string             `json:"badge"`
	RecentConversions []RecentConversion `json:"recentConversions"`
	Achievements      []Achievement      `json:"achievements"`
}

type RankProgress struct {
	Current         string `json:"current"`
	Next            string `json:"next,omitempty"`
	Progress        int    `json:"progress"`
	ConversionsToGo int64  `json:"conversionsToGo"`
}

type Dashboard struct {
	Stats          *Stats       `json:"stats"`
	Rank           RankProgress `json:"rank"`
	NextPayoutDate time.Time    `json:"nextPayoutDate"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Name        string `json:"name"`
	Badge       string `json:"badge"`
	Conversions int64  `json:"conversions"`
	Earnings    string `json:"earnings"`
}
