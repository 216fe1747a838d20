package affiliate

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/metrics/counter"
)

// ClickIncrementer bumps an affiliate's click total outside the request's
// critical path.
type ClickIncrementer interface {
	AddClick(ctx context.Context, affiliateID string) error
}

type Config struct {
	IPSalt  string
	BaseURL string
}

// ConfigFromEnv reads AFFILIATE_IP_SALT and APP_BASE_URL.
func ConfigFromEnv() Config {
	return Config{
		IPSalt:  env.GetEnv("AFFILIATE_IP_SALT", ""),
		BaseURL: env.GetEnv("APP_BASE_URL", "http://localhost:4000"),
	}
}

// Service implements attribution, conversion recording, the ledger and the
// payout gate.
type Service struct {
	repo   Repository
	clicks ClickIncrementer
	cfg    Config
	now    func() time.Time
}

func NewService(repo Repository, clicks ClickIncrementer, cfg Config) *Service {
	return &Service{repo: repo, clicks: clicks, cfg: cfg, now: time.Now}
}

// NewServiceFromDB wires the GORM repository and the shared click counter.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), counter.NewDefaultClickCounter(db), ConfigFromEnv())
}

// ReferralLink returns the landing URL carrying the referral code.
func (s *Service) ReferralLink(code string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	return base + "?ref=" + code
}
