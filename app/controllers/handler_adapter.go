package controllers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/repository"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/billing"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/credits"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/export"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/license"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/mail"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/promo"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/s3archive"
)

// Controllers groups every API controller.
type Controllers struct {
	Affiliate *AffiliateController
	Payout    *PayoutController
	Webhook   *WebhookController
	Checkout  *CheckoutController
	License   *LicenseController
	Email     *EmailController
	Admin     *AdminController
	Credits   *CreditsController
}

// Global controller set used by the router
var controllers *Controllers

// InitializeControllers wires the controllers against db and the environment.
func InitializeControllers(ctx context.Context, db *gorm.DB) error {
	c, err := NewControllersFromEnv(ctx, db)
	if err != nil {
		return err
	}
	controllers = c
	return nil
}

// GetControllers returns the global controller set.
func GetControllers() *Controllers {
	return controllers
}

// NewControllersFromEnv builds the services on db. Configuration comes from
// the environment (webhook secrets, Polar, promo policy, S3 archive).
func NewControllersFromEnv(ctx context.Context, db *gorm.DB) (*Controllers, error) {
	policy, err := promo.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("promo policy: %w", err)
	}

	var archive export.Archiver
	client, err := s3archive.NewFromEnv(ctx)
	if err != nil {
		log.Errorf("[Controllers] S3 export archive disabled: %v", err)
	} else if client != nil {
		archive = client
	}

	repos := repository.NewRepositories(db)
	mailer := mail.Default()
	queue := mail.NewQueue(repos.EmailQueue, mailer)
	affiliates := affiliate.NewServiceFromDB(db)
	licenses := license.NewService(repos.License, mailer, queue)
	events := billing.NewServiceFromDB(db)
	tokenSecret := env.GetEnv("ATTRIBUTION_TOKEN_SECRET", "")

	return &Controllers{
		Affiliate: NewAffiliateController(affiliates, tokenSecret),
		Payout:    NewPayoutController(affiliates, queue),
		Webhook:   NewWebhookController(billing.NewIngestor(events, affiliates, licenses, billing.SecretsFromEnv())),
		Checkout:  NewCheckoutController(billing.NewPolarClientFromEnv(), policy, tokenSecret),
		License:   NewLicenseController(licenses),
		Email:     NewEmailController(mailer, queue),
		Admin:     NewAdminController(affiliates, export.NewService(db, archive), events),
		Credits:   NewCreditsController(credits.NewService(credits.NewRepository(db), licenses, licenses), licenses),
	}, nil
}
