package affiliate

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

// RecordConversion attributes a sale or renewal to the referring affiliate.
// Replays of an order id return the stored conversion.
func (s *Service) RecordConversion(ctx context.Context, in ConversionInput) (*ConversionResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return nil, apperr.InvalidInput("Missing order id")
	}
	if in.GrossAmount.IsNegative() {
		return nil, apperr.InvalidInput("Gross amount must not be negative")
	}

	code := strings.ToUpper(strings.TrimSpace(in.ReferralCode))
	if code == "" {
		return &ConversionResult{}, nil
	}
	a, err := s.ResolveCode(ctx, code)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			log.Infof("[Affiliate] Order %s carries unknown referral code %s", orderID, code)
			return &ConversionResult{}, nil
		}
		return nil, err
	}

	rate := CommissionRate(in.ProductName, in.IsRecurring)
	conv := &models.AffiliateConversion{
		AffiliateID:      a.ID,
		OrderID:          orderID,
		ProductName:      truncate(in.ProductName, 150),
		ProductPrice:     in.GrossAmount.Round(2),
		CommissionRate:   rate,
		CommissionAmount: Commission(in.GrossAmount, rate),
		Status:           models.ConversionStatusPending,
		IsRecurring:      in.IsRecurring,
		CustomerEmail:    strings.TrimSpace(in.CustomerEmail),
		Provider:         in.Provider,
		ProviderRef:      in.ProviderRef,
	}

	created, stored, err := s.repo.CreateConversionIfNotExists(ctx, conv)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to record conversion")
	}
	if !created {
		log.Infof("[Affiliate] Duplicate conversion for order %s ignored", orderID)
		// a retried delivery may follow a failed totals update
		if _, err := recompute(ctx, s.repo, stored.AffiliateID); err != nil {
			return nil, err
		}
		return &ConversionResult{Attributed: true, Duplicate: true, Conversion: stored}, nil
	}

	if _, err := recompute(ctx, s.repo, a.ID); err != nil {
		return nil, err
	}
	log.Infof("[Affiliate] Recorded conversion %s for %s: %s commission", orderID, a.ReferralCode, stored.CommissionAmount.StringFixed(2))
	return &ConversionResult{Attributed: true, Conversion: stored}, nil
}

// RefundConversion marks a pending conversion refunded. Paid conversions keep
// their status.
func (s *Service) RefundConversion(ctx context.Context, orderID string) (*RefundResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.InvalidInput("Missing order id")
	}
	conv, err := s.repo.FindConversionByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &RefundResult{}, nil
		}
		return nil, apperr.Internal(err, "Failed to load conversion")
	}

	switch conv.Status {
	case models.ConversionStatusRefunded:
		return &RefundResult{Found: true, Status: conv.Status, Conversion: conv}, nil
	case models.ConversionStatusPaid:
		log.Warnf("[Affiliate] Refund for already paid order %s left unchanged", orderID)
		return &RefundResult{Found: true, Status: conv.Status, Conversion: conv}, nil
	}

	moved, err := s.repo.TransitionConversion(ctx, conv.ID, models.ConversionStatusPending, models.ConversionStatusRefunded)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to refund conversion")
	}
	if !moved {
		// Settled concurrently; report the current status.
		conv, err = s.repo.FindConversionByOrderID(ctx, orderID)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to load conversion")
		}
		return &RefundResult{Found: true, Status: conv.Status, Conversion: conv}, nil
	}
	conv.Status = models.ConversionStatusRefunded

	if _, err := recompute(ctx, s.repo, conv.AffiliateID); err != nil {
		return nil, err
	}
	log.Infof("[Affiliate] Refunded conversion %s", orderID)
	return &RefundResult{Found: true, Status: conv.Status, Conversion: conv}, nil
}
