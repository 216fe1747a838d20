package affiliate

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

const (
	payoutHistoryLimit = 20

	msgAlreadyRequested = "You already have a pending payout request"
)

// RequestPayout opens a withdrawal request for the affiliate's pending balance.
func (s *Service) RequestPayout(ctx context.Context, in PayoutInput) (*models.AffiliatePayout, error) {
	if in.AffiliateID == "" {
		return nil, apperr.InvalidInput("affiliateId is required")
	}
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method != "" && !models.IsValidPaymentMethod(method) {
		return nil, apperr.InvalidInput("Invalid payment method")
	}

	var payout *models.AffiliatePayout
	err := s.repo.WithinTransaction(ctx, func(repo Repository) error {
		a, err := repo.LockAffiliate(ctx, in.AffiliateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Affiliate not found")
			}
			return apperr.Internal(err, "Failed to load affiliate")
		}

		totals, err := recompute(ctx, repo, a.ID)
		if err != nil {
			return err
		}
		if totals.PendingPayout.LessThan(PayoutThreshold) {
			return apperr.BelowThreshold("Minimum payout is $%s. You have $%s.",
				PayoutThreshold.String(), totals.PendingPayout.StringFixed(2))
		}

		open, err := repo.HasOpenPayout(ctx, a.ID)
		if err != nil {
			return apperr.Internal(err, "Failed to check payout requests")
		}
		if open {
			return apperr.AlreadyRequested(msgAlreadyRequested)
		}

		if method == "" {
			method = a.PaymentMethod
		}
		email := strings.TrimSpace(in.PaymentEmail)
		if email == "" {
			email = a.PaymentEmail
		}
		if email == "" {
			email = a.Email
		}

		p := &models.AffiliatePayout{
			AffiliateID:  a.ID,
			Amount:       totals.PendingPayout,
			PaidAmount:   decimal.Zero,
			Method:       method,
			PaymentEmail: email,
			Status:       models.PayoutStatusPending,
		}
		if err := repo.CreatePayout(ctx, p); err != nil {
			if isDuplicateKey(err) {
				return apperr.AlreadyRequested(msgAlreadyRequested)
			}
			return apperr.Internal(err, "Failed to create payout request")
		}
		if _, err := repo.TagPendingConversions(ctx, a.ID, p.ID); err != nil {
			return apperr.Internal(err, "Failed to reserve conversions")
		}
		payout = p
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal && isDuplicateKey(err) {
			return nil, apperr.AlreadyRequested(msgAlreadyRequested)
		}
		return nil, err
	}

	log.Infof("[Affiliate] Payout %s requested by %s: $%s via %s", payout.ID, payout.AffiliateID, payout.Amount.StringFixed(2), payout.Method)
	return payout, nil
}

// SettlePayout advances a payout request to processing, paid or rejected.
func (s *Service) SettlePayout(ctx context.Context, payoutID, outcome, note string) (*models.AffiliatePayout, error) {
	payoutID = strings.TrimSpace(payoutID)
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	if payoutID == "" {
		return nil, apperr.InvalidInput("payout id is required")
	}
	switch outcome {
	case models.PayoutStatusProcessing, models.PayoutStatusPaid, models.PayoutStatusRejected:
	default:
		return nil, apperr.InvalidInput("Invalid outcome %q", outcome)
	}

	var settled *models.AffiliatePayout
	err := s.repo.WithinTransaction(ctx, func(repo Repository) error {
		p, err := repo.LockPayout(ctx, payoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Payout not found")
			}
			return apperr.Internal(err, "Failed to load payout")
		}
		if !canTransition(p.Status, outcome) {
			return apperr.InvalidInput("Cannot move payout from %s to %s", p.Status, outcome)
		}

		updates := map[string]interface{}{"status": outcome}
		if strings.TrimSpace(note) != "" {
			updates["note"] = truncate(note, 500)
		}

		switch outcome {
		case models.PayoutStatusPaid:
			tagged, err := repo.ListPayoutConversions(ctx, p.ID)
			if err != nil {
				return apperr.Internal(err, "Failed to load payout conversions")
			}
			paid := decimal.Zero
			for _, c := range tagged {
				if c.Status == models.ConversionStatusPending {
					paid = paid.Add(c.CommissionAmount)
				}
			}
			if err := repo.MarkPayoutConversionsPaid(ctx, p.ID); err != nil {
				return apperr.Internal(err, "Failed to mark conversions paid")
			}
			updates["paid_amount"] = paid
			p.PaidAmount = paid
		case models.PayoutStatusRejected:
			if err := repo.ReleasePayoutConversions(ctx, p.ID); err != nil {
				return apperr.Internal(err, "Failed to release conversions")
			}
		}

		if !models.IsOpenPayoutStatus(outcome) {
			now := s.now()
			updates["open_guard"] = gorm.Expr("NULL")
			updates["settled_at"] = now
			p.OpenGuard = nil
			p.SettledAt = &now
		}
		if err := repo.UpdatePayout(ctx, p.ID, updates); err != nil {
			return apperr.Internal(err, "Failed to update payout")
		}
		if _, err := recompute(ctx, repo, p.AffiliateID); err != nil {
			return err
		}

		p.Status = outcome
		if n, ok := updates["note"].(string); ok {
			p.Note = n
		}
		settled = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Affiliate] Payout %s settled as %s", settled.ID, settled.Status)
	return settled, nil
}

func canTransition(from, to string) bool {
	switch to {
	case models.PayoutStatusProcessing:
		return from == models.PayoutStatusPending
	case models.PayoutStatusPaid, models.PayoutStatusRejected:
		return models.IsOpenPayoutStatus(from)
	}
	return false
}

// PayoutSummary returns the payout history and whether a new request is possible.
func (s *Service) PayoutSummary(ctx context.Context, affiliateID string) (*PayoutSummary, error) {
	a, err := s.GetByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	payouts, err := s.repo.ListPayouts(ctx, a.ID, payoutHistoryLimit)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load payouts")
	}
	open := false
	for _, p := range payouts {
		if p.IsOpen() {
			open = true
			break
		}
	}
	if !open {
		if open, err = s.repo.HasOpenPayout(ctx, a.ID); err != nil {
			return nil, apperr.Internal(err, "Failed to check payout requests")
		}
	}

	return &PayoutSummary{
		Payouts:          payouts,
		PendingAmount:    a.PendingPayout,
		PaymentMethod:    a.PaymentMethod,
		PaymentEmail:     a.PaymentEmail,
		Threshold:        PayoutThreshold,
		CanRequestPayout: a.PendingPayout.GreaterThanOrEqual(PayoutThreshold) && !open,
		HasOpenRequest:   open,
	}, nil
}

// UpdatePaymentMethod stores the payout method and destination.
func (s *Service) UpdatePaymentMethod(ctx context.Context, affiliateID, method, email string) (*models.Affiliate, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return nil, apperr.InvalidInput("Payment method is required")
	}
	if !models.IsValidPaymentMethod(method) {
		return nil, apperr.InvalidInput("Invalid payment method")
	}
	return s.Update(ctx, affiliateID, ProfileUpdate{PaymentMethod: &method, PaymentEmail: &email})
}
