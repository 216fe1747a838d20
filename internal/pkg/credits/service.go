// Package credits keeps the AGC credit ledger of license holders: balances,
// peer transfers, operator grants and redeeming credits for a license.
package credits

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/license"
)

const (
	ProviderCredits = "ag_credits"

	HistoryLimit = 50

	defaultTransferNote = "P2P Transfer"
)

var validate = validator.New()

// LicenseIssuer issues the license bought with credits.
type LicenseIssuer interface {
	Issue(ctx context.Context, in license.IssueInput) (*license.IssueResult, error)
}

// Directory tells whether an email belongs to a known customer.
type Directory interface {
	HasCustomer(ctx context.Context, email string) (bool, error)
}

type TransferInput struct {
	FromEmail   string
	ToEmail     string
	Amount      decimal.Decimal
	Description string
}

type GrantInput struct {
	Email       string
	Amount      decimal.Decimal
	Description string
	// Reference makes the grant idempotent when set.
	Reference string
}

type GrantResult struct {
	Transaction *models.CreditTransaction
	Duplicate   bool
}

type RedeemResult struct {
	Product          Product
	License          *models.License
	Reference        string
	RemainingBalance decimal.Decimal
}

type Service struct {
	repo     Repository
	licenses LicenseIssuer
	dir      Directory
	now      func() time.Time
}

func NewService(repo Repository, licenses LicenseIssuer, dir Directory) *Service {
	return &Service{repo: repo, licenses: licenses, dir: dir, now: time.Now}
}

// NewServiceFromDB wires the service to a license service on the same database.
func NewServiceFromDB(db *gorm.DB) *Service {
	lic := license.NewServiceFromDB(db)
	return NewService(NewRepository(db), lic, lic)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Balance returns the account of email; holders without one get a zero account.
func (s *Service) Balance(ctx context.Context, email string) (*models.CreditAccount, error) {
	email = normalizeEmail(email)
	a, err := s.repo.FindAccount(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load credit balance")
	}
	if a == nil {
		a = &models.CreditAccount{Email: email}
	}
	return a, nil
}

// History returns the latest transactions sent or received by email.
func (s *Service) History(ctx context.Context, email string) ([]models.CreditTransaction, error) {
	txs, err := s.repo.ListTransactions(ctx, normalizeEmail(email), HistoryLimit)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load credit history")
	}
	return txs, nil
}

// Transfer moves credits between two holders. The sender's lifetime spent and
// the recipient's lifetime earned grow by the amount.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*models.CreditTransaction, error) {
	from := normalizeEmail(in.FromEmail)
	to := normalizeEmail(in.ToEmail)
	amount := in.Amount.Round(2)
	if to == "" || !amount.IsPositive() || validate.Var(to, "email,max=200") != nil {
		return nil, apperr.InvalidInput("Invalid transfer request")
	}
	if to == from {
		return nil, apperr.InvalidInput("Cannot transfer to yourself")
	}
	known, err := s.dir.HasCustomer(ctx, to)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to look up recipient")
	}
	if !known {
		return nil, apperr.NotFound("Recipient not found")
	}
	note := strings.TrimSpace(in.Description)
	if note == "" {
		note = defaultTransferNote
	}

	var out *models.CreditTransaction
	err = s.repo.WithinTransaction(ctx, func(repo Repository) error {
		// accounts are locked in email order
		first, second := from, to
		if second < first {
			first, second = second, first
		}
		locked := map[string]*models.CreditAccount{}
		for _, email := range []string{first, second} {
			a, err := repo.LockAccount(ctx, email)
			if err != nil {
				return apperr.Internal(err, "Failed to load credit account")
			}
			locked[email] = a
		}

		sender, recipient := locked[from], locked[to]
		if sender.Balance.LessThan(amount) {
			return apperr.Insufficient("Insufficient balance")
		}
		sender.Balance = sender.Balance.Sub(amount)
		sender.LifetimeSpent = sender.LifetimeSpent.Add(amount)
		recipient.Balance = recipient.Balance.Add(amount)
		recipient.LifetimeEarned = recipient.LifetimeEarned.Add(amount)
		for _, a := range []*models.CreditAccount{sender, recipient} {
			if err := repo.SaveBalances(ctx, a); err != nil {
				return apperr.Internal(err, "Failed to update credit balance")
			}
		}

		t := &models.CreditTransaction{
			FromEmail:   from,
			ToEmail:     to,
			Amount:      amount,
			Type:        models.CreditTxTransfer,
			Description: truncate(note, 255),
		}
		if _, err := repo.CreateTransaction(ctx, t); err != nil {
			return apperr.Internal(err, "Failed to record transfer")
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Credits] %s transferred %s AGC to %s", from, amount.StringFixed(2), to)
	return out, nil
}

// Grant credits a holder. Repeating a grant with the same reference is a no-op.
func (s *Service) Grant(ctx context.Context, in GrantInput) (*GrantResult, error) {
	email := normalizeEmail(in.Email)
	amount := in.Amount.Round(2)
	if validate.Var(email, "required,email,max=200") != nil {
		return nil, apperr.InvalidInput("Valid email is required")
	}
	if !amount.IsPositive() {
		return nil, apperr.InvalidInput("Amount must be positive")
	}

	t := &models.CreditTransaction{
		ToEmail:     email,
		Amount:      amount,
		Type:        models.CreditTxGrant,
		Description: truncate(strings.TrimSpace(in.Description), 255),
	}
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		t.ReferenceID = &ref
	}

	res := &GrantResult{}
	err := s.repo.WithinTransaction(ctx, func(repo Repository) error {
		created, err := repo.CreateTransaction(ctx, t)
		if err != nil {
			return apperr.Internal(err, "Failed to record grant")
		}
		if !created {
			stored, err := repo.FindTransactionByReference(ctx, *t.ReferenceID)
			if err != nil {
				return apperr.Internal(err, "Failed to load grant")
			}
			res.Transaction, res.Duplicate = stored, true
			return nil
		}
		if err := credit(ctx, repo, email, amount); err != nil {
			return err
		}
		res.Transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.Duplicate {
		log.Infof("[Credits] Granted %s AGC to %s", amount.StringFixed(2), email)
	}
	return res, nil
}

// Redeem spends credits on a product and issues the matching license. When
// issuing fails the credits are returned.
func (s *Service) Redeem(ctx context.Context, email, productID string) (*RedeemResult, error) {
	email = normalizeEmail(email)
	product, ok := LookupProduct(strings.TrimSpace(productID))
	if !ok {
		return nil, apperr.InvalidInput("Invalid product")
	}
	ref := "agc_purchase_" + uuid.NewString()

	var remaining decimal.Decimal
	err := s.repo.WithinTransaction(ctx, func(repo Repository) error {
		a, err := repo.LockAccount(ctx, email)
		if err != nil {
			return apperr.Internal(err, "Failed to load credit account")
		}
		if a.Balance.LessThan(product.Price) {
			return apperr.Insufficient("Insufficient balance")
		}
		a.Balance = a.Balance.Sub(product.Price)
		a.LifetimeSpent = a.LifetimeSpent.Add(product.Price)
		if err := repo.SaveBalances(ctx, a); err != nil {
			return apperr.Internal(err, "Failed to update credit balance")
		}
		if _, err := repo.CreateTransaction(ctx, &models.CreditTransaction{
			FromEmail:   email,
			Amount:      product.Price,
			Type:        models.CreditTxPurchase,
			Description: "Purchase: " + product.ID,
			ReferenceID: &ref,
		}); err != nil {
			return apperr.Internal(err, "Failed to record purchase")
		}
		remaining = a.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	expires := s.now().UTC().Add(product.Term).Truncate(time.Second)
	issued, err := s.licenses.Issue(ctx, license.IssueInput{
		Email:     email,
		Plan:      string(product.Plan),
		Provider:  ProviderCredits,
		OrderID:   ref,
		ExpiresAt: &expires,
	})
	if err != nil {
		log.Errorf("[Credits] License for %s failed, returning %s AGC to %s: %v", ref, product.Price.StringFixed(2), email, err)
		if rerr := s.refund(ctx, email, product.Price, ref); rerr != nil {
			log.Errorf("[Credits] Refund of %s failed: %v", ref, rerr)
		}
		return nil, apperr.Internal(err, "Purchase failed")
	}

	log.Infof("[Credits] %s redeemed %s for %s AGC", email, product.ID, product.Price.StringFixed(2))
	return &RedeemResult{Product: product, License: issued.License, Reference: ref, RemainingBalance: remaining}, nil
}

func (s *Service) refund(ctx context.Context, email string, amount decimal.Decimal, ref string) error {
	refundRef := ref + "_refund"
	return s.repo.WithinTransaction(ctx, func(repo Repository) error {
		created, err := repo.CreateTransaction(ctx, &models.CreditTransaction{
			ToEmail:     email,
			Amount:      amount,
			Type:        models.CreditTxRefund,
			Description: "Refund: " + ref,
			ReferenceID: &refundRef,
		})
		if err != nil || !created {
			return err
		}
		a, err := repo.LockAccount(ctx, email)
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Add(amount)
		a.LifetimeSpent = a.LifetimeSpent.Sub(amount)
		return repo.SaveBalances(ctx, a)
	})
}

// credit adds earned credits to an account.
func credit(ctx context.Context, repo Repository, email string, amount decimal.Decimal) error {
	a, err := repo.LockAccount(ctx, email)
	if err != nil {
		return apperr.Internal(err, "Failed to load credit account")
	}
	a.Balance = a.Balance.Add(amount)
	a.LifetimeEarned = a.LifetimeEarned.Add(amount)
	if err := repo.SaveBalances(ctx, a); err != nil {
		return apperr.Internal(err, "Failed to update credit balance")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
