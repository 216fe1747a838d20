// Package export renders affiliate conversions and payouts as XLSX workbooks
// and optionally archives them to S3.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/s3archive"
)

type Kind string

const (
	KindConversions Kind = "conversions"
	KindPayouts     Kind = "payouts"

	timeLayout = "2006-01-02 15:04:05"
)

func ParseKind(raw string) (Kind, bool) {
	switch Kind(raw) {
	case KindConversions, KindPayouts:
		return Kind(raw), true
	}
	return "", false
}

// Archiver stores a finished workbook.
type Archiver interface {
	Upload(ctx context.Context, objectKey string, data []byte, contentType string) (*s3archive.UploadResult, error)
}

type Result struct {
	Kind      Kind
	Filename  string
	Data      []byte
	Rows      int
	ObjectKey string
}

type Service struct {
	db      *gorm.DB
	archive Archiver
	now     func() time.Time
}

// NewService creates an exporter. archive may be nil.
func NewService(db *gorm.DB, archive Archiver) *Service {
	return &Service{db: db, archive: archive, now: time.Now}
}

// Export builds the workbook for kind, optionally limited to one affiliate.
// Archive failures are logged; the workbook is still returned.
func (s *Service) Export(ctx context.Context, kind Kind, affiliateID string) (*Result, error) {
	var (
		f    *excelize.File
		rows int
		err  error
	)
	switch kind {
	case KindConversions:
		f, rows, err = s.conversionsWorkbook(ctx, affiliateID)
	case KindPayouts:
		f, rows, err = s.payoutsWorkbook(ctx, affiliateID)
	default:
		return nil, apperr.InvalidInput("Unknown export kind")
	}
	if err != nil {
		return nil, apperr.Internal(err, "Failed to build export")
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperr.Internal(err, "Failed to build export")
	}

	now := s.now()
	res := &Result{
		Kind:     kind,
		Filename: fmt.Sprintf("%s_%s.xlsx", kind, now.UTC().Format("20060102_150405")),
		Data:     buf.Bytes(),
		Rows:     rows,
	}

	if s.archive != nil {
		key := s3archive.ObjectKey(string(kind), now)
		if _, err := s.archive.Upload(ctx, key, res.Data, s3archive.ContentTypeXLSX); err != nil {
			log.Errorf("[Export] Archiving %s failed: %v", key, err)
		} else {
			res.ObjectKey = key
		}
	}
	log.Infof("[Export] Built %s export with %d rows", kind, rows)
	return res, nil
}

func (s *Service) conversionsWorkbook(ctx context.Context, affiliateID string) (*excelize.File, int, error) {
	var list []models.AffiliateConversion
	q := s.db.WithContext(ctx).Order("created_at ASC")
	if affiliateID != "" {
		q = q.Where("affiliate_id = ?", affiliateID)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}

	headers := []string{"Order ID", "Affiliate ID", "Product", "Price", "Rate", "Commission", "Status", "Recurring", "Customer", "Provider", "Payout ID", "Created At"}
	f, sheet, err := newWorkbook("Conversions", headers)
	if err != nil {
		return nil, 0, err
	}
	for i, c := range list {
		payoutID := ""
		if c.PayoutID != nil {
			payoutID = *c.PayoutID
		}
		row := []interface{}{
			c.OrderID,
			c.AffiliateID,
			c.ProductName,
			c.ProductPrice.InexactFloat64(),
			c.CommissionRate.InexactFloat64(),
			c.CommissionAmount.InexactFloat64(),
			c.Status,
			c.IsRecurring,
			c.CustomerEmail,
			c.Provider,
			payoutID,
			c.CreatedAt.UTC().Format(timeLayout),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			f.Close()
			return nil, 0, err
		}
	}
	return f, len(list), nil
}

func (s *Service) payoutsWorkbook(ctx context.Context, affiliateID string) (*excelize.File, int, error) {
	var list []models.AffiliatePayout
	q := s.db.WithContext(ctx).Order("created_at ASC")
	if affiliateID != "" {
		q = q.Where("affiliate_id = ?", affiliateID)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}

	headers := []string{"Payout ID", "Affiliate ID", "Amount", "Paid Amount", "Method", "Payment Email", "Status", "Note", "Created At", "Settled At"}
	f, sheet, err := newWorkbook("Payouts", headers)
	if err != nil {
		return nil, 0, err
	}
	for i, p := range list {
		settled := ""
		if p.SettledAt != nil {
			settled = p.SettledAt.UTC().Format(timeLayout)
		}
		row := []interface{}{
			p.ID,
			p.AffiliateID,
			p.Amount.InexactFloat64(),
			p.PaidAmount.InexactFloat64(),
			p.Method,
			p.PaymentEmail,
			p.Status,
			p.Note,
			p.CreatedAt.UTC().Format(timeLayout),
			settled,
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			f.Close()
			return nil, 0, err
		}
	}
	return f, len(list), nil
}

func newWorkbook(sheet string, headers []string) (*excelize.File, string, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, "", err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			f.Close()
			return nil, "", err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}
	return f, sheet, nil
}

func setRow(f *excelize.File, sheet string, rowIndex int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIndex)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
