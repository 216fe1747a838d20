package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/app/repository"
)

// BatchSize is the number of due emails handled per run.
const BatchSize = 50

// onboarding drip relative to the welcome email
var onboardingSchedule = []struct {
	template string
	after    time.Duration
}{
	{TemplateOnboardingDay1, 24 * time.Hour},
	{TemplateOnboardingDay3, 3 * 24 * time.Hour},
	{TemplateOnboardingDay7, 7 * 24 * time.Hour},
}

type ProcessResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Queue schedules emails in the email_queue table and sends the due ones.
type Queue struct {
	repo   repository.EmailQueueRepository
	sender TemplateSender
	now    func() time.Time
}

func NewQueue(repo repository.EmailQueueRepository, sender TemplateSender) *Queue {
	return &Queue{repo: repo, sender: sender, now: time.Now}
}

func NewQueueFromDB(db *gorm.DB) *Queue {
	return NewQueue(repository.NewEmailQueueRepository(db), Default())
}

func (q *Queue) Enqueue(ctx context.Context, email, template string, data map[string]any, sendAt time.Time) error {
	if _, ok := Subject(template); !ok {
		return fmt.Errorf("unknown email template %q", template)
	}
	return q.repo.Enqueue(ctx, &models.EmailQueueItem{
		Email:    email,
		Template: template,
		Data:     datatypes.JSONMap(data),
		SendAt:   sendAt.UTC(),
	})
}

// ScheduleOnboarding queues the day 1, 3 and 7 emails.
func (q *Queue) ScheduleOnboarding(ctx context.Context, email string, data map[string]any) error {
	now := q.now().UTC()
	items := make([]*models.EmailQueueItem, 0, len(onboardingSchedule))
	for _, step := range onboardingSchedule {
		items = append(items, &models.EmailQueueItem{
			Email:    email,
			Template: step.template,
			Data:     datatypes.JSONMap(data),
			SendAt:   now.Add(step.after),
		})
	}
	return q.repo.Enqueue(ctx, items...)
}

// ProcessDue sends up to BatchSize due emails. A failed send is recorded on
// the item and retried on the next run.
func (q *Queue) ProcessDue(ctx context.Context) (*ProcessResult, error) {
	now := q.now().UTC()
	items, err := q.repo.ListDue(ctx, now, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list due emails: %w", err)
	}

	res := &ProcessResult{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++
		messageID, sendErr := q.sender.Send(ctx, item.Email, item.Template, map[string]any(item.Data))
		if sendErr != nil {
			res.Failed++
			log.Warnf("[EmailQueue] Send %s to %s failed: %v", item.Template, item.Email, sendErr)
			if err := q.repo.MarkFailed(ctx, item.ID, sendErr.Error()); err != nil {
				return res, fmt.Errorf("mark email %d failed: %w", item.ID, err)
			}
			continue
		}
		if err := q.repo.MarkSent(ctx, item.ID, messageID, q.now().UTC()); err != nil {
			return res, fmt.Errorf("mark email %d sent: %w", item.ID, err)
		}
		res.Sent++
	}
	if res.Processed > 0 {
		log.Infof("[EmailQueue] Processed %d emails (%d sent, %d failed)", res.Processed, res.Sent, res.Failed)
	}
	return res, nil
}
