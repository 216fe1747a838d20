package controllers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/mail"
)

// DueEmailProcessor sends the queued emails that are due.
type DueEmailProcessor interface {
	ProcessDue(ctx context.Context) (*mail.ProcessResult, error)
}

type EmailController struct {
	sender mail.TemplateSender
	queue  DueEmailProcessor
}

func NewEmailController(sender mail.TemplateSender, queue DueEmailProcessor) *EmailController {
	return &EmailController{sender: sender, queue: queue}
}

type sendEmailRequest struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// HandleSendEmail sends one transactional email immediately. Admin only.
func (ec *EmailController) HandleSendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid request body"))
	}
	if strings.TrimSpace(req.To) == "" || req.Template == "" {
		return respondError(c, apperr.InvalidInput("Missing required fields: to, template"))
	}
	if err := validate.Var(req.To, "email"); err != nil {
		return respondError(c, apperr.InvalidInput("Invalid recipient"))
	}
	if _, ok := mail.Subject(req.Template); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":     fmt.Sprintf("Invalid template. Available: %s", strings.Join(mail.Templates(), ", ")),
			"templates": mail.Templates(),
		})
	}

	id, err := ec.sender.Send(c.UserContext(), req.To, req.Template, req.Data)
	if err != nil {
		return respondError(c, apperr.Internal(err, "Failed to send email"))
	}
	return c.JSON(fiber.Map{"success": true, "id": id})
}

// HandleProcessEmails drains the due part of the email queue. Called by cron.
func (ec *EmailController) HandleProcessEmails(c *fiber.Ctx) error {
	res, err := ec.queue.ProcessDue(c.UserContext())
	if err != nil {
		return respondError(c, apperr.Internal(err, "Failed to process email queue"))
	}
	log.Infof("[Email] Cron processed %d queued emails (%d sent, %d failed)", res.Processed, res.Sent, res.Failed)
	return c.JSON(res)
}
