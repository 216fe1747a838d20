package mail

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// SendFunc delivers a rendered email and returns its Message-ID.
type SendFunc func(to, subject, body string) (string, error)

// TemplateSender sends one of the embedded templates.
type TemplateSender interface {
	Send(ctx context.Context, to, template string, data map[string]any) (string, error)
}

// Mailer renders templates and hands them to a SendFunc.
type Mailer struct {
	renderer *Renderer
	send     SendFunc
}

func NewMailer(send SendFunc) (*Mailer, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Mailer{renderer: r, send: send}, nil
}

func (m *Mailer) Send(ctx context.Context, to, template string, data map[string]any) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", fmt.Errorf("missing recipient")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject, body, err := m.renderer.Render(template, data)
	if err != nil {
		return "", err
	}
	return m.send(to, subject, body)
}

var (
	defaultMu     sync.Mutex
	defaultMailer TemplateSender
)

// Default returns the process-wide SMTP mailer.
func Default() TemplateSender {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMailer == nil {
		m, err := NewMailer(SendMail)
		if err != nil {
			// templates are embedded; only a broken build gets here
			panic(err)
		}
		defaultMailer = m
	}
	return defaultMailer
}

// SetDefault replaces the process-wide mailer. Used by tests.
func SetDefault(s TemplateSender) {
	defaultMu.Lock()
	defaultMailer = s
	defaultMu.Unlock()
}
