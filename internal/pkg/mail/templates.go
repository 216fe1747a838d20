package mail

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sort"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	TemplateWelcome         = "welcome"
	TemplateOnboardingDay1  = "onboarding_day1"
	TemplateOnboardingDay3  = "onboarding_day3"
	TemplateOnboardingDay7  = "onboarding_day7"
	TemplateLicenseKey      = "license_key"
	TemplatePayoutRequested = "payout_requested"
)

var subjects = map[string]string{
	TemplateWelcome:         "Welcome to AgencyOS - Your License Inside!",
	TemplateOnboardingDay1:  "Your first AgencyOS command",
	TemplateOnboardingDay3:  "5 commands that save 10+ hours/week",
	TemplateOnboardingDay7:  "Earn 40% referring agencies",
	TemplateLicenseKey:      "Your AgencyOS license key",
	TemplatePayoutRequested: "We received your payout request",
}

// Subject returns the subject line of a template and whether it exists.
func Subject(template string) (string, bool) {
	s, ok := subjects[template]
	return s, ok
}

// Templates lists the template names in sorted order.
func Templates() []string {
	names := make([]string, 0, len(subjects))
	for name := range subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Renderer renders the embedded HTML templates.
type Renderer struct {
	engine *html.Engine
}

func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	return &Renderer{engine: engine}, nil
}

// Render returns the subject and HTML body of a template.
func (r *Renderer) Render(template string, data map[string]any) (string, string, error) {
	subject, ok := Subject(template)
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", template)
	}
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, template, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", template, err)
	}
	return subject, buf.String(), nil
}
