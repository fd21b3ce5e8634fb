package reports

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bissquit/incident-forge/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders incident reports from the embedded template.
type Renderer struct {
	template *template.Template
}

// NewRenderer creates a new renderer and parses the report template.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":         titleCase,
		"upper":         strings.ToUpper,
		"formatTime":    formatTime,
		"formatTimePtr": formatTimePtr,
		"join":          strings.Join,
	}

	content, err := templatesFS.ReadFile("templates/incident_report.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read report template: %w", err)
	}

	tmpl, err := template.New("incident_report").Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}

	return &Renderer{template: tmpl}, nil
}

// reportPayload is the data handed to the report template.
type reportPayload struct {
	Incident       *domain.Incident
	Investigations []*domain.ForensicInvestigation
	GeneratedAt    time.Time
}

// Render produces the plain-text report for an incident.
func (r *Renderer) Render(incident *domain.Incident, investigations []*domain.ForensicInvestigation) (string, error) {
	payload := reportPayload{
		Incident:       incident,
		Investigations: investigations,
		GeneratedAt:    time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := r.template.Execute(&buf, payload); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}

	return strings.TrimSpace(buf.String()) + "\n", nil
}

// Template functions

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
