package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Role Request]
User: {{.UserName}} ({{.Subject}})
Requested Role: {{.Role}}
Requested At: {{.RequestedAt}}
Request ID: {{.RequestID}}
{{ if .ReviewURL }}
Review: {{.ReviewURL}}
{{ end }}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	RequestID   string
	Subject     string
	UserName    string
	Role        string
	RequestedAt string
	ReviewURL   string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("role-request-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("notify template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
