// Package prompt renders stage prompts and decodes the JSON the model sends
// back. Internal to avoid committing to public API stability prematurely.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"bullets": func(items []string) string {
		if len(items) == 0 {
			return "- (none)"
		}
		var b strings.Builder
		for i, it := range items {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(it)
		}
		return b.String()
	},
}

// Template is a parsed prompt.
type Template struct {
	name string
	tmpl *template.Template
}

// New parses text and panics on syntax errors; templates are package-level
// constants so a failure is a programming error.
func New(name, text string) *Template {
	return &Template{
		name: name,
		tmpl: template.Must(template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)),
	}
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Render replaces template variables in text. Text without markers is
// returned unchanged.
func Render(text string, data any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("prompt").Funcs(funcs).Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
