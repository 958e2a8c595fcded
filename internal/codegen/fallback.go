package codegen

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var headers = template.Must(template.ParseFS(templateFS, "templates/header_*.tmpl"))

// Category names for the local template classifier.
const (
	CategoryButton   = "button"
	CategoryColor    = "color"
	CategoryIcon     = "icon"
	CategoryLayout   = "layout"
	CategoryActivity = "activity"
	CategoryGeneric  = "generic"
	CategoryLive     = "live"
)

// classifier is checked top to bottom and the first category whose keyword
// appears in the prompt wins.
var classifier = []struct {
	category string
	keywords []string
}{
	{category: CategoryButton, keywords: []string{"button"}},
	{category: CategoryColor, keywords: []string{"color", "theme"}},
	{category: CategoryIcon, keywords: []string{"icon"}},
	{category: CategoryLayout, keywords: []string{"layout"}},
	{category: CategoryActivity, keywords: []string{"activity", "screen"}},
}

// Classify returns the fallback template category for a prompt.
func Classify(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, c := range classifier {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return CategoryGeneric
}

func templateBody(category string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + category + ".tmpl")
	if err != nil {
		return "", fmt.Errorf("template %s: %w", category, err)
	}
	return string(data), nil
}

type headerData struct {
	GeneratedAt string
	Prompt      string
	Reason      string
}

func renderHeader(name string, data headerData) (string, error) {
	var buf bytes.Buffer
	if err := headers.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// fallbackCode renders the local template for prompt.
func fallbackCode(prompt, generatedAt, reason string) (string, string, error) {
	category := Classify(prompt)
	body, err := templateBody(category)
	if err != nil {
		return "", "", err
	}
	header, err := renderHeader("header_fallback.tmpl", headerData{
		GeneratedAt: generatedAt,
		Prompt:      prompt,
		Reason:      reason,
	})
	if err != nil {
		return "", "", err
	}
	return header + body, category, nil
}
