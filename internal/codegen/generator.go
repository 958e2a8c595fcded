// Package codegen produces Android source snippets from free-text prompts,
// using a live text-generation backend when one is configured and a local
// template otherwise.
package codegen

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
)

var (
	ErrEmptyPrompt         = errors.New("prompt is required")
	ErrGenerationNotFound  = errors.New("generation not found")
	ErrBackendNotAvailable = errors.New("no text-generation backend configured")
)

// Source says which path produced a generation.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Attachment is a design image sent along with a prompt.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Request is what a Backend receives.
type Request struct {
	Prompt      string
	Attachments []Attachment
}

// Backend is an external text-completion service.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Generation is one generated snippet with its provenance.
type Generation struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Source    Source    `json:"source"`
	Category  string    `json:"category"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Generator tries the backend first and falls back to local templates on
// any failure. A nil backend always uses the fallback.
type Generator struct {
	backend Backend
	now     func() time.Time
}

func NewGenerator(backend Backend) *Generator {
	return &Generator{backend: backend, now: time.Now}
}

// Generate never fails because of the backend; only an empty prompt or a
// broken embedded template is an error.
func (g *Generator) Generate(ctx context.Context, prompt string, attachments []Attachment) (*Generation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	log := logging.NewLogger(ctx)
	now := g.now()
	stamp := now.Format(time.RFC3339)
	gen := &Generation{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		CreatedAt: now,
	}

	reason := ErrBackendNotAvailable.Error()
	if g.backend != nil {
		text, err := g.backend.Complete(ctx, Request{Prompt: prompt, Attachments: attachments})
		switch {
		case err != nil:
			log.LogWarnf("generate", "live generation failed, using fallback: %v", err)
			reason = "The text-generation service was unavailable."
		case strings.TrimSpace(text) == "":
			log.LogWarn("generate", "live generation returned no text, using fallback")
			reason = "The text-generation service returned no content."
		default:
			header, err := renderHeader("header_live.tmpl", headerData{GeneratedAt: stamp, Prompt: prompt})
			if err != nil {
				return nil, err
			}
			gen.Source = SourceLive
			gen.Category = CategoryLive
			gen.Code = header + text + "\n"
			return gen, nil
		}
	}

	code, category, err := fallbackCode(prompt, stamp, reason)
	if err != nil {
		return nil, err
	}
	gen.Source = SourceFallback
	gen.Category = category
	gen.Code = code
	return gen, nil
}
