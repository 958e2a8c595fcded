package codegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const preamble = `You are an expert Android developer. Generate Android code based on this request:

User Request: %s

Please provide:
1. XML layout code if UI elements are needed
2. Java/Kotlin code for functionality
3. Resource definitions (colors, strings, etc.) if needed
4. Brief explanation of the implementation

Focus on practical, working Android code that can be integrated into an APK.`

const generativeLanguageScope = "https://www.googleapis.com/auth/generative-language"

// GeminiOptions configures a GeminiClient.
type GeminiOptions struct {
	BaseURL           string
	Model             string
	APIKey            string
	UseADC            bool
	Timeout           time.Duration
	Temperature       float64
	TopK              int
	TopP              float64
	MaxOutputTokens   int
	RequestsPerMinute int
}

// GeminiClient calls the generateContent endpoint of the Generative
// Language API.
type GeminiClient struct {
	BaseURL string
	HTTP    *http.Client

	opts    GeminiOptions
	limiter *rate.Limiter
}

// NewGemini builds a client. With UseADC the HTTP client carries
// application-default credentials; otherwise the API key is sent as a
// query parameter.
func NewGemini(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Model == "" {
		opts.Model = "gemini-pro"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	hc := &http.Client{Timeout: opts.Timeout}
	if opts.UseADC {
		authed, err := google.DefaultClient(ctx, generativeLanguageScope)
		if err != nil {
			return nil, fmt.Errorf("gemini credentials: %w", err)
		}
		authed.Timeout = opts.Timeout
		hc = authed
	} else if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrBackendNotAvailable
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &GeminiClient{
		BaseURL: strings.TrimRight(opts.BaseURL, "/"),
		HTTP:    hc,
		opts:    opts,
		limiter: limiter,
	}, nil
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) endpoint() string {
	u := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, url.PathEscape(c.opts.Model))
	if !c.opts.UseADC {
		u += "?key=" + url.QueryEscape(c.opts.APIKey)
	}
	return u
}

// Complete implements Backend.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("gemini rate limit: %w", err)
		}
	}

	parts := []geminiPart{{Text: fmt.Sprintf(preamble, req.Prompt)}}
	for _, a := range req.Attachments {
		if len(a.Data) == 0 {
			continue
		}
		mime := a.MimeType
		if mime == "" {
			mime = http.DetectContentType(a.Data)
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(a.Data),
		}})
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.opts.Temperature,
			TopK:            c.opts.TopK,
			TopP:            c.opts.TopP,
			MaxOutputTokens: c.opts.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini encode: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
