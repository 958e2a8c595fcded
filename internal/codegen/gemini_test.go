package codegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGemini(context.Background(), GeminiOptions{
		BaseURL:         srv.URL,
		Model:           "gemini-test",
		APIKey:          "k-123",
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 2048,
	})
	require.NoError(t, err)
	return c
}

func TestGeminiClient_Complete(t *testing.T) {
	var got geminiRequest
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"public class A {}"}]}}]}`))
	})

	text, err := c.Complete(context.Background(), Request{
		Prompt:      "a class",
		Attachments: []Attachment{{Name: "a.png", MimeType: "image/png", Data: []byte("img")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "public class A {}", text)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Contains(t, got.Contents[0].Parts[0].Text, "You are an expert Android developer")
	assert.Contains(t, got.Contents[0].Parts[0].Text, "User Request: a class")
	assert.Equal(t, "image/png", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, "aW1n", got.Contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, 40, got.GenerationConfig.TopK)
	assert.Equal(t, 2048, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiClient_ErrorStatus(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGeminiClient_NoCandidates(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	text, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGenerator_FallsBackOnHTTP500(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	gen, err := NewGenerator(c).Generate(context.Background(), "primary color theme", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, gen.Source)
	assert.Equal(t, CategoryColor, gen.Category)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiOptions{BaseURL: "http://localhost"})
	assert.ErrorIs(t, err, ErrBackendNotAvailable)
}
