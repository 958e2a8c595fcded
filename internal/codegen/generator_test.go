package codegen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	text  string
	err   error
	calls int
	last  Request
}

func (s *stubBackend) Complete(_ context.Context, req Request) (string, error) {
	s.calls++
	s.last = req
	return s.text, s.err
}

func fixedGenerator(b Backend) *Generator {
	g := NewGenerator(b)
	g.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestClassify_FirstMatchWins(t *testing.T) {
	tests := map[string]string{
		"a blue button on the main screen": CategoryButton,
		"Dark THEME with a big icon":       CategoryColor,
		"app icon in the layout":           CategoryIcon,
		"grid layout for settings screen":  CategoryLayout,
		"a login screen":                   CategoryActivity,
		"new Activity for checkout":        CategoryActivity,
		"parse some json":                  CategoryGeneric,
	}
	for prompt, want := range tests {
		assert.Equal(t, want, Classify(prompt), prompt)
	}
}

func TestGenerate_LiveBackend(t *testing.T) {
	backend := &stubBackend{text: "<Button android:id=\"@+id/ok\"/>"}
	g := fixedGenerator(backend)

	att := []Attachment{{Name: "mock.png", Data: []byte{1}}}
	gen, err := g.Generate(context.Background(), "  a button  ", att)
	require.NoError(t, err)

	assert.Equal(t, SourceLive, gen.Source)
	assert.Equal(t, "a button", gen.Prompt)
	assert.NotEmpty(t, gen.ID)
	assert.True(t, strings.HasPrefix(gen.Code, "# AI Generated Android Code\n# Generated at: 2025-03-01T12:00:00Z\n# Prompt: a button\n"))
	assert.Contains(t, gen.Code, `<Button android:id="@+id/ok"/>`)
	assert.Equal(t, att, backend.last.Attachments)
}

func TestGenerate_FallsBackOnBackendError(t *testing.T) {
	backend := &stubBackend{err: errors.New("timeout")}
	gen, err := fixedGenerator(backend).Generate(context.Background(), "make a settings layout", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, SourceFallback, gen.Source)
	assert.Equal(t, CategoryLayout, gen.Category)
	assert.True(t, strings.HasPrefix(gen.Code, "# Generated Android Code (Fallback Mode)"))
	assert.Contains(t, gen.Code, "# Original request: make a settings layout")
	assert.Contains(t, gen.Code, "No live code generation took place")
	assert.Contains(t, gen.Code, "activity_generated.xml")
}

func TestGenerate_FallsBackOnEmptyText(t *testing.T) {
	gen, err := fixedGenerator(&stubBackend{text: "  \n"}).Generate(context.Background(), "icon", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, gen.Source)
	assert.Equal(t, CategoryIcon, gen.Category)
}

func TestGenerate_NoBackend(t *testing.T) {
	gen, err := fixedGenerator(nil).Generate(context.Background(), "do something useful", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, gen.Source)
	assert.Equal(t, CategoryGeneric, gen.Category)
	assert.Contains(t, gen.Code, "GeneratedHelper")
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	_, err := fixedGenerator(nil).Generate(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestEveryCategoryHasTemplate(t *testing.T) {
	for _, c := range classifier {
		body, err := templateBody(c.category)
		require.NoError(t, err)
		assert.NotEmpty(t, body)
	}
	_, err := templateBody(CategoryGeneric)
	require.NoError(t, err)
}
