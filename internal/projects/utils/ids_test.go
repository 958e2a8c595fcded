package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextID(t *testing.T) {
	id, err := NewTextID("apk")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^apk-\d{5}-\d{4}$`), id)
	assert.True(t, ValidID(id))
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"apk-12345-6789", "my_project", "3f2a"} {
		assert.True(t, ValidID(id), id)
	}
	for _, id := range []string{"", ".", "..", "a/b", `a\b`, "c:", "with space", "tab\t"} {
		assert.False(t, ValidID(id), id)
	}
}
