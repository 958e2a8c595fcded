package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const colorsXML = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <color name="button_color">#222222</color>
</resources>
`

func runPatch(t *testing.T, args ...string) string {
	t.Helper()
	color.NoColor = true
	patchScheme, patchDryRun, patchJSON = "", false, false

	var out bytes.Buffer
	patchCmd.SetOut(&out)
	patchCmd.SetArgs(args)
	require.NoError(t, patchCmd.Execute())
	return out.String()
}

func TestPatchCommand(t *testing.T) {
	root := t.TempDir()
	colors := filepath.Join(root, "res", "values", "colors.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(colors), 0o755))
	require.NoError(t, os.WriteFile(colors, []byte(colorsXML), 0o644))

	t.Run("dry run leaves tree alone", func(t *testing.T) {
		out := runPatch(t, root, "make the button blue", "--dry-run")
		assert.Contains(t, out, "button_color = #007bff")

		data, err := os.ReadFile(colors)
		require.NoError(t, err)
		assert.Contains(t, string(data), "#222222")
	})

	t.Run("apply rewrites colors", func(t *testing.T) {
		out := runPatch(t, root, "make the button blue")
		assert.Contains(t, out, "applied 1 instruction(s)")
		assert.Contains(t, out, "res/values/colors.xml")

		data, err := os.ReadFile(colors)
		require.NoError(t, err)
		assert.Contains(t, string(data), "#007bff")
	})

	t.Run("missing root fails", func(t *testing.T) {
		patchCmd.SetArgs([]string{filepath.Join(root, "nope"), "blue button"})
		patchCmd.SetOut(&bytes.Buffer{})
		assert.Error(t, patchCmd.Execute())
	})
}
