package tree

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/files"
)

func put(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	put(t, root, "AndroidManifest.xml", `<manifest package="com.example"/>`)
	put(t, root, files.StringsFile, `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">Remote</string>
    <string name="greeting">Hello</string>
</resources>
`)
	put(t, root, files.ColorsFile, `<resources><color name="primary">#000000</color></resources>`)
	put(t, root, "res/layout/activity_main.xml", `<LinearLayout/>`)
	put(t, root, "res/layout-land/activity_main.xml", `<LinearLayout/>`)
	put(t, root, "res/drawable/logo.png", "png")
	put(t, root, "res/mipmap-hdpi/ic_launcher.webp", "webp")
	put(t, root, "res/raw/sound.ogg", "ogg")
	return root
}

func TestList(t *testing.T) {
	root := fixture(t)

	inv, err := List(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"res/drawable/logo.png", "res/mipmap-hdpi/ic_launcher.webp"}, inv.Images)
	assert.Equal(t, []string{"res/layout-land/activity_main.xml", "res/layout/activity_main.xml"}, inv.Layouts)
	assert.Equal(t, []string{files.ColorsFile, files.StringsFile}, inv.Values)
	assert.Equal(t, []StringEntry{{Name: "app_name", Value: "Remote"}, {Name: "greeting", Value: "Hello"}}, inv.Strings)
}

func TestList_MissingRoot(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "missing"))
	var te *files.TreeError
	assert.True(t, errors.As(err, &te))
}

func TestSaveString(t *testing.T) {
	root := fixture(t)

	require.NoError(t, SaveString(root, "greeting", "Welcome back"))
	got, err := ReadString(root, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "Welcome back", got)

	other, err := ReadString(root, "app_name")
	require.NoError(t, err)
	assert.Equal(t, "Remote", other)

	err = SaveString(root, "farewell", "Bye")
	assert.True(t, errors.Is(err, ErrResourceNotFound))
}

func TestSaveImage(t *testing.T) {
	root := fixture(t)

	require.NoError(t, SaveImage(root, "res/drawable/logo.png", []byte("new")))
	data, err := ReadImage(root, "res/drawable/logo.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)

	assert.True(t, errors.Is(SaveImage(root, "res/drawable/other.png", []byte("x")), ErrResourceNotFound))
	assert.True(t, errors.Is(SaveImage(root, "res/drawable/logo.png", nil), ErrInvalidContent))
	assert.True(t, errors.Is(SaveImage(root, "res/raw/sound.ogg", []byte("x")), ErrInvalidPath))
	assert.True(t, errors.Is(SaveImage(root, "res/drawable/../../../etc/x.png", []byte("x")), ErrInvalidPath))
}

func TestSaveLayout(t *testing.T) {
	root := fixture(t)

	require.NoError(t, SaveLayout(root, "activity_main.xml", []byte(`<FrameLayout/>`)))
	got, err := ReadLayout(root, "res/layout/activity_main.xml")
	require.NoError(t, err)
	assert.Equal(t, `<FrameLayout/>`, got)

	err = SaveLayout(root, "activity_main.xml", []byte(`<FrameLayout>`))
	assert.True(t, errors.Is(err, ErrInvalidContent))

	got, err = ReadLayout(root, "activity_main.xml")
	require.NoError(t, err)
	assert.Equal(t, `<FrameLayout/>`, got)
}

func TestPreview(t *testing.T) {
	root := fixture(t)

	p, err := PreviewLayout(root, "activity_main.xml", `<Broken`)
	require.NoError(t, err)
	assert.Equal(t, "<LinearLayout/>", p.Original)
	require.NotNil(t, p.ValidXML)
	assert.False(t, *p.ValidXML)

	p, err = PreviewLayout(root, "activity_main.xml", "")
	require.NoError(t, err)
	assert.True(t, *p.ValidXML)
	assert.Equal(t, p.Original, p.Content)

	s, err := PreviewString(root, "greeting", "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello", s.Original)
	assert.Equal(t, "Hi", s.Content)
	assert.Nil(t, s.ValidXML)
}

func TestCompiledResourcesAreRejected(t *testing.T) {
	root := fixture(t)
	compiled := string([]byte{0x03, 0x00, 0x08, 0x00, 0x10, 0x00, 0x00, 0x00})
	put(t, root, "res/layout/compiled.xml", compiled)
	put(t, root, files.StringsFile, compiled)

	_, err := ReadLayout(root, "compiled.xml")
	assert.ErrorIs(t, err, files.ErrCompiledXML)

	_, err = PreviewLayout(root, "compiled.xml", "<FrameLayout/>")
	assert.ErrorIs(t, err, files.ErrCompiledXML)

	err = SaveLayout(root, "compiled.xml", []byte(`<FrameLayout/>`))
	assert.ErrorIs(t, err, files.ErrCompiledXML)
	data, err := os.ReadFile(filepath.Join(root, "res", "layout", "compiled.xml"))
	require.NoError(t, err)
	assert.Equal(t, compiled, string(data))

	_, err = ReadString(root, "app_name")
	assert.ErrorIs(t, err, files.ErrCompiledXML)

	inv, err := List(root)
	require.NoError(t, err)
	assert.Empty(t, inv.Strings)
	assert.Contains(t, inv.Layouts, "res/layout/compiled.xml")
}
