package files

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()

	p, err := Resolve(root, "res/values/colors.xml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "res", "values", "colors.xml"), p)

	for _, bad := range []string{"", "../x", "res/../../x", "/etc/passwd"} {
		_, err := Resolve(root, bad)
		assert.True(t, errors.Is(err, ErrEscapesRoot), bad)
	}
}

func TestWriteAtomic_PreservesMode(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "a.xml")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o600))

	require.NoError(t, WriteAtomic(dest, []byte("new")))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBatch_SkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	batch := NewBatch()
	_, err := batch.Current(a)
	require.NoError(t, err)
	_, err = batch.Current(b)
	require.NoError(t, err)
	batch.Set(a, []byte("a"))
	batch.Set(b, []byte("B"))

	changed, err := batch.Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{b}, changed)
}

func TestBatch_RollsBackOnFailure(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}

	root := t.TempDir()
	okDir := filepath.Join(root, "a")
	lockedDir := filepath.Join(root, "b")
	require.NoError(t, os.MkdirAll(okDir, 0o755))
	require.NoError(t, os.MkdirAll(lockedDir, 0o755))

	first := filepath.Join(okDir, "f")
	second := filepath.Join(lockedDir, "f")
	require.NoError(t, os.WriteFile(first, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("two"), 0o644))

	batch := NewBatch()
	_, err := batch.Current(first)
	require.NoError(t, err)
	_, err = batch.Current(second)
	require.NoError(t, err)
	batch.Set(first, []byte("ONE"))
	batch.Set(second, []byte("TWO"))

	require.NoError(t, os.Chmod(lockedDir, 0o555))
	defer os.Chmod(lockedDir, 0o755)

	_, err = batch.Commit()
	require.Error(t, err)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestCurrent_MissingFileIsTreeError(t *testing.T) {
	_, err := NewBatch().Current(filepath.Join(t.TempDir(), "nope"))
	var te *TreeError
	assert.True(t, errors.As(err, &te))
}

func TestWellFormed(t *testing.T) {
	assert.True(t, WellFormed([]byte(`<a><b/></a>`)))
	assert.False(t, WellFormed([]byte(`<a><b></a>`)))
	assert.False(t, WellFormed([]byte(``)))
}

func TestBatch_ReportsFailedRollback(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "a")
	second := filepath.Join(root, "b")
	require.NoError(t, os.WriteFile(first, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("two"), 0o644))

	batch := NewBatch()
	_, err := batch.Current(first)
	require.NoError(t, err)
	_, err = batch.Current(second)
	require.NoError(t, err)
	batch.Set(first, []byte("ONE"))
	batch.Set(second, []byte("TWO"))

	diskFull := errors.New("no space left on device")
	writeFile = func(path string, data []byte) error {
		if path == second || string(data) == "one" {
			return diskFull
		}
		return WriteAtomic(path, data)
	}
	defer func() { writeFile = WriteAtomic }()

	_, err = batch.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.Contains(t, err.Error(), "commit "+second)
	assert.Contains(t, err.Error(), "rollback "+first)
}

func TestIsBinaryXML(t *testing.T) {
	assert.True(t, IsBinaryXML([]byte{0x03, 0x00, 0x08, 0x00, 0xff}))
	assert.False(t, IsBinaryXML([]byte(`<?xml version="1.0"?><a/>`)))
	assert.False(t, IsBinaryXML([]byte{0x03, 0x00}))

	_, err := ParseXML("layout.xml", []byte{0x03, 0x00, 0x08, 0x00})
	assert.ErrorIs(t, err, ErrCompiledXML)
}
