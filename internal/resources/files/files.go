// Package files holds the filesystem primitives shared by the resource
// engine and the direct-edit tree: confined path resolution, atomic
// replacement and batched commits with rollback.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Conventional locations inside an extracted resource tree.
const (
	ColorsFile  = "res/values/colors.xml"
	StringsFile = "res/values/strings.xml"
	LayoutDir   = "res/layout"
)

var ErrEscapesRoot = errors.New("path escapes resource root")

// TreeError reports an unreadable or missing resource tree or file.
type TreeError struct {
	Path string
	Err  error
}

func (e *TreeError) Error() string {
	return fmt.Sprintf("resource tree %s: %v", e.Path, e.Err)
}

func (e *TreeError) Unwrap() error { return e.Err }

// Resolve joins rel onto root and rejects results outside root.
func Resolve(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, rel)
	}
	cleanRoot := filepath.Clean(root)
	full := filepath.Join(cleanRoot, filepath.FromSlash(rel))
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, rel)
	}
	return full, nil
}

// RequireDir returns a TreeError unless path is an existing directory.
func RequireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &TreeError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return &TreeError{Path: path, Err: errors.New("not a directory")}
	}
	return nil
}

// WriteAtomic replaces dest with data via a temp file in the same
// directory, so readers see either the old or the new content.
func WriteAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(dest); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("atomic write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("atomic write sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("atomic write close: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("atomic write chmod: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("atomic write rename: %w", err)
	}
	return nil
}
