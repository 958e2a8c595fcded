package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/files"
)

// SaveImage replaces an existing image. New images are never created.
func SaveImage(root, rel string, data []byte) error {
	if err := files.RequireDir(root); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidContent)
	}
	p, err := imagePath(root, rel)
	if err != nil {
		return err
	}
	if err := requireFile(p); err != nil {
		return err
	}
	return writeIfChanged(p, data)
}

// SaveString replaces the value of an existing <string name=name>.
func SaveString(root, name, value string) error {
	if err := files.RequireDir(root); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: string name required", ErrInvalidPath)
	}

	p := filepath.Join(root, filepath.FromSlash(files.StringsFile))
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, files.StringsFile)
		}
		return &files.TreeError{Path: p, Err: err}
	}
	doc, err := files.ParseXML(p, data)
	if err != nil {
		return err
	}
	el := files.FindNamed(doc, "string", name)
	if el == nil {
		return fmt.Errorf("%w: string %s", ErrResourceNotFound, name)
	}
	if !files.SetText(el, value) {
		return nil
	}
	out, err := files.SerializeXML(p, doc)
	if err != nil {
		return err
	}
	return writeIfChanged(p, out)
}

// SaveLayout replaces an existing layout file after checking the new XML
// is well formed.
func SaveLayout(root, rel string, content []byte) error {
	if err := files.RequireDir(root); err != nil {
		return err
	}
	if !files.WellFormed(content) {
		return fmt.Errorf("%w: layout is not well-formed XML", ErrInvalidContent)
	}
	p, err := layoutPath(root, rel)
	if err != nil {
		return err
	}
	if err := requireFile(p); err != nil {
		return err
	}
	current, err := os.ReadFile(p)
	if err != nil {
		return &files.TreeError{Path: p, Err: err}
	}
	if files.IsBinaryXML(current) {
		return fmt.Errorf("%w: %s", files.ErrCompiledXML, rel)
	}
	return writeIfChanged(p, content)
}

func writeIfChanged(p string, data []byte) error {
	current, err := os.ReadFile(p)
	if err != nil {
		return &files.TreeError{Path: p, Err: err}
	}
	if bytes.Equal(current, data) {
		return nil
	}
	if err := files.WriteAtomic(p, data); err != nil {
		return &files.TreeError{Path: p, Err: err}
	}
	return nil
}
