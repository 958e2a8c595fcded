// Package tree implements direct reads and edits of an extracted resource
// tree: listing, content lookup, previews, and single-resource saves.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/files"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidContent   = errors.New("invalid resource content")
	ErrInvalidPath      = errors.New("invalid resource path")
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}

// StringEntry is one <string> declaration.
type StringEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Inventory lists the editable resources of a tree. Paths are relative to
// the root and use forward slashes.
type Inventory struct {
	Images  []string      `json:"images"`
	Layouts []string      `json:"layouts"`
	Values  []string      `json:"values"`
	Strings []StringEntry `json:"strings"`
}

// List walks res/ and groups files by kind.
func List(root string) (*Inventory, error) {
	if err := files.RequireDir(root); err != nil {
		return nil, err
	}

	inv := &Inventory{Images: []string{}, Layouts: []string{}, Values: []string{}, Strings: []StringEntry{}}
	resDir := filepath.Join(root, "res")
	if _, err := os.Stat(resDir); errors.Is(err, fs.ErrNotExist) {
		return inv, nil
	}

	err := filepath.WalkDir(resDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		dir := path.Base(path.Dir(rel))
		ext := strings.ToLower(path.Ext(rel))

		switch {
		case imageExts[ext] && (strings.HasPrefix(dir, "drawable") || strings.HasPrefix(dir, "mipmap")):
			inv.Images = append(inv.Images, rel)
		case ext == ".xml" && strings.HasPrefix(dir, "layout"):
			inv.Layouts = append(inv.Layouts, rel)
		case ext == ".xml" && strings.HasPrefix(dir, "values"):
			inv.Values = append(inv.Values, rel)
		}
		return nil
	})
	if err != nil {
		return nil, &files.TreeError{Path: resDir, Err: err}
	}
	sort.Strings(inv.Images)
	sort.Strings(inv.Layouts)
	sort.Strings(inv.Values)

	entries, err := readStrings(root)
	if err != nil && !errors.Is(err, ErrResourceNotFound) && !errors.Is(err, files.ErrCompiledXML) {
		return nil, err
	}
	inv.Strings = append(inv.Strings, entries...)
	return inv, nil
}

func readStrings(root string) ([]StringEntry, error) {
	p := filepath.Join(root, filepath.FromSlash(files.StringsFile))
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrResourceNotFound
		}
		return nil, &files.TreeError{Path: p, Err: err}
	}
	doc, err := files.ParseXML(p, data)
	if err != nil {
		return nil, err
	}
	var out []StringEntry
	for _, el := range doc.Root().SelectElements("string") {
		out = append(out, StringEntry{Name: el.SelectAttrValue("name", ""), Value: el.Text()})
	}
	return out, nil
}

// imagePath validates rel as an image under a drawable or mipmap dir.
func imagePath(root, rel string) (string, error) {
	rel = filepath.ToSlash(strings.TrimPrefix(strings.TrimSpace(rel), "/"))
	dir := path.Base(path.Dir(rel))
	if !imageExts[strings.ToLower(path.Ext(rel))] || !(strings.HasPrefix(dir, "drawable") || strings.HasPrefix(dir, "mipmap")) {
		return "", fmt.Errorf("%w: %s is not an image resource", ErrInvalidPath, rel)
	}
	p, err := files.Resolve(root, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return p, nil
}

// layoutPath accepts "main.xml" or "res/layout*/main.xml".
func layoutPath(root, rel string) (string, error) {
	rel = filepath.ToSlash(strings.TrimPrefix(strings.TrimSpace(rel), "/"))
	if !strings.Contains(rel, "/") {
		rel = files.LayoutDir + "/" + rel
	}
	if strings.ToLower(path.Ext(rel)) != ".xml" || !strings.HasPrefix(path.Base(path.Dir(rel)), "layout") {
		return "", fmt.Errorf("%w: %s is not a layout resource", ErrInvalidPath, rel)
	}
	p, err := files.Resolve(root, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return p, nil
}

func requireFile(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, filepath.Base(p))
		}
		return &files.TreeError{Path: p, Err: err}
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, filepath.Base(p))
	}
	return nil
}

// ReadImage returns the bytes of an image resource.
func ReadImage(root, rel string) ([]byte, error) {
	p, err := imagePath(root, rel)
	if err != nil {
		return nil, err
	}
	if err := requireFile(p); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, &files.TreeError{Path: p, Err: err}
	}
	return data, nil
}

// ReadString returns the value of the named <string>.
func ReadString(root, name string) (string, error) {
	entries, err := readStrings(root)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Value, nil
		}
	}
	return "", fmt.Errorf("%w: string %s", ErrResourceNotFound, name)
}

// ReadLayout returns a layout file's XML.
func ReadLayout(root, rel string) (string, error) {
	p, err := layoutPath(root, rel)
	if err != nil {
		return "", err
	}
	if err := requireFile(p); err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", &files.TreeError{Path: p, Err: err}
	}
	if files.IsBinaryXML(data) {
		return "", fmt.Errorf("%w: %s", files.ErrCompiledXML, rel)
	}
	return string(data), nil
}
