// Package engine applies compiled patch sets to an extracted resource tree.
//
// All edits are planned in memory first. Files are only written when their
// content changes, each through an atomic replace, and a failed commit
// restores what it already replaced.
package engine

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/files"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/patch"
)

// Result summarises one Apply call. Skipped holds instruction keys whose
// target was not found, plus compiled layout files that could not be
// edited. Changed holds the rewritten files relative to the resource root.
type Result struct {
	Applied int      `json:"applied"`
	Skipped []string `json:"skipped"`
	Changed []string `json:"changed"`
}

func (r *Result) skip(key string) {
	r.Skipped = append(r.Skipped, key)
}

// Apply runs every instruction in set against the tree at root. A missing
// root or an unreadable/unparseable target file fails the whole call with a
// *files.TreeError and nothing is written.
func Apply(root string, set *patch.Set) (*Result, error) {
	if err := files.RequireDir(root); err != nil {
		return nil, err
	}

	res := &Result{Skipped: []string{}, Changed: []string{}}
	if set == nil || set.Empty() {
		return res, nil
	}

	batch := files.NewBatch()

	if err := applyValues(root, batch, res, files.ColorsFile, "color", set.OfKind(patch.KindColor)); err != nil {
		return nil, err
	}
	if err := applyValues(root, batch, res, files.StringsFile, "string", set.OfKind(patch.KindString)); err != nil {
		return nil, err
	}
	if err := applyLayouts(root, batch, res, set.OfKind(patch.KindLayoutAttribute)); err != nil {
		return nil, err
	}
	if err := applyRaster(root, batch, res, set.OfKind(patch.KindRasterAsset)); err != nil {
		return nil, err
	}

	changed, err := batch.Commit()
	if err != nil {
		return nil, &files.TreeError{Path: root, Err: err}
	}
	for _, p := range changed {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		res.Changed = append(res.Changed, filepath.ToSlash(rel))
	}
	return res, nil
}

// applyValues replaces <tag name=key> text in a values file.
func applyValues(root string, batch *files.Batch, res *Result, rel, tag string, ins []patch.Instruction) error {
	if len(ins) == 0 {
		return nil
	}

	path := filepath.Join(root, filepath.FromSlash(rel))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			for _, in := range ins {
				res.skip(in.Key)
			}
			return nil
		}
		return &files.TreeError{Path: path, Err: err}
	}

	data, err := batch.Current(path)
	if err != nil {
		return err
	}
	if files.IsBinaryXML(data) {
		for _, in := range ins {
			res.skip(in.Key)
		}
		return nil
	}
	doc, err := files.ParseXML(path, data)
	if err != nil {
		return err
	}

	dirty := false
	for _, in := range ins {
		el := files.FindNamed(doc, tag, in.Key)
		if el == nil {
			res.skip(in.Key)
			continue
		}
		if files.SetText(el, in.Value) {
			dirty = true
		}
		res.Applied++
	}

	if !dirty {
		return nil
	}
	out, err := files.SerializeXML(path, doc)
	if err != nil {
		return err
	}
	batch.Set(path, out)
	return nil
}

func applyLayouts(root string, batch *files.Batch, res *Result, ins []patch.Instruction) error {
	if len(ins) == 0 {
		return nil
	}

	type planned struct {
		key       string
		adj       adjustment
		direction string
	}
	var valid []planned
	for _, in := range ins {
		adj, ok := adjustments[in.Key]
		if !ok {
			res.skip(in.Key)
			continue
		}
		if _, ok := adj.values[in.Value]; !ok {
			res.skip(in.Key)
			continue
		}
		valid = append(valid, planned{key: in.Key, adj: adj, direction: in.Value})
	}
	if len(valid) == 0 {
		return nil
	}

	dir := filepath.Join(root, filepath.FromSlash(files.LayoutDir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			for _, p := range valid {
				res.skip(p.key)
			}
			return nil
		}
		return &files.TreeError{Path: dir, Err: err}
	}

	// hits counts, per adjustment, attributes changed or already at target.
	hits := make([]int, len(valid))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".xml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := batch.Current(path)
		if err != nil {
			return err
		}
		if files.IsBinaryXML(data) {
			res.skip(files.LayoutDir + "/" + e.Name())
			continue
		}
		doc, err := files.ParseXML(path, data)
		if err != nil {
			return err
		}

		changed := 0
		for i, p := range valid {
			c, matched := p.adj.apply(doc.Root(), p.direction)
			changed += c
			hits[i] += matched
		}
		if changed == 0 {
			continue
		}
		out, err := files.SerializeXML(path, doc)
		if err != nil {
			return err
		}
		batch.Set(path, out)
	}

	for i, p := range valid {
		if hits[i] == 0 {
			res.skip(p.key)
			continue
		}
		res.Applied++
	}
	return nil
}

func applyRaster(root string, batch *files.Batch, res *Result, ins []patch.Instruction) error {
	for _, in := range ins {
		path, err := files.Resolve(root, in.Key)
		if err != nil {
			return &files.TreeError{Path: in.Key, Err: err}
		}

		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				res.skip(in.Key)
				continue
			}
			return &files.TreeError{Path: path, Err: err}
		}
		if info.IsDir() || len(in.Payload) == 0 {
			res.skip(in.Key)
			continue
		}

		if _, err := batch.Current(path); err != nil {
			return err
		}
		batch.Set(path, in.Payload)
		res.Applied++
	}
	return nil
}
