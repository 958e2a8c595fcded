package files

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
)

// writeFile is swapped in tests to simulate failing disks.
var writeFile = WriteAtomic

// Batch collects planned file contents and writes them in one pass.
// Files whose planned content equals what is on disk are not rewritten.
type Batch struct {
	original map[string][]byte
	planned  map[string][]byte
}

func NewBatch() *Batch {
	return &Batch{
		original: make(map[string][]byte),
		planned:  make(map[string][]byte),
	}
}

// Current returns the planned content for path, reading it from disk on
// first use.
func (b *Batch) Current(path string) ([]byte, error) {
	if data, ok := b.planned[path]; ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TreeError{Path: path, Err: err}
	}
	b.original[path] = data
	b.planned[path] = data
	return data, nil
}

// Set replaces the planned content for path. Current must have been called
// for path first so the original content is known.
func (b *Batch) Set(path string, data []byte) {
	b.planned[path] = data
}

// Changed lists paths whose planned content differs from disk, sorted.
func (b *Batch) Changed() []string {
	var out []string
	for path, data := range b.planned {
		if !bytes.Equal(b.original[path], data) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Commit writes every changed file atomically. If a write fails, files
// already replaced in this commit are restored. The returned error carries
// the write failure and any restore that failed too.
func (b *Batch) Commit() ([]string, error) {
	changed := b.Changed()
	done := make([]string, 0, len(changed))
	for _, path := range changed {
		if err := writeFile(path, b.planned[path]); err != nil {
			errs := []error{fmt.Errorf("commit %s: %w", path, err)}
			for _, p := range done {
				if rerr := writeFile(p, b.original[p]); rerr != nil {
					errs = append(errs, fmt.Errorf("rollback %s: %w", p, rerr))
				}
			}
			return nil, errors.Join(errs...)
		}
		done = append(done, path)
	}
	return changed, nil
}
