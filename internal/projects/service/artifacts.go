package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

const backupSuffix = ".prev"

// savedArtifact is a copy of the last validated compiled artifact taken
// before a rebuild. A failed rebuild puts it back in place.
type savedArtifact struct {
	path   string
	backup string
}

// saveArtifact copies a's file aside. For a nil artifact or a missing file
// the returned savedArtifact only discards rejected output.
func saveArtifact(a *domain.BuildArtifact) (*savedArtifact, error) {
	if a == nil {
		return &savedArtifact{}, nil
	}
	src, err := os.Open(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &savedArtifact{}, nil
		}
		return nil, err
	}
	defer src.Close()

	backup := a.Path + backupSuffix
	dst, err := os.Create(backup)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backup)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(backup)
		return nil, err
	}
	return &savedArtifact{path: a.Path, backup: backup}, nil
}

// restore removes the rejected output and moves the saved copy back.
func (s *savedArtifact) restore(ctx context.Context, output string) {
	if output != "" && output != s.path {
		os.Remove(output)
	}
	if s.backup == "" {
		return
	}
	if err := os.Rename(s.backup, s.path); err != nil {
		logging.NewLogger(ctx).LogErrorf("compile", "restore %s: %v", s.path, err)
	}
}

func (s *savedArtifact) discard() {
	if s.backup != "" {
		os.Remove(s.backup)
	}
}

func artifactSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}
