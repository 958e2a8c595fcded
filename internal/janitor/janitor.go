// Package janitor runs periodic housekeeping: stale uploads are removed and
// expired generations are swept.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper drops expired entries and reports how many went.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Options struct {
	// Schedule is a six-field cron spec (seconds first).
	Schedule  string
	UploadDir string
	Retention time.Duration
	Sweepers  []Sweeper
}

type Janitor struct {
	opts Options
	cron *cron.Cron
	now  func() time.Time
}

func New(opts Options) (*Janitor, error) {
	if opts.Schedule == "" {
		opts.Schedule = "0 0 * * * *"
	}
	if opts.Retention <= 0 {
		return nil, errors.New("retention must be greater than 0")
	}

	j := &Janitor{opts: opts, cron: cron.New(cron.WithSeconds()), now: time.Now}
	if _, err := j.cron.AddFunc(opts.Schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", opts.Schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	zap.L().Info("janitor started", zap.String("schedule", j.opts.Schedule))
	j.cron.Start()
}

// Stop waits for a running pass to finish or ctx to end.
func (j *Janitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Report is the outcome of one pass.
type Report struct {
	UploadsRemoved int
	Swept          int
}

func (j *Janitor) RunOnce(ctx context.Context) Report {
	var rep Report

	removed, err := j.pruneUploads()
	if err != nil {
		zap.L().Warn("janitor: prune uploads", zap.Error(err))
	}
	rep.UploadsRemoved = removed

	for _, s := range j.opts.Sweepers {
		n, err := s.Sweep(ctx)
		if err != nil {
			zap.L().Warn("janitor: sweep", zap.Error(err))
			continue
		}
		rep.Swept += n
	}

	zap.L().Info("janitor pass complete",
		zap.Int("uploads_removed", rep.UploadsRemoved),
		zap.Int("swept", rep.Swept),
	)
	return rep
}

// pruneUploads removes regular files in UploadDir older than Retention.
// Subdirectories are left alone.
func (j *Janitor) pruneUploads() (int, error) {
	if j.opts.UploadDir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(j.opts.UploadDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := j.now().Add(-j.opts.Retention)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(j.opts.UploadDir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
