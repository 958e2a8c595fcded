package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

// BuildLog records compile and sign attempts.
type BuildLog interface {
	Record(ctx context.Context, run domain.BuildRun) error
	// Runs returns the most recent runs for a project, newest first.
	Runs(ctx context.Context, projectID string, limit int) ([]domain.BuildRun, error)
	// Forget drops a project's history.
	Forget(ctx context.Context, projectID string) error
}

// pgxQuerier is the subset of *pgxpool.Pool used by PgBuildLog.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgBuildLog writes build history to apk_build_runs through a pgx pool.
type PgBuildLog struct {
	pool pgxQuerier
}

func NewPgBuildLog(pool pgxQuerier) *PgBuildLog {
	return &PgBuildLog{pool: pool}
}

func (l *PgBuildLog) Record(ctx context.Context, run domain.BuildRun) error {
	const q = `
insert into apk_build_runs (project_id, op, ok, size_bytes, error, duration_ms, created_at)
values ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := l.pool.Exec(ctx, q, run.ProjectID, run.Op, run.OK, run.SizeBytes, run.Error, run.DurationMS, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record build run: %w", err)
	}
	return nil
}

func (l *PgBuildLog) Runs(ctx context.Context, projectID string, limit int) ([]domain.BuildRun, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
select project_id, op, ok, size_bytes, error, duration_ms, created_at
from apk_build_runs
where project_id = $1
order by created_at desc
limit $2
`
	rows, err := l.pool.Query(ctx, q, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []domain.BuildRun
	for rows.Next() {
		var r domain.BuildRun
		if err := rows.Scan(&r.ProjectID, &r.Op, &r.OK, &r.SizeBytes, &r.Error, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *PgBuildLog) Forget(ctx context.Context, projectID string) error {
	if _, err := l.pool.Exec(ctx, `delete from apk_build_runs where project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to forget build runs: %w", err)
	}
	return nil
}

// MemoryBuildLog keeps a bounded history per project in memory.
type MemoryBuildLog struct {
	mu   sync.Mutex
	runs map[string][]domain.BuildRun
	max  int
}

func NewMemoryBuildLog(maxPerProject int) *MemoryBuildLog {
	if maxPerProject <= 0 {
		maxPerProject = 50
	}
	return &MemoryBuildLog{runs: make(map[string][]domain.BuildRun), max: maxPerProject}
}

func (l *MemoryBuildLog) Record(_ context.Context, run domain.BuildRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	runs := append(l.runs[run.ProjectID], run)
	if len(runs) > l.max {
		runs = runs[len(runs)-l.max:]
	}
	l.runs[run.ProjectID] = runs
	return nil
}

func (l *MemoryBuildLog) Runs(_ context.Context, projectID string, limit int) ([]domain.BuildRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	runs := l.runs[projectID]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	out := make([]domain.BuildRun, 0, limit)
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}

func (l *MemoryBuildLog) Forget(_ context.Context, projectID string) error {
	l.mu.Lock()
	delete(l.runs, projectID)
	l.mu.Unlock()
	return nil
}
