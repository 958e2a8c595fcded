package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

// Schema creates the tables used by PostgresStore and BuildLog.
const Schema = `
create table if not exists apk_projects (
  id              text primary key,
  name            text not null,
  state           text not null,
  resource_root   text not null default '',
  work_dir        text not null default '',
  source_archive  text not null default '',
  metadata        jsonb not null default '{}'::jsonb,
  artifact        jsonb,
  signed_artifact jsonb,
  failure         jsonb,
  created_at      timestamptz not null default now(),
  updated_at      timestamptz not null default now()
);

create table if not exists apk_build_runs (
  id          bigserial primary key,
  project_id  text not null,
  op          text not null,
  ok          boolean not null,
  size_bytes  bigint not null default 0,
  error       text not null default '',
  duration_ms bigint not null default 0,
  created_at  timestamptz not null default now()
);

create index if not exists apk_build_runs_project_idx on apk_build_runs (project_id, created_at desc);
`

const projectColumns = `id, name, state, resource_root, work_dir, source_archive,
       metadata, artifact, signed_artifact, failure, created_at, updated_at`

// PostgresStore keeps projects in PostgreSQL through database/sql and lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies Schema.
func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *PostgresStore) Create(ctx context.Context, p *domain.Project) error {
	meta, artifact, signed, failure, err := encodeProject(p)
	if err != nil {
		return err
	}

	const q = `
insert into apk_projects (id, name, state, resource_root, work_dir, source_archive,
                          metadata, artifact, signed_artifact, failure, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9::jsonb, $10::jsonb, $11, $12)
`
	_, err = r.db.ExecContext(ctx, q,
		p.ID, p.Name, string(p.State), p.ResourceRoot, p.WorkDir, p.SourceArchive,
		meta, artifact, signed, failure, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *PostgresStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `select `+projectColumns+` from apk_projects where id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (r *PostgresStore) List(ctx context.Context, owner string) ([]*domain.Project, error) {
	const q = `
select ` + projectColumns + `
from apk_projects
where $1 = '' or metadata->>'owner' = $1
order by created_at desc, id
`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresStore) UpdateMetadata(ctx context.Context, id string, patch map[string]string) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	const q = `
update apk_projects
set metadata = metadata || $2::jsonb,
    updated_at = now()
where id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Update locks the row for the duration of fn.
func (r *PostgresStore) Update(ctx context.Context, id string, fn func(p *domain.Project) error) (*domain.Project, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `select `+projectColumns+` from apk_projects where id = $1 for update`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}
	p.ID = id

	meta, artifact, signed, failure, err := encodeProject(p)
	if err != nil {
		return nil, err
	}
	const q = `
update apk_projects
set name = $2, state = $3, resource_root = $4, work_dir = $5, source_archive = $6,
    metadata = $7::jsonb, artifact = $8::jsonb, signed_artifact = $9::jsonb,
    failure = $10::jsonb, updated_at = $11
where id = $1
`
	if _, err := tx.ExecContext(ctx, q,
		p.ID, p.Name, string(p.State), p.ResourceRoot, p.WorkDir, p.SourceArchive,
		meta, artifact, signed, failure, p.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from apk_projects where id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p                                 domain.Project
		state                             string
		meta                              []byte
		artifact, signedArtifact, failure []byte
	)
	if err := row.Scan(
		&p.ID, &p.Name, &state, &p.ResourceRoot, &p.WorkDir, &p.SourceArchive,
		&meta, &artifact, &signedArtifact, &failure, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.State = domain.State(state)

	p.Metadata = map[string]string{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if err := decodeOptional(artifact, &p.Artifact); err != nil {
		return nil, err
	}
	if err := decodeOptional(signedArtifact, &p.SignedArtifact); err != nil {
		return nil, err
	}
	if err := decodeOptional(failure, &p.Failure); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeOptional[T any](data []byte, out **T) error {
	if len(data) == 0 || string(data) == "null" {
		*out = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	*out = &v
	return nil
}

// encodeProject returns the jsonb columns. Nil pointers become SQL NULL.
func encodeProject(p *domain.Project) (meta string, artifact, signed, failure sql.NullString, err error) {
	m := p.Metadata
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", artifact, signed, failure, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	meta = string(b)
	if artifact, err = nullJSON(p.Artifact); err != nil {
		return
	}
	if signed, err = nullJSON(p.SignedArtifact); err != nil {
		return
	}
	failure, err = nullJSON(p.Failure)
	return
}

func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
