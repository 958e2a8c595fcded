package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/build"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/codegen"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/events"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/lock"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/repository"
)

const defaultMinArtifactBytes = 1024

// Options are the tunables of a ProjectService.
type Options struct {
	// ProjectsDir holds one work directory per project.
	ProjectsDir string
	// UploadDir is where uploaded archives live. Delete only removes source
	// archives below it.
	UploadDir        string
	BuildTimeout     time.Duration
	MinArtifactBytes int64
	// LockWait bounds how long an operation waits for a busy project.
	// Zero waits until the request context ends.
	LockWait time.Duration
}

// Deps are the collaborators of a ProjectService. Store and Collaborator
// are required; the rest fall back to in-process implementations.
type Deps struct {
	Store        repository.Store
	Builds       repository.BuildLog
	Collaborator build.Collaborator
	Locker       lock.Locker
	Events       events.Publisher
	Generator    *codegen.Generator
	Generations  codegen.Store
}

// ProjectService drives a project through decompile, edit, compile and
// sign. Every mutating call holds the project's lock for its duration.
type ProjectService struct {
	store       repository.Store
	builds      repository.BuildLog
	collab      build.Collaborator
	locker      lock.Locker
	events      events.Publisher
	generator   *codegen.Generator
	generations codegen.Store
	opts        Options
	now         func() time.Time
}

// NewProjectService creates a new project service
func NewProjectService(deps Deps, opts Options) (*ProjectService, error) {
	if deps.Store == nil {
		return nil, errors.New("project store is required")
	}
	if deps.Collaborator == nil {
		return nil, errors.New("build collaborator is required")
	}
	if opts.ProjectsDir == "" {
		return nil, errors.New("projects dir is required")
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = 5 * time.Minute
	}
	if opts.MinArtifactBytes == 0 {
		opts.MinArtifactBytes = defaultMinArtifactBytes
	}

	s := &ProjectService{
		store:       deps.Store,
		builds:      deps.Builds,
		collab:      deps.Collaborator,
		locker:      deps.Locker,
		events:      deps.Events,
		generator:   deps.Generator,
		generations: deps.Generations,
		opts:        opts,
		now:         time.Now,
	}
	if s.builds == nil {
		s.builds = repository.NewMemoryBuildLog(0)
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.generator == nil {
		s.generator = codegen.NewGenerator(nil)
	}
	if s.generations == nil {
		s.generations = codegen.NewMemoryStore(0)
	}
	return s, nil
}

var (
	editableStates   = []domain.State{domain.StateDecompiled, domain.StateEditing, domain.StateModified, domain.StateCompiled, domain.StateSigned}
	compilableStates = editableStates
	signableStates   = []domain.State{domain.StateCompiled, domain.StateSigned}
)

func stateIn(s domain.State, allowed []domain.State) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

func (s *ProjectService) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// acquire takes the project lock. Waiting past LockWait reports ErrBusy.
func (s *ProjectService) acquire(ctx context.Context, op, id string) (func(), error) {
	lctx := ctx
	if s.opts.LockWait > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, s.opts.LockWait)
		defer cancel()
	}
	unlock, err := s.locker.Lock(lctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.UpstreamError(op, op+" was cancelled", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", op, id, domain.ErrBusy)
		}
		return nil, fmt.Errorf("%s: acquire lock: %w", op, err)
	}
	return unlock, nil
}

func (s *ProjectService) load(ctx context.Context, op, id string) (*domain.Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError(op, id)
		}
		return nil, fmt.Errorf("%s: load project: %w", op, err)
	}
	return p, nil
}

// commit applies a successful transition, clears any recorded failure and
// announces the new state.
func (s *ProjectService) commit(ctx context.Context, op, id string, fn func(p *domain.Project)) (*domain.Project, error) {
	p, err := s.store.Update(ctx, id, func(p *domain.Project) error {
		fn(p)
		p.Failure = nil
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError(op, id)
		}
		return nil, fmt.Errorf("%s: save project: %w", op, err)
	}
	s.publish(ctx, op, p)
	return p, nil
}

// fail records cause on the project without touching its state and returns
// cause unchanged. Only upstream, validation and resource tree failures
// are recorded; rejected input leaves no trace.
func (s *ProjectService) fail(ctx context.Context, op, id string, cause error) error {
	switch domain.KindOf(cause) {
	case domain.KindUpstream, domain.KindValidation, domain.KindResourceTree:
	default:
		return cause
	}

	log := logging.NewLogger(ctx)
	log.LogError(op, cause)

	// Record the failure even when the request itself was cancelled.
	ctx = context.WithoutCancel(ctx)
	reason := domain.ReasonOf(cause)
	at := s.now()
	p, err := s.store.Update(ctx, id, func(p *domain.Project) error {
		p.Failure = &domain.Failure{Op: op, Reason: reason, At: at}
		p.MergeMetadata(map[string]string{
			domain.MetaLastError:    reason,
			domain.MetaLastFailedOp: op,
			domain.MetaFailedAt:     at.UTC().Format(time.RFC3339),
			domain.MetaStatus:       string(domain.StateFailed),
		})
		p.UpdatedAt = at
		return nil
	})
	if err != nil {
		log.LogWarnf(op, "could not record failure on %s: %v", id, err)
		return cause
	}
	s.publish(ctx, op, p)
	return cause
}

func (s *ProjectService) publish(ctx context.Context, op string, p *domain.Project) {
	ev := domain.Event{ProjectID: p.ID, Op: op, State: p.Status(), At: s.now()}
	if err := s.events.Publish(ctx, ev); err != nil {
		logging.NewLogger(ctx).LogWarnf(op, "event publish failed for %s: %v", p.ID, err)
	}
}

// upstream classifies a collaborator error. ctx is the bounded context the
// collaborator ran under.
func (s *ProjectService) upstream(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.UpstreamError(op, fmt.Sprintf("%s timed out after %s", op, s.opts.BuildTimeout), err)
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.UpstreamError(op, op+" was cancelled", err)
	}
	return domain.UpstreamError(op, upstreamReasons[op], err)
}

var upstreamReasons = map[string]string{
	"decompile": "failed to decompile archive; check that it is a valid APK",
	"compile":   "failed to compile project; check that all required resources are present",
	"sign":      "failed to sign compiled archive",
}

func (s *ProjectService) recordRun(ctx context.Context, op, id string, started time.Time, size int64, runErr error) {
	run := domain.BuildRun{
		ProjectID:  id,
		Op:         op,
		OK:         runErr == nil,
		SizeBytes:  size,
		DurationMS: s.now().Sub(started).Milliseconds(),
		CreatedAt:  s.now(),
	}
	if runErr != nil {
		run.Error = domain.ReasonOf(runErr)
	}
	if err := s.builds.Record(context.WithoutCancel(ctx), run); err != nil {
		logging.NewLogger(ctx).LogWarnf(op, "build history not recorded for %s: %v", id, err)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
