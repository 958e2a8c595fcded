package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/files"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/tree"
)

// Get returns a project by ID.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.load(ctx, "get", id)
}

// List returns the owner's projects, newest first. An empty owner lists
// every project.
func (s *ProjectService) List(ctx context.Context, owner string) ([]*domain.Project, error) {
	out, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// Resources lists the editable resources of a project.
func (s *ProjectService) Resources(ctx context.Context, id string) (*tree.Inventory, error) {
	const op = "resources"
	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	inv, err := tree.List(p.ResourceRoot)
	if err != nil {
		return nil, treeError(op, err)
	}
	return inv, nil
}

// ResourceContent returns the raw bytes of an image, the value of a string
// or the XML of a layout.
func (s *ProjectService) ResourceContent(ctx context.Context, id string, kind domain.ResourceKind, rel string) ([]byte, error) {
	const op = "resource_content"
	if !kind.Valid() {
		return nil, domain.InputError(op, fmt.Sprintf("unknown resource type %q", kind))
	}
	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch kind {
	case domain.ResourceImage:
		data, err = tree.ReadImage(p.ResourceRoot, rel)
	case domain.ResourceString:
		var v string
		v, err = tree.ReadString(p.ResourceRoot, rel)
		data = []byte(v)
	case domain.ResourceLayout:
		var v string
		v, err = tree.ReadLayout(p.ResourceRoot, rel)
		data = []byte(v)
	}
	if err != nil {
		return nil, treeError(op, err)
	}
	return data, nil
}

// Preview pairs a stored string or layout with a candidate replacement
// without writing anything.
func (s *ProjectService) Preview(ctx context.Context, id string, kind domain.ResourceKind, rel, candidate string) (*tree.Preview, error) {
	const op = "preview"
	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	var pv *tree.Preview
	switch kind {
	case domain.ResourceString:
		pv, err = tree.PreviewString(p.ResourceRoot, rel, candidate)
	case domain.ResourceLayout:
		pv, err = tree.PreviewLayout(p.ResourceRoot, rel, candidate)
	default:
		return nil, domain.InputError(op, "preview is available for strings and layouts")
	}
	if err != nil {
		return nil, treeError(op, err)
	}
	return pv, nil
}

// Artifact returns the compiled or signed archive for download.
func (s *ProjectService) Artifact(ctx context.Context, id string, signed bool) (*domain.Project, *domain.BuildArtifact, error) {
	const op = "download"
	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, nil, err
	}

	a := p.Artifact
	missing := "compiled archive not found; please compile first"
	if signed {
		a = p.SignedArtifact
		missing = "signed archive not found; please sign first"
	}
	if a == nil {
		return nil, nil, domain.InputError(op, missing)
	}
	if _, err := artifactSize(a.Path); err != nil {
		return nil, nil, domain.InputError(op, missing)
	}
	return p, a, nil
}

// Builds returns the project's compile and sign history, newest first.
func (s *ProjectService) Builds(ctx context.Context, id string, limit int) ([]domain.BuildRun, error) {
	const op = "builds"
	if _, err := s.load(ctx, op, id); err != nil {
		return nil, err
	}
	runs, err := s.builds.Runs(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if runs == nil {
		runs = []domain.BuildRun{}
	}
	return runs, nil
}

// treeError maps resource tree errors onto the domain taxonomy. Bad paths
// and content are the caller's fault; unreadable trees are not.
func treeError(op string, err error) error {
	switch {
	case errors.Is(err, files.ErrCompiledXML):
		return &domain.Error{Kind: domain.KindInput, Op: op, Reason: "this resource file is compiled binary XML and cannot be edited; use the apktool build backend", Err: err}
	case errors.Is(err, tree.ErrResourceNotFound):
		return &domain.Error{Kind: domain.KindNotFound, Op: op, Reason: err.Error(), Err: err}
	case errors.Is(err, tree.ErrInvalidPath), errors.Is(err, tree.ErrInvalidContent), errors.Is(err, files.ErrEscapesRoot):
		return &domain.Error{Kind: domain.KindInput, Op: op, Reason: err.Error(), Err: err}
	}
	return domain.ResourceTreeError(op, "the project's resource files could not be read or written", err)
}
