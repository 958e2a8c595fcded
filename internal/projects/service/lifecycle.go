package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/build"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/utils"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/engine"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/patch"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/tree"
)

const previewLen = 50

// DecompileInput describes an uploaded archive. ProjectID and Name are
// optional.
type DecompileInput struct {
	ArchivePath string
	ProjectID   string
	Name        string
	Owner       string
}

// Decompile extracts an archive into a fresh work directory and creates
// the project. Nothing is created when the collaborator fails.
func (s *ProjectService) Decompile(ctx context.Context, in DecompileInput) (*domain.Project, error) {
	const op = "decompile"
	log := logging.NewLogger(ctx)

	archive := strings.TrimSpace(in.ArchivePath)
	if archive == "" {
		return nil, domain.InputError(op, "no archive selected")
	}
	ext := filepath.Ext(archive)
	if !strings.EqualFold(ext, ".apk") {
		return nil, domain.InputError(op, "please upload an APK file")
	}
	if info, err := os.Stat(archive); err != nil || info.IsDir() {
		return nil, domain.InputError(op, "archive file does not exist")
	}

	id := strings.TrimSpace(in.ProjectID)
	if id == "" {
		var err error
		if id, err = utils.NewTextID("apk"); err != nil {
			return nil, fmt.Errorf("%s: generate id: %w", op, err)
		}
	} else if !utils.ValidID(id) {
		return nil, domain.InputError(op, "invalid project id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(archive), ext)
	}

	unlock, err := s.acquire(ctx, op, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.store.Get(ctx, id); err == nil {
		return nil, domain.InputError(op, fmt.Sprintf("project %s already exists", id))
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: check project: %w", op, err)
	}

	workDir := filepath.Join(s.opts.ProjectsDir, id)
	// A directory without a record is left over from a crashed run.
	if err := os.RemoveAll(workDir); err != nil {
		return nil, domain.ResourceTreeError(op, "could not prepare work directory", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, domain.ResourceTreeError(op, "could not prepare work directory", err)
	}

	bctx, cancel := context.WithTimeout(ctx, s.opts.BuildTimeout)
	defer cancel()
	root, err := s.collab.Decompile(bctx, archive, workDir)
	if err != nil {
		os.RemoveAll(workDir)
		derr := s.upstream(bctx, op, err)
		log.LogError(op, derr)
		return nil, derr
	}

	now := s.now()
	p := &domain.Project{
		ID:            id,
		Name:          name,
		State:         domain.StateDecompiled,
		ResourceRoot:  root,
		WorkDir:       workDir,
		SourceArchive: archive,
		Metadata:      map[string]string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if d, ok := s.collab.(build.Describer); ok {
		facts, err := d.Describe(root)
		if err != nil {
			log.LogWarnf(op, "package facts unavailable for %s: %v", id, err)
		}
		p.MergeMetadata(facts)
	}
	p.MergeMetadata(map[string]string{
		domain.MetaLastModified: now.UTC().Format(time.RFC3339),
		domain.MetaStatus:       string(domain.StateDecompiled),
	})
	if in.Owner != "" {
		p.Metadata[domain.MetaOwner] = in.Owner
	}

	if err := s.store.Create(ctx, p); err != nil {
		os.RemoveAll(workDir)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.InputError(op, fmt.Sprintf("project %s already exists", id))
		}
		return nil, fmt.Errorf("%s: create project: %w", op, err)
	}
	s.publish(ctx, op, p)
	log.LogInfof(op, "project %s decompiled into %s", id, root)
	return p, nil
}

// BeginEdit opens a project for editing.
func (s *ProjectService) BeginEdit(ctx context.Context, id string) (*domain.Project, error) {
	const op = "edit"
	unlock, err := s.acquire(ctx, op, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !stateIn(p.State, editableStates) {
		return nil, domain.InputError(op, fmt.Sprintf("cannot edit a project in state %s", p.State))
	}
	return s.commit(ctx, op, id, func(p *domain.Project) {
		p.State = domain.StateEditing
		p.MergeMetadata(map[string]string{
			domain.MetaLastModified: s.stamp(),
			domain.MetaStatus:       string(domain.StateEditing),
		})
	})
}

// EditResource replaces one image, string or layout and moves the project
// to Modified.
func (s *ProjectService) EditResource(ctx context.Context, id string, kind domain.ResourceKind, rel string, content []byte) (*domain.Project, error) {
	const op = "save_resource"
	if !kind.Valid() {
		return nil, domain.InputError(op, fmt.Sprintf("unknown resource type %q", kind))
	}

	unlock, err := s.acquire(ctx, op, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !stateIn(p.State, editableStates) {
		return nil, domain.InputError(op, fmt.Sprintf("cannot edit a project in state %s", p.State))
	}

	meta := map[string]string{
		domain.MetaLastModified: s.stamp(),
		domain.MetaStatus:       string(domain.StateModified),
		domain.MetaLastResource: rel,
		domain.MetaLastEditType: string(kind),
	}
	switch kind {
	case domain.ResourceImage:
		err = tree.SaveImage(p.ResourceRoot, rel, content)
	case domain.ResourceString:
		err = tree.SaveString(p.ResourceRoot, rel, string(content))
		meta[domain.MetaLastContentPreview] = contentPreview(string(content))
	case domain.ResourceLayout:
		err = tree.SaveLayout(p.ResourceRoot, rel, content)
		meta[domain.MetaLastContentPreview] = "XML Layout Modified"
	}
	if err != nil {
		return nil, s.fail(ctx, op, id, treeError(op, err))
	}

	logging.NewLogger(ctx).LogInfof(op, "resource %s saved on %s", rel, id)
	return s.commit(ctx, op, id, func(p *domain.Project) {
		p.State = domain.StateModified
		p.MergeMetadata(meta)
	})
}

func contentPreview(s string) string {
	r := []rune(s)
	if len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return s
}

// GuiChange is a free-text change request with optional reference images.
type GuiChange struct {
	Description string
	ColorScheme string
	Assets      []patch.AssetHandle
}

// ApplyGuiChanges compiles a description into patch instructions and
// applies them to the resource tree. Keys without a target come back in
// the result's Skipped list.
func (s *ProjectService) ApplyGuiChanges(ctx context.Context, id string, change GuiChange) (*domain.Project, *engine.Result, error) {
	const op = "apply_gui_changes"
	description := strings.TrimSpace(change.Description)
	if description == "" {
		return nil, nil, domain.InputError(op, "please describe the changes to make")
	}
	scheme := strings.ToLower(strings.TrimSpace(change.ColorScheme))

	unlock, err := s.acquire(ctx, op, id)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, nil, err
	}
	if !stateIn(p.State, editableStates) {
		return nil, nil, domain.InputError(op, fmt.Sprintf("cannot edit a project in state %s", p.State))
	}

	set := patch.Compile(description, scheme, change.Assets)
	res, err := engine.Apply(p.ResourceRoot, set)
	if err != nil {
		return nil, nil, s.fail(ctx, op, id, domain.ResourceTreeError(op, "failed to apply GUI changes to the resource tree", err))
	}

	log := logging.NewLogger(ctx)
	log.LogInfof(op, "%d instructions applied on %s, %d skipped", res.Applied, id, len(res.Skipped))
	if len(res.Skipped) > 0 {
		log.LogWarnf(op, "skipped keys on %s: %s", id, strings.Join(res.Skipped, ", "))
	}

	updated, err := s.commit(ctx, op, id, func(p *domain.Project) {
		p.State = domain.StateModified
		p.MergeMetadata(map[string]string{
			domain.MetaLastModified:   s.stamp(),
			domain.MetaStatus:         string(domain.StateModified),
			domain.MetaLastGuiChanges: description,
			domain.MetaColorScheme:    scheme,
			domain.MetaPatchApplied:   strconv.Itoa(res.Applied),
			domain.MetaPatchSkipped:   strings.Join(res.Skipped, ","),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, res, nil
}

// Compile rebuilds the archive from the resource tree. A recompile
// supersedes any earlier compiled or signed artifact.
func (s *ProjectService) Compile(ctx context.Context, id string) (*domain.Project, error) {
	const op = "compile"
	unlock, err := s.acquire(ctx, op, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !stateIn(p.State, compilableStates) {
		return nil, domain.InputError(op, fmt.Sprintf("cannot compile a project in state %s", p.State))
	}

	saved, err := saveArtifact(p.Artifact)
	if err != nil {
		return nil, fmt.Errorf("%s %s: save previous artifact: %w", op, id, err)
	}

	started := s.now()
	bctx, cancel := context.WithTimeout(ctx, s.opts.BuildTimeout)
	defer cancel()
	path, err := s.collab.Compile(bctx, p.ResourceRoot)
	if err != nil {
		saved.restore(ctx, path)
		cerr := s.upstream(bctx, op, err)
		s.recordRun(ctx, op, id, started, 0, cerr)
		return nil, s.fail(ctx, op, id, cerr)
	}

	size, err := artifactSize(path)
	if err != nil {
		saved.restore(ctx, "")
		verr := domain.ValidationError(op, "compilation produced no output file")
		s.recordRun(ctx, op, id, started, 0, verr)
		return nil, s.fail(ctx, op, id, verr)
	}
	if size < s.opts.MinArtifactBytes {
		saved.restore(ctx, path)
		verr := domain.ValidationError(op, fmt.Sprintf("compilation produced an invalid file (%d bytes, at least %d expected)", size, s.opts.MinArtifactBytes))
		s.recordRun(ctx, op, id, started, size, verr)
		return nil, s.fail(ctx, op, id, verr)
	}
	saved.discard()

	s.recordRun(ctx, op, id, started, size, nil)
	now := s.now()
	logging.NewLogger(ctx).LogInfof(op, "project %s compiled to %s (%d bytes)", id, path, size)
	return s.commit(ctx, op, id, func(p *domain.Project) {
		p.State = domain.StateCompiled
		p.Artifact = &domain.BuildArtifact{Path: path, SizeBytes: size, CreatedAt: now}
		p.SignedArtifact = nil
		p.MergeMetadata(map[string]string{
			domain.MetaCompiled:     "true",
			domain.MetaCompiledAt:   now.UTC().Format(time.RFC3339),
			domain.MetaApkSize:      itoa(size),
			domain.MetaSigned:       "false",
			domain.MetaLastModified: now.UTC().Format(time.RFC3339),
			domain.MetaStatus:       string(domain.StateCompiled),
		})
	})
}

// Sign signs the compiled artifact into <workDir>/signed.apk.
func (s *ProjectService) Sign(ctx context.Context, id string) (*domain.Project, error) {
	const op = "sign"
	unlock, err := s.acquire(ctx, op, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !stateIn(p.State, signableStates) || p.Artifact == nil {
		return nil, domain.InputError(op, "project must be compiled before signing")
	}
	size, err := artifactSize(p.Artifact.Path)
	if err != nil {
		return nil, domain.InputError(op, "compiled archive not found; compile the project again")
	}
	if size < s.opts.MinArtifactBytes || size != p.Artifact.SizeBytes {
		return nil, domain.InputError(op, "compiled archive does not match the last successful build; compile the project again")
	}

	out := filepath.Join(p.WorkDir, build.SignedName)
	started := s.now()
	bctx, cancel := context.WithTimeout(ctx, s.opts.BuildTimeout)
	defer cancel()
	if err := s.collab.Sign(bctx, p.Artifact.Path, out); err != nil {
		serr := s.upstream(bctx, op, err)
		s.recordRun(ctx, op, id, started, 0, serr)
		return nil, s.fail(ctx, op, id, serr)
	}

	size, err = artifactSize(out)
	if err != nil {
		verr := domain.ValidationError(op, "signing produced no output file")
		s.recordRun(ctx, op, id, started, 0, verr)
		return nil, s.fail(ctx, op, id, verr)
	}

	s.recordRun(ctx, op, id, started, size, nil)
	now := s.now()
	logging.NewLogger(ctx).LogInfof(op, "project %s signed to %s", id, out)
	return s.commit(ctx, op, id, func(p *domain.Project) {
		p.State = domain.StateSigned
		p.SignedArtifact = &domain.BuildArtifact{Path: out, SizeBytes: size, Signed: true, CreatedAt: now}
		p.MergeMetadata(map[string]string{
			domain.MetaSigned:       "true",
			domain.MetaSignedAt:     now.UTC().Format(time.RFC3339),
			domain.MetaSignedSize:   itoa(size),
			domain.MetaLastModified: now.UTC().Format(time.RFC3339),
			domain.MetaStatus:       string(domain.StateSigned),
		})
	})
}

// Delete removes the project record, its work directory, its uploaded
// archive and its build history.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	const op = "delete"
	unlock, err := s.acquire(ctx, op, id)
	if err != nil {
		return err
	}
	defer unlock()

	p, err := s.load(ctx, op, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFoundError(op, id)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log := logging.NewLogger(ctx)
	if within(s.opts.ProjectsDir, p.WorkDir) {
		if err := os.RemoveAll(p.WorkDir); err != nil {
			log.LogWarnf(op, "work dir %s not removed: %v", p.WorkDir, err)
		}
	}
	if s.opts.UploadDir != "" && within(s.opts.UploadDir, p.SourceArchive) {
		if err := os.Remove(p.SourceArchive); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.LogWarnf(op, "upload %s not removed: %v", p.SourceArchive, err)
		}
	}
	if err := s.builds.Forget(ctx, id); err != nil {
		log.LogWarnf(op, "build history of %s not removed: %v", id, err)
	}

	s.publish(ctx, op, &domain.Project{ID: id, State: p.Status()})
	log.LogInfof(op, "project %s deleted", id)
	return nil
}

// within reports whether target lies strictly below dir.
func within(dir, target string) bool {
	if dir == "" || target == "" {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absTarget)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
