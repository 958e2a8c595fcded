package domain

import "time"

// State is a project's position in the rebuild lifecycle.
type State string

const (
	StateUploaded   State = "uploaded"
	StateDecompiled State = "decompiled"
	StateEditing    State = "editing"
	StateModified   State = "modified"
	StateCompiled   State = "compiled"
	StateSigned     State = "signed"
	StateFailed     State = "failed"
)

// Metadata keys stamped by the orchestrator.
const (
	MetaLastModified       = "last_modified"
	MetaStatus             = "status"
	MetaLastResource       = "last_resource_edited"
	MetaLastEditType       = "last_edit_type"
	MetaLastContentPreview = "last_content_preview"
	MetaLastGuiChanges     = "last_gui_changes"
	MetaColorScheme        = "color_scheme"
	MetaPatchApplied       = "patch_applied"
	MetaPatchSkipped       = "patch_skipped"
	MetaCompiled           = "compiled"
	MetaCompiledAt         = "compiled_at"
	MetaApkSize            = "apk_size"
	MetaSigned             = "signed"
	MetaSignedAt           = "signed_at"
	MetaSignedSize         = "signed_size"
	MetaLastError          = "last_error"
	MetaLastFailedOp       = "last_failed_op"
	MetaFailedAt           = "failed_at"
	MetaOwner              = "owner"
)

// BuildArtifact is a compiled or signed archive produced by a build collaborator.
type BuildArtifact struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	Signed    bool      `json:"signed"`
	CreatedAt time.Time `json:"created_at"`
}

// Failure records the most recent operation that did not complete.
type Failure struct {
	Op     string    `json:"op"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Project is an uploaded archive under edit. It is storage-agnostic and
// shared by the repository, service and HTTP layers.
//
// State always holds the last successfully reached state. When Failure is
// set, Status reports StateFailed until the next successful operation.
type Project struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	State          State             `json:"state"`
	ResourceRoot   string            `json:"resource_root"`
	WorkDir        string            `json:"work_dir"`
	SourceArchive  string            `json:"source_archive"`
	Metadata       map[string]string `json:"metadata"`
	Artifact       *BuildArtifact    `json:"artifact,omitempty"`
	SignedArtifact *BuildArtifact    `json:"signed_artifact,omitempty"`
	Failure        *Failure          `json:"failure,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Status is the externally reported state.
func (p *Project) Status() State {
	if p.Failure != nil {
		return StateFailed
	}
	return p.State
}

// Clone returns a deep copy so callers never share maps or artifacts.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Metadata = make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		cp.Metadata[k] = v
	}
	if p.Artifact != nil {
		a := *p.Artifact
		cp.Artifact = &a
	}
	if p.SignedArtifact != nil {
		a := *p.SignedArtifact
		cp.SignedArtifact = &a
	}
	if p.Failure != nil {
		f := *p.Failure
		cp.Failure = &f
	}
	return &cp
}

// MergeMetadata overwrites the given keys and keeps all others.
func (p *Project) MergeMetadata(patch map[string]string) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]string, len(patch))
	}
	for k, v := range patch {
		p.Metadata[k] = v
	}
}

// ResourceKind selects which part of the resource tree an edit targets.
type ResourceKind string

const (
	ResourceImage  ResourceKind = "image"
	ResourceString ResourceKind = "string"
	ResourceLayout ResourceKind = "layout"
)

func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceImage, ResourceString, ResourceLayout:
		return true
	}
	return false
}

// BuildRun is one compile or sign attempt, kept for history.
type BuildRun struct {
	ProjectID  string    `json:"project_id"`
	Op         string    `json:"op"`
	OK         bool      `json:"ok"`
	SizeBytes  int64     `json:"size_bytes"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is published after every committed lifecycle transition.
type Event struct {
	ProjectID string    `json:"project_id"`
	Op        string    `json:"op"`
	State     State     `json:"state"`
	At        time.Time `json:"at"`
}
