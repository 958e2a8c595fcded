package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProject_StatusReportsFailure(t *testing.T) {
	p := &Project{State: StateCompiled}
	assert.Equal(t, StateCompiled, p.Status())

	p.Failure = &Failure{Op: "sign", Reason: "tool crashed", At: time.Now()}
	assert.Equal(t, StateFailed, p.Status())
	assert.Equal(t, StateCompiled, p.State)
}

func TestProject_CloneIsDeep(t *testing.T) {
	p := &Project{
		ID:       "apk-1",
		Metadata: map[string]string{"status": "decompiled"},
		Artifact: &BuildArtifact{Path: "a.apk", SizeBytes: 2048},
	}

	cp := p.Clone()
	cp.Metadata["status"] = "modified"
	cp.Artifact.SizeBytes = 1

	assert.Equal(t, "decompiled", p.Metadata["status"])
	assert.Equal(t, int64(2048), p.Artifact.SizeBytes)
}

func TestProject_MergeMetadataKeepsHistory(t *testing.T) {
	p := &Project{Metadata: map[string]string{"compiled": "true", "status": "compiled"}}
	p.MergeMetadata(map[string]string{"status": "modified", "last_edit_type": "layout"})

	assert.Equal(t, "true", p.Metadata["compiled"])
	assert.Equal(t, "modified", p.Metadata["status"])
	assert.Equal(t, "layout", p.Metadata["last_edit_type"])
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", UpstreamError("compile", "build tool failed", errors.New("exit 1")))

	assert.Equal(t, KindUpstream, KindOf(wrapped))
	assert.Equal(t, "build tool failed", ReasonOf(wrapped))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}
