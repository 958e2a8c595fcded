// Package build turns an uploaded application archive into an editable
// resource tree and back into an installable, signed archive.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Collaborator decompiles, recompiles and signs archives. Implementations
// must honour ctx cancellation.
type Collaborator interface {
	// Decompile extracts archivePath under workDir and returns the
	// resource root.
	Decompile(ctx context.Context, archivePath, workDir string) (string, error)
	// Compile packages root and returns the produced artifact path.
	Compile(ctx context.Context, root string) (string, error)
	// Sign writes a signed copy of artifactPath to outPath.
	Sign(ctx context.Context, artifactPath, outPath string) error
}

// Describer is implemented by collaborators that can report package facts
// from a decompiled tree.
type Describer interface {
	Describe(root string) (map[string]string, error)
}

// Package fact keys returned by Describe.
const (
	FactVersionName = "package_version_name"
	FactMinSDK      = "min_sdk"
	FactTargetSDK   = "target_sdk"
)

// Layout of a project work directory.
const (
	DecompiledDir = "decompiled"
	BuildDir      = "build"
	CompiledName  = "compiled.apk"
	SignedName    = "signed.apk"
	ManifestName  = "AndroidManifest.xml"
)

var (
	ErrNoManifest     = errors.New("archive has no AndroidManifest.xml")
	ErrUnsafeEntry    = errors.New("archive entry escapes destination")
	ErrNotCompiled    = errors.New("compiled artifact missing")
	ErrUnknownBackend = errors.New("unknown build backend")
)

// CompiledPath is where Compile places the artifact for a resource root.
func CompiledPath(root string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(root)), BuildDir, CompiledName)
}

// New returns the collaborator named by backend ("archive" or "apktool").
func New(backend string, signer *Signer, tools ApktoolOptions) (Collaborator, error) {
	switch backend {
	case "archive", "":
		return NewArchive(signer), nil
	case "apktool":
		return NewApktool(tools), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
