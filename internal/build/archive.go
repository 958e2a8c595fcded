package build

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/zip"
)

// ArchiveCollaborator works on the archive directly: it unzips for
// decompile, re-zips for compile and writes a JAR signature for sign. It
// needs no external tools.
type ArchiveCollaborator struct {
	signer *Signer

	once    sync.Once
	signErr error
}

// NewArchive returns an archive collaborator. A nil signer is replaced by a
// throwaway self-signed identity on first Sign.
func NewArchive(signer *Signer) *ArchiveCollaborator {
	return &ArchiveCollaborator{signer: signer}
}

func (a *ArchiveCollaborator) Decompile(ctx context.Context, archivePath, workDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	root := filepath.Join(workDir, DecompiledDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create resource root: %w", err)
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := extractEntry(f, root); err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}

	if requireFile(filepath.Join(root, ManifestName)) != nil {
		return "", ErrNoManifest
	}
	return root, nil
}

func extractEntry(f *zip.File, root string) error {
	dest := filepath.Join(root, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(dest, filepath.Clean(root)+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", ErrUnsafeEntry, f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Compile zips root into <workDir>/build/compiled.apk. Stale signature
// files under META-INF are left out so the result can be re-signed.
func (a *ArchiveCollaborator) Compile(ctx context.Context, root string) (string, error) {
	if requireFile(filepath.Join(root, ManifestName)) != nil {
		return "", ErrNoManifest
	}

	dest := CompiledPath(root)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create build dir: %w", err)
	}

	err := writeZipAtomic(dest, func(w *zip.Writer) error {
		return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			if isSignatureFile(name) {
				return nil
			}
			return addFile(w, p, name)
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to package %s: %w", root, err)
	}
	return dest, nil
}

func addFile(w *zip.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = methodFor(name)

	dst, err := w.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}

var storedExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".ogg": true, ".mp3": true, ".mp4": true, ".arsc": true,
}

// methodFor keeps already-compressed media and the resource table
// uncompressed.
func methodFor(name string) uint16 {
	if storedExts[strings.ToLower(path.Ext(name))] {
		return zip.Store
	}
	return zip.Deflate
}

// writeZipAtomic builds a zip in a temp file next to dest and renames it
// into place only when fill succeeds.
func writeZipAtomic(dest string, fill func(w *zip.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".build-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w := zip.NewWriter(tmp)
	if err := fill(w); err != nil {
		w.Close()
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (a *ArchiveCollaborator) Sign(ctx context.Context, artifactPath, outPath string) error {
	a.once.Do(func() {
		if a.signer == nil {
			a.signer, a.signErr = NewEphemeralSigner("APK Studio Debug")
		}
	})
	if a.signErr != nil {
		return fmt.Errorf("failed to create signing identity: %w", a.signErr)
	}
	if requireFile(artifactPath) != nil {
		return ErrNotCompiled
	}
	return a.signer.SignArchive(ctx, artifactPath, outPath)
}

// Describe reads package facts from a plain-text manifest. Binary
// manifests, as found in untouched archives, yield no facts.
func (a *ArchiveCollaborator) Describe(root string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, err
	}
	facts := map[string]string{}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil || doc.Root() == nil {
		return facts, nil
	}
	manifest := doc.Root()
	if v := manifest.SelectAttrValue("android:versionName", ""); v != "" {
		facts[FactVersionName] = v
	}
	if sdk := manifest.SelectElement("uses-sdk"); sdk != nil {
		if v := sdk.SelectAttrValue("android:minSdkVersion", ""); v != "" {
			facts[FactMinSDK] = v
		}
		if v := sdk.SelectAttrValue("android:targetSdkVersion", ""); v != "" {
			facts[FactTargetSDK] = v
		}
	}
	return facts, nil
}

// isSignatureFile matches JAR signature material under META-INF.
func isSignatureFile(name string) bool {
	dir, file := path.Split(name)
	if !strings.EqualFold(dir, "META-INF/") {
		return false
	}
	upper := strings.ToUpper(file)
	if upper == "MANIFEST.MF" {
		return true
	}
	for _, ext := range []string{".SF", ".RSA", ".DSA", ".EC"} {
		if strings.HasSuffix(upper, ext) {
			return true
		}
	}
	return false
}
