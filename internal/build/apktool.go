package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ApktoolOptions names the external tools and signing key used by
// ApktoolCollaborator.
type ApktoolOptions struct {
	ApktoolBin       string
	ApksignerBin     string
	KeystorePath     string
	KeystorePassword string
	KeyAlias         string
}

// ApktoolCollaborator shells out to apktool for decompile/compile and to
// apksigner for signing.
type ApktoolCollaborator struct {
	opts ApktoolOptions
}

func NewApktool(opts ApktoolOptions) *ApktoolCollaborator {
	if opts.ApktoolBin == "" {
		opts.ApktoolBin = "apktool"
	}
	if opts.ApksignerBin == "" {
		opts.ApksignerBin = "apksigner"
	}
	return &ApktoolCollaborator{opts: opts}
}

func (a *ApktoolCollaborator) Decompile(ctx context.Context, archivePath, workDir string) (string, error) {
	root := filepath.Join(workDir, DecompiledDir)
	if _, err := runTool(ctx, a.opts.ApktoolBin, "d", "-f", "-o", root, archivePath); err != nil {
		return "", err
	}
	if requireFile(filepath.Join(root, ManifestName)) != nil {
		return "", ErrNoManifest
	}
	return root, nil
}

func (a *ApktoolCollaborator) Compile(ctx context.Context, root string) (string, error) {
	dest := CompiledPath(root)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create build dir: %w", err)
	}
	if _, err := runTool(ctx, a.opts.ApktoolBin, "b", "-o", dest, root); err != nil {
		return "", err
	}
	return dest, nil
}

func (a *ApktoolCollaborator) Sign(ctx context.Context, artifactPath, outPath string) error {
	if a.opts.KeystorePath == "" {
		return fmt.Errorf("apksigner: keystore path not configured")
	}
	if requireFile(artifactPath) != nil {
		return ErrNotCompiled
	}
	args := []string{"sign",
		"--ks", a.opts.KeystorePath,
		"--ks-pass", "pass:" + a.opts.KeystorePassword,
		"--out", outPath,
	}
	if a.opts.KeyAlias != "" {
		args = append(args, "--ks-key-alias", a.opts.KeyAlias)
	}
	args = append(args, artifactPath)
	_, err := runTool(ctx, a.opts.ApksignerBin, args...)
	return err
}

type apktoolMeta struct {
	SdkInfo struct {
		MinSdkVersion    string `yaml:"minSdkVersion"`
		TargetSdkVersion string `yaml:"targetSdkVersion"`
	} `yaml:"sdkInfo"`
	VersionInfo struct {
		VersionCode string `yaml:"versionCode"`
		VersionName string `yaml:"versionName"`
	} `yaml:"versionInfo"`
}

// Describe reads apktool.yml from a decompiled tree.
func (a *ApktoolCollaborator) Describe(root string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(root, "apktool.yml"))
	if err != nil {
		return nil, err
	}
	return parseApktoolMeta(data)
}

func parseApktoolMeta(data []byte) (map[string]string, error) {
	// apktool writes a "!!brut.androlib..." tag on the first line.
	if i := bytes.IndexByte(data, '\n'); i >= 0 && bytes.HasPrefix(data, []byte("!!")) {
		data = data[i+1:]
	}
	var meta apktoolMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse apktool.yml: %w", err)
	}
	facts := map[string]string{}
	if meta.VersionInfo.VersionName != "" {
		facts[FactVersionName] = meta.VersionInfo.VersionName
	}
	if meta.SdkInfo.MinSdkVersion != "" {
		facts[FactMinSDK] = meta.SdkInfo.MinSdkVersion
	}
	if meta.SdkInfo.TargetSdkVersion != "" {
		facts[FactTargetSDK] = meta.SdkInfo.TargetSdkVersion
	}
	return facts, nil
}

func runTool(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", filepath.Base(bin), args[0], msg)
	}
	return stdout.Bytes(), nil
}
