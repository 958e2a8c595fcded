package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

func TestLoadKeystore(t *testing.T) {
	identity, err := NewEphemeralSigner("release")
	require.NoError(t, err)

	p12, err := gop12.Modern.Encode(identity.PrivateKey, identity.Certificate, nil, "s3cret")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "release.p12")
	require.NoError(t, os.WriteFile(path, p12, 0o600))

	loaded, err := LoadKeystoreFile(path, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, identity.Certificate.Raw, loaded.Certificate.Raw)
	assert.True(t, identity.PrivateKey.Equal(loaded.PrivateKey))

	_, err = LoadKeystore(p12, "wrong")
	require.Error(t, err)
}

func TestSignArchive_Cancelled(t *testing.T) {
	identity, err := NewEphemeralSigner("debug")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(t.TempDir(), "signed.apk")
	err = identity.SignArchive(ctx, sampleArchive(t), out)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseApktoolMeta(t *testing.T) {
	data := []byte(`!!brut.androlib.meta.MetaInfo
apkFileName: pad.apk
sdkInfo:
  minSdkVersion: '21'
  targetSdkVersion: '33'
versionInfo:
  versionCode: '12'
  versionName: 1.0
`)
	facts, err := parseApktoolMeta(data)
	require.NoError(t, err)
	assert.Equal(t, "1.0", facts[FactVersionName])
	assert.Equal(t, "21", facts[FactMinSDK])
	assert.Equal(t, "33", facts[FactTargetSDK])
}

func TestNew(t *testing.T) {
	c, err := New("archive", nil, ApktoolOptions{})
	require.NoError(t, err)
	assert.IsType(t, &ArchiveCollaborator{}, c)

	c, err = New("apktool", nil, ApktoolOptions{})
	require.NoError(t, err)
	assert.IsType(t, &ApktoolCollaborator{}, c)

	_, err = New("gradle", nil, ApktoolOptions{})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestApktool_Decompile(t *testing.T) {
	// d -f -o <root> <archive>
	bin := fakeTool(t, `mkdir -p "$4" && echo '<manifest/>' > "$4/AndroidManifest.xml"`)
	a := NewApktool(ApktoolOptions{ApktoolBin: bin})

	work := t.TempDir()
	root, err := a.Decompile(context.Background(), "app.apk", work)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, ManifestName))
}

func TestApktool_FailureCarriesStderr(t *testing.T) {
	bin := fakeTool(t, `echo "brut.androlib.AndrolibException: bad resource" >&2; exit 1`)
	a := NewApktool(ApktoolOptions{ApktoolBin: bin})

	_, err := a.Compile(context.Background(), filepath.Join(t.TempDir(), DecompiledDir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad resource")
}

func TestApktool_SignRequiresKeystore(t *testing.T) {
	err := NewApktool(ApktoolOptions{}).Sign(context.Background(), "in.apk", "out.apk")
	require.Error(t, err)
}
