package janitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/codegen"
)

type failingSweeper struct{}

func (failingSweeper) Sweep(context.Context) (int, error) { return 0, errors.New("boom") }

func TestNew_RejectsBadSchedule(t *testing.T) {
	_, err := New(Options{Schedule: "not a schedule", Retention: time.Hour})
	require.Error(t, err)

	_, err = New(Options{Retention: 0})
	require.Error(t, err)
}

func TestRunOnce_PrunesOldUploads(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.apk")
	fresh := filepath.Join(dir, "fresh.apk")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	j, err := New(Options{UploadDir: dir, Retention: 24 * time.Hour})
	require.NoError(t, err)

	rep := j.RunOnce(context.Background())
	assert.Equal(t, 1, rep.UploadsRemoved)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestRunOnce_SweepsGenerations(t *testing.T) {
	ctx := context.Background()
	store := codegen.NewMemoryStore(time.Millisecond)
	require.NoError(t, store.Save(ctx, &codegen.Generation{ID: "g1", CreatedAt: time.Now().Add(-time.Hour)}))

	j, err := New(Options{
		UploadDir: filepath.Join(t.TempDir(), "missing"),
		Retention: time.Hour,
		Sweepers:  []Sweeper{failingSweeper{}, store},
	})
	require.NoError(t, err)

	rep := j.RunOnce(ctx)
	assert.Equal(t, 0, rep.UploadsRemoved)
	assert.Equal(t, 1, rep.Swept)
}

func TestStartStop(t *testing.T) {
	j, err := New(Options{Schedule: "@every 1h", Retention: time.Hour})
	require.NoError(t, err)
	j.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
}
