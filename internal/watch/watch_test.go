package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/containeros/internal/watch"
)

func TestWatcher_CoalescesChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "targets.yaml")
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 1.0.0\n"), 0o644))
	require.NoError(t, os.MkdirAll(templates, 0o755))

	calls := make(chan []string, 4)

	w, err := watch.New(watch.Opts{
		Paths:    []string{manifestPath, templates},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 1.0.1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "ubuntu.Dockerfile.tmpl"), []byte("FROM x\n"), 0o644))
	// Not watched: a sibling of the manifest.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case changed := <-calls:
		assert.Contains(t, changed, manifestPath)
		assert.NotContains(t, changed, filepath.Join(dir, "notes.txt"))
	case <-time.After(5 * time.Second):
		t.Fatal("callback did not fire")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestNew_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := watch.New(watch.Opts{Paths: []string{filepath.Join(t.TempDir(), "nope", "file.yaml")}})
	require.Error(t, err)
}
