package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/appcache-hub/appcache-hub/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testDebounce = 100 * time.Millisecond
	waitTimeout  = 3 * time.Second
	quietPeriod  = 4 * testDebounce
)

// startWatcher runs a Watcher on a fresh directory and returns the channel
// its callback signals on.
func startWatcher(t *testing.T) (string, <-chan struct{}) {
	t.Helper()
	dir := t.TempDir()
	changes := make(chan struct{}, 16)

	w, err := New(dir, testDebounce, logging.Discard(), func(context.Context) {
		changes <- struct{}{}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return dir, changes
}

func waitChange(t *testing.T, changes <-chan struct{}) {
	t.Helper()
	select {
	case <-changes:
	case <-time.After(waitTimeout):
		t.Fatal("expected a change notification")
	}
}

func expectQuiet(t *testing.T, changes <-chan struct{}) {
	t.Helper()
	select {
	case <-changes:
		t.Fatal("unexpected change notification")
	case <-time.After(quietPeriod):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir, changes := startWatcher(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte{byte('a' + i)}, 0o644))
	}
	waitChange(t, changes)
	expectQuiet(t, changes)
}

func TestWatcherIgnoresManifestsAndTempFiles(t *testing.T) {
	dir, changes := startWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "894560e5.manifest"), []byte("CACHE MANIFEST\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".manifest-42"), []byte("partial"), 0o644))
	expectQuiet(t, changes)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir, changes := startWatcher(t)

	sub := filepath.Join(dir, "img")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitChange(t, changes)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "logo.png"), []byte("png"), 0o644))
	waitChange(t, changes)
}

func TestWatcherWatchesExistingSubdirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "css", "vendor")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	changes := make(chan struct{}, 4)
	w, err := New(dir, testDebounce, nil, func(context.Context) { changes <- struct{}{} })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(nested, "lib.css"), []byte("x"), 0o644))
	waitChange(t, changes)

	cancel()
	require.NoError(t, <-done)
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), testDebounce, nil, func(context.Context) {})
	require.Error(t, err)

	_, err = New(t.TempDir(), testDebounce, nil, nil)
	require.Error(t, err)
}

func TestCloseWithoutRun(t *testing.T) {
	w, err := New(t.TempDir(), 0, nil, func(context.Context) {})
	require.NoError(t, err)
	require.Equal(t, DefaultDebounce, w.debounce)
	require.NoError(t, w.Close())
}
