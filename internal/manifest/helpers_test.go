package manifest

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/store"
)

const (
	testWebRoot = "/srv/www"
	testSalt    = "appcache-hub/manifest.Filter"
)

var fixedNow = time.Unix(1_700_000_000, 0)

type testEnv struct {
	fs    afero.Fs
	store *countingStore
	gen   *Generator
	namer Namer
}

// newTestEnv builds a Generator over an in-memory web root that also holds
// the manifests, mirroring the default layout.
func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(testWebRoot, 0o755))

	st, err := store.NewStore(fsys, testWebRoot)
	require.NoError(t, err)
	counting := &countingStore{Store: st}

	namer := Namer{Salt: testSalt}
	gen, err := NewGenerator(Options{
		Store:  counting,
		Assets: fsys,
		Namer:  namer,
		Base:   NewBase(baseURL, testWebRoot),
		Logger: logging.Discard(),
		Now:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return &testEnv{fs: fsys, store: counting, gen: gen, namer: namer}
}

func (e *testEnv) writeAsset(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(testWebRoot, filepath.FromSlash(rel))
	require.NoError(t, e.fs.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, afero.WriteFile(e.fs, p, []byte(content), 0o644))
}

func (e *testEnv) readManifest(t *testing.T, id string) string {
	t.Helper()
	body, err := afero.ReadFile(e.fs, filepath.Join(testWebRoot, e.namer.Filename(id)))
	require.NoError(t, err)
	return string(body)
}

func (e *testEnv) manifestExists(id string) bool {
	ok, _ := afero.Exists(e.fs, filepath.Join(testWebRoot, e.namer.Filename(id)))
	return ok
}

// countingStore counts successful writes.
type countingStore struct {
	store.Store
	puts    atomic.Int32
	updates atomic.Int32
}

func (c *countingStore) Put(ctx context.Context, name string, body io.Reader, opts store.PutOptions) (*store.Entry, error) {
	entry, err := c.Store.Put(ctx, name, body, opts)
	if err == nil {
		c.puts.Add(1)
	}
	return entry, err
}

func (c *countingStore) Update(ctx context.Context, name string, fn func([]byte) ([]byte, error)) (*store.Entry, error) {
	entry, err := c.Store.Update(ctx, name, fn)
	if err == nil {
		c.updates.Add(1)
	}
	return entry, err
}

var errDiskFull = errors.New("disk full")

// failingStore reads through but refuses every write.
type failingStore struct {
	store.Store
}

func (f failingStore) Put(context.Context, string, io.Reader, store.PutOptions) (*store.Entry, error) {
	return nil, errDiskFull
}

func (f failingStore) Update(ctx context.Context, name string, fn func([]byte) ([]byte, error)) (*store.Entry, error) {
	body, _, err := store.ReadAll(ctx, f.Store, name)
	if err != nil {
		return nil, err
	}
	if _, err := fn(body); err != nil {
		return nil, err
	}
	return nil, errDiskFull
}

// panickingStore blows up on every read.
type panickingStore struct {
	store.Store
}

func (panickingStore) Get(context.Context, string) (*store.ReadResult, error) {
	panic("store exploded")
}
