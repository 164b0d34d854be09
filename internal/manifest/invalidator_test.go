package manifest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appcache-hub/appcache-hub/internal/logging"
)

func newTestInvalidator(env *testEnv) *Invalidator {
	inv := NewInvalidator(env.store, env.namer, logging.Discard())
	inv.now = func() time.Time { return fixedNow }
	return inv
}

func (e *testEnv) writeManifest(t *testing.T, id, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.fs, filepath.Join(testWebRoot, e.namer.Filename(id)), []byte(content), 0o644))
}

func TestInvalidateRewritesVersionLine(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	env.writeManifest(t, "home", "CACHE MANIFEST\n# 1000\nCACHE:\n/a.css\n/b.js\n")

	found, err := newTestInvalidator(env).Invalidate(context.Background(), "home")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "CACHE MANIFEST\n# 1700000000\nCACHE:\n/a.css\n/b.js\n", env.readManifest(t, "home"))
}

func TestInvalidateTwiceInSameSecondChangesContent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	seedSite(t, env)
	require.Equal(t, StatusCreated, env.gen.Generate(context.Background(), Request{ID: "home", HTML: []byte(homePage)}).Status)
	generated := env.readManifest(t, "home")

	inv := newTestInvalidator(env)
	_, err := inv.Invalidate(context.Background(), "home")
	require.NoError(t, err)
	first := env.readManifest(t, "home")
	_, err = inv.Invalidate(context.Background(), "home")
	require.NoError(t, err)
	second := env.readManifest(t, "home")

	assert.NotEqual(t, generated, first)
	assert.NotEqual(t, first, second)
	v, ok := Version([]byte(second))
	require.True(t, ok)
	assert.EqualValues(t, fixedNow.Unix()+2, v)
	assert.Equal(t, Entries([]byte(generated)), Entries([]byte(second)))
}

func TestInvalidateMissingManifestIsNoop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	found, err := newTestInvalidator(env).Invalidate(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, env.manifestExists("ghost"))
	assert.Zero(t, env.store.updates.Load())
}

func TestInvalidateEmptyManifestIsNoop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	env.writeManifest(t, "home", "")

	found, err := newTestInvalidator(env).Invalidate(context.Background(), "home")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "", env.readManifest(t, "home"))
}

func TestInvalidateSurfacesWriteFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	env.writeManifest(t, "home", "CACHE MANIFEST\n# 1000\nCACHE:\n")

	inv := NewInvalidator(failingStore{Store: env.store}, env.namer, nil)
	found, err := inv.Invalidate(context.Background(), "home")
	assert.True(t, found)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, "CACHE MANIFEST\n# 1000\nCACHE:\n", env.readManifest(t, "home"))
}

func TestInvalidateAllCountsExistingManifests(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	env.writeManifest(t, "home", "CACHE MANIFEST\n# 1\nCACHE:\n")
	env.writeManifest(t, "about", "CACHE MANIFEST\n# 1\nCACHE:\n")

	count, err := newTestInvalidator(env).InvalidateAll(context.Background(), []string{"home", "missing", "about"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Contains(t, env.readManifest(t, "about"), "# 1700000000\n")
}

func TestInvalidateAllJoinsFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	env.writeManifest(t, "home", "CACHE MANIFEST\n# 1\nCACHE:\n")
	env.writeManifest(t, "about", "CACHE MANIFEST\n# 1\nCACHE:\n")

	inv := NewInvalidator(failingStore{Store: env.store}, env.namer, nil)
	count, err := inv.InvalidateAll(context.Background(), []string{"home", "about"})
	assert.Zero(t, count)
	assert.ErrorIs(t, err, errDiskFull)
	assert.ErrorContains(t, err, env.namer.Filename("about"))
}

func TestInspectReportsManifestState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "/")
	seedSite(t, env)
	env.gen.Generate(context.Background(), Request{ID: "home", HTML: []byte(homePage)})

	info, err := Inspect(context.Background(), env.store, env.namer, "home")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, "894560e5.manifest", info.Filename)
	assert.EqualValues(t, fixedNow.Unix(), info.Version)
	assert.Equal(t, 5, info.Entries)

	missing, err := Inspect(context.Background(), env.store, env.namer, "ghost")
	require.NoError(t, err)
	assert.False(t, missing.Exists)
	assert.Zero(t, missing.Entries)
}
