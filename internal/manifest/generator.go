package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/store"
)

// Status is the result of one Generate call.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Request describes one page render handed to the Generator.
type Request struct {
	ID   string
	HTML []byte
	// Extra entries are appended verbatim after the HTML-derived ones.
	Extra []string
	// Relative strips the base URL from entries that carry it.
	Relative bool
}

// Outcome reports what Generate did. Err is informational; Generate has
// already logged it.
type Outcome struct {
	ID       string
	Filename string
	Status   Status
	Entries  []string
	Err      error
}

// Options wires a Generator to its filesystem and naming.
type Options struct {
	// Store receives the manifest files.
	Store store.Store
	// Assets is the filesystem the web root lives on.
	Assets afero.Fs
	Namer  Namer
	Base   Base
	Logger *logrus.Logger
	Now    func() time.Time
}

// Generator writes a manifest the first time a page is rendered.
type Generator struct {
	store  store.Store
	assets afero.Fs
	namer  Namer
	base   Base
	logger *logrus.Logger
	now    func() time.Time
}

// NewGenerator validates opts and fills in the clock and logger defaults.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Store == nil {
		return nil, errors.New("manifest store is required")
	}
	if opts.Assets == nil {
		return nil, errors.New("asset filesystem is required")
	}
	if opts.Base.Path == "" {
		return nil, errors.New("web root is required")
	}
	g := &Generator{
		store:  opts.Store,
		assets: opts.Assets,
		namer:  opts.Namer,
		base:   opts.Base,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if g.logger == nil {
		g.logger = logging.Discard()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// Namer returns the naming scheme the Generator writes with.
func (g *Generator) Namer() Namer {
	return g.namer
}

// Base returns the URL/path pair used for reconciliation.
func (g *Generator) Base() Base {
	return g.base
}

// ManifestURL returns the <html manifest> value for id.
func (g *Generator) ManifestURL(id string, relative bool) string {
	return g.namer.URL(id, relative, g.base.URL)
}

// Generate creates the manifest for req.ID unless a non-empty one already
// exists. It never returns an error and recovers from panics: a page must
// render even when its manifest cannot be written.
func (g *Generator) Generate(ctx context.Context, req Request) (out Outcome) {
	started := time.Now()
	out = Outcome{ID: req.ID, Filename: g.namer.Filename(req.ID)}
	fields := logging.ManifestFields("manifest_generate", req.ID, out.Filename)

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailed
			out.Err = fmt.Errorf("manifest generation panicked: %v", r)
		}
		Generations.WithLabelValues(string(out.Status)).Inc()
		GenerationDuration.Observe(time.Since(started).Seconds())

		switch out.Status {
		case StatusCreated:
			ManifestEntries.Observe(float64(len(out.Entries)))
			g.logger.WithFields(fields).WithField("entries", len(out.Entries)).Info("manifest_created")
		case StatusSkipped:
			g.logger.WithFields(fields).Debug("manifest_exists")
		default:
			g.logger.WithFields(fields).WithError(out.Err).Error("manifest_generate_failed")
		}
	}()

	if g.exists(ctx, out.Filename, fields) {
		out.Status = StatusSkipped
		return out
	}

	entries := g.Collect(req.HTML, req.Relative)
	entries = append(entries, req.Extra...)

	body := Render(entries, g.now().Unix())
	if _, err := g.store.Put(ctx, out.Filename, bytes.NewReader(body), store.PutOptions{}); err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("write manifest %s: %w", out.Filename, err)
		return out
	}

	out.Status = StatusCreated
	out.Entries = entries
	return out
}

// exists reports whether a non-empty manifest is already stored. Read errors
// other than not-found are logged and treated as absent.
func (g *Generator) exists(ctx context.Context, name string, fields logrus.Fields) bool {
	body, _, err := store.ReadAll(ctx, g.store, name)
	switch {
	case err == nil:
		return len(body) > 0
	case errors.Is(err, store.ErrNotFound):
		return false
	default:
		g.logger.WithFields(fields).WithError(err).Warn("manifest_read_failed")
		return false
	}
}

// Collect extracts the deduplicated asset list for html: stylesheets with
// their directory contents, then scripts, then non-inline images.
func (g *Generator) Collect(html []byte, relative bool) []string {
	set := newEntrySet()
	scanned := make(map[string]struct{})

	for _, href := range Stylesheets(html) {
		set.add(href)
		p, ok := g.base.URLToPath(href)
		if !ok {
			continue
		}
		dir := filepath.Dir(p)
		if _, done := scanned[dir]; done {
			continue
		}
		if !g.isDir(dir) {
			continue
		}
		scanned[dir] = struct{}{}
		for _, file := range g.listFiles(dir) {
			if u, ok := g.base.PathToURL(file); ok {
				set.add(u)
			}
		}
	}

	for _, src := range Scripts(html) {
		set.add(src)
	}
	for _, src := range Images(html) {
		set.add(src)
	}

	entries := set.list()
	if !relative {
		return entries
	}
	out := entries[:0]
	for _, entry := range entries {
		// The site root itself strips to an empty line, which is not listed.
		if rel := g.base.Relative(entry); rel != "" {
			out = append(out, rel)
		}
	}
	return out
}

func (g *Generator) isDir(p string) bool {
	info, err := g.assets.Stat(p)
	return err == nil && info.IsDir()
}

// listFiles walks dir recursively and returns regular files in lexical order.
// Unreadable entries, manifests and in-flight temp files are skipped.
func (g *Generator) listFiles(dir string) []string {
	var files []string
	_ = afero.Walk(g.assets, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.Mode().IsRegular() && filepath.Ext(p) != Extension && !store.IsTempFile(p) {
			files = append(files, p)
		}
		return nil
	})
	return files
}
