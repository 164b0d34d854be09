package manifest

import (
	"path/filepath"
	"strings"
)

// Base pairs the public URL prefix of the web root with its filesystem path.
type Base struct {
	// URL always ends in "/".
	URL string
	// Path is the cleaned absolute web root, without trailing separator.
	Path string
}

// NewBase normalises baseURL ("" and "/" both mean the site root) and webRoot.
func NewBase(baseURL, webRoot string) Base {
	b := Base{URL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/") + "/"}
	if strings.TrimSpace(webRoot) != "" {
		b.Path = filepath.Clean(webRoot)
	}
	return b
}

// URLToPath maps a URL under b.URL to a file under b.Path. Query strings and
// fragments are dropped. URLs outside the prefix, or resolving outside the
// web root, do not map.
func (b Base) URLToPath(u string) (string, bool) {
	if b.URL == "" || b.Path == "" || !strings.HasPrefix(u, b.URL) {
		return "", false
	}
	rel := u[len(b.URL):]
	if idx := strings.IndexAny(rel, "?#"); idx >= 0 {
		rel = rel[:idx]
	}
	p := filepath.Join(b.Path, filepath.FromSlash(rel))
	if !b.contains(p) {
		return "", false
	}
	return p, true
}

// PathToURL is the inverse of URLToPath.
func (b Base) PathToURL(p string) (string, bool) {
	if b.URL == "" || b.Path == "" {
		return "", false
	}
	p = filepath.Clean(p)
	if !b.contains(p) {
		return "", false
	}
	rel, err := filepath.Rel(b.Path, p)
	if err != nil || rel == "." {
		return "", false
	}
	return b.URL + filepath.ToSlash(rel), true
}

// Relative strips b.URL from u; URLs without the prefix are returned unchanged.
func (b Base) Relative(u string) string {
	if b.URL != "" && strings.HasPrefix(u, b.URL) {
		return u[len(b.URL):]
	}
	return u
}

func (b Base) contains(p string) bool {
	return p == b.Path || strings.HasPrefix(p, b.Path+string(filepath.Separator)) ||
		(strings.HasSuffix(b.Path, string(filepath.Separator)) && strings.HasPrefix(p, b.Path))
}
