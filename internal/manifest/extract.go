package manifest

import (
	"regexp"
	"strings"
)

// The patterns tolerate unquoted and half-quoted attribute values; tags that
// never close simply do not match.
var (
	linkHrefPattern  = regexp.MustCompile(`<link [^>]*href="?([^">]+)"?`)
	scriptSrcPattern = regexp.MustCompile(`<script [^>]*src="?([^">]+)"?`)
	imgSrcPattern    = regexp.MustCompile(`<img [^>]*src="?([^">]+)"?`)
)

const dataScheme = "data:"

// Stylesheets returns every <link href> value in document order.
func Stylesheets(html []byte) []string {
	return submatches(linkHrefPattern, html)
}

// Scripts returns every <script src> value in document order.
func Scripts(html []byte) []string {
	return submatches(scriptSrcPattern, html)
}

// Images returns every <img src> value except inline data: URIs.
func Images(html []byte) []string {
	all := submatches(imgSrcPattern, html)
	out := all[:0]
	for _, src := range all {
		if !strings.HasPrefix(src, dataScheme) {
			out = append(out, src)
		}
	}
	return out
}

func submatches(re *regexp.Regexp, html []byte) []string {
	matches := re.FindAllSubmatch(html, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, string(m[1]))
	}
	return out
}

// entrySet is an insertion-ordered set keyed by exact string equality.
type entrySet struct {
	seen  map[string]struct{}
	items []string
}

func newEntrySet() *entrySet {
	return &entrySet{seen: make(map[string]struct{})}
}

// add ignores empty values, which is where failed conversions end up.
func (s *entrySet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *entrySet) list() []string {
	return append([]string(nil), s.items...)
}
