// Package manifest builds and maintains application-cache manifests.
//
// A Generator scans a page's rendered HTML for stylesheets, scripts and images,
// expands every stylesheet directory into the files it contains, and writes
//
//	CACHE MANIFEST
//	# <unix-timestamp>
//	CACHE:
//	<entry>
//	...
//
// to <ManifestDir>/<crc32(id+salt)>.manifest the first time the page renders.
// Existing non-empty manifests are never regenerated; an Invalidator rewrites
// only the timestamp line so browsers see changed bytes and refetch the
// listed assets. Filter ties both to page rendering through hooks.Hooks.
//
// Generation never fails a page: every error ends in a log line and a metric.
// Two first renders of the same page may both write; each write replaces the
// file atomically, so readers see one complete manifest. Invalidation is
// serialised per file inside one process only.
package manifest
