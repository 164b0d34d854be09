// Package store defines the file store that holds generated manifests under
// ManifestDir/<name>. Writes go through a temp file + rename so browsers never
// fetch a half-written manifest, and Update serialises read-modify-write cycles
// per name so concurrent invalidations of one manifest do not lose a bump.
// The store sits on an afero.Fs: the server passes the OS filesystem, tests
// pass an in-memory one.
package store
