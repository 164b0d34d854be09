package manifest

import (
	"fmt"
	"hash/crc32"
	"strings"
)

// Extension is appended to every manifest key.
const Extension = ".manifest"

// Namer derives manifest file names from page identifiers. Salt namespaces the
// checksum so the same identifier hashed elsewhere does not share a name.
type Namer struct {
	Salt string
}

// Key returns the lowercase hex crc32 of id+salt, without zero padding.
func (n Namer) Key(id string) string {
	return fmt.Sprintf("%x", crc32.ChecksumIEEE([]byte(id+n.Salt)))
}

// Filename returns the manifest file name for id.
func (n Namer) Filename(id string) string {
	return n.Key(id) + Extension
}

// URL returns the value for the page's <html manifest> attribute. Relative
// URLs are the bare file name; absolute ones are prefixed with baseURL.
func (n Namer) URL(id string, relative bool, baseURL string) string {
	if relative {
		return n.Filename(id)
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + n.Filename(id)
}
