package manifest

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	// Header is the mandatory first line of every manifest.
	Header       = "CACHE MANIFEST"
	cacheSection = "CACHE:"
)

// Render produces the manifest text for entries with the given version token.
func Render(entries []string, version int64) []byte {
	var b bytes.Buffer
	b.WriteString(Header)
	b.WriteString("\n# ")
	b.WriteString(strconv.FormatInt(version, 10))
	b.WriteString("\n")
	b.WriteString(cacheSection)
	b.WriteString("\n")
	for _, entry := range entries {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	return b.Bytes()
}

// Version parses the timestamp on the second line.
func Version(content []byte) (int64, bool) {
	lines := strings.SplitN(string(content), "\n", 3)
	if len(lines) < 2 {
		return 0, false
	}
	line := strings.TrimSpace(lines[1])
	if !strings.HasPrefix(line, "#") {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Entries returns the non-empty lines after the CACHE: section marker.
func Entries(content []byte) []string {
	lines := strings.Split(string(content), "\n")
	var out []string
	inCache := false
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if !inCache {
			inCache = strings.TrimSpace(line) == cacheSection
			continue
		}
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// bumpVersion replaces line 1 with "# <ts>", where ts is now or, if the
// current token is not older than now, the current token plus one. Files
// shorter than two lines are padded. A trailing "\r" on the old line is kept.
func bumpVersion(content []byte, now int64) ([]byte, int64) {
	lines := strings.Split(string(content), "\n")
	for len(lines) < 2 {
		lines = append(lines, "")
	}

	ts := now
	if prev, ok := Version(content); ok && prev >= ts {
		ts = prev + 1
	}

	line := "# " + strconv.FormatInt(ts, 10)
	if strings.HasSuffix(lines[1], "\r") {
		line += "\r"
	}
	lines[1] = line
	return []byte(strings.Join(lines, "\n")), ts
}
