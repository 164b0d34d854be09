package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLayout(t *testing.T) {
	t.Parallel()

	got := Render([]string{"/a.css", "/b.js"}, 1234)
	assert.Equal(t, "CACHE MANIFEST\n# 1234\nCACHE:\n/a.css\n/b.js\n", string(got))
	assert.Equal(t, "CACHE MANIFEST\n# 5\nCACHE:\n", string(Render(nil, 5)))
}

func TestVersionAndEntriesRoundTrip(t *testing.T) {
	t.Parallel()

	content := Render([]string{"/a.css", "https://cdn.example.net/x.js"}, 1700000000)
	v, ok := Version(content)
	require.True(t, ok)
	assert.EqualValues(t, 1700000000, v)
	assert.Equal(t, []string{"/a.css", "https://cdn.example.net/x.js"}, Entries(content))
}

func TestVersionRejectsMalformedLine(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "CACHE MANIFEST", "CACHE MANIFEST\nv1\n", "CACHE MANIFEST\n# abc\n"} {
		_, ok := Version([]byte(content))
		assert.False(t, ok, "content %q", content)
	}
}

func TestEntriesToleratesCRLF(t *testing.T) {
	t.Parallel()

	content := []byte("CACHE MANIFEST\r\n# 1\r\nCACHE:\r\n/a.css\r\n\r\n/b.css\r\n")
	assert.Equal(t, []string{"/a.css", "/b.css"}, Entries(content))
}

func TestBumpVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		now     int64
		want    string
		wantTS  int64
	}{
		{
			name:    "older token takes now",
			content: "CACHE MANIFEST\n# 1000\nCACHE:\n/a.css\n",
			now:     2000,
			want:    "CACHE MANIFEST\n# 2000\nCACHE:\n/a.css\n",
			wantTS:  2000,
		},
		{
			name:    "same second still advances",
			content: "CACHE MANIFEST\n# 2000\nCACHE:\n",
			now:     2000,
			want:    "CACHE MANIFEST\n# 2001\nCACHE:\n",
			wantTS:  2001,
		},
		{
			name:    "future token advances by one",
			content: "CACHE MANIFEST\n# 9000\nCACHE:\n",
			now:     2000,
			want:    "CACHE MANIFEST\n# 9001\nCACHE:\n",
			wantTS:  9001,
		},
		{
			name:    "unparseable token is replaced",
			content: "CACHE MANIFEST\nstale\nCACHE:\n",
			now:     2000,
			want:    "CACHE MANIFEST\n# 2000\nCACHE:\n",
			wantTS:  2000,
		},
		{
			name:    "single line file is padded",
			content: "CACHE MANIFEST",
			now:     2000,
			want:    "CACHE MANIFEST\n# 2000",
			wantTS:  2000,
		},
		{
			name:    "carriage return kept",
			content: "CACHE MANIFEST\r\n# 1\r\nCACHE:\r\n",
			now:     2000,
			want:    "CACHE MANIFEST\r\n# 2000\r\nCACHE:\r\n",
			wantTS:  2000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ts := bumpVersion([]byte(tt.content), tt.now)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.wantTS, ts)
		})
	}
}
