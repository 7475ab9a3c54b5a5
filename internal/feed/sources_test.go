package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feedagg/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func categoryNames(s Sources) []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		names = append(names, c.Name)
	}
	return names
}

func TestDefaultSources(t *testing.T) {
	s := DefaultSources()
	assert.Equal(t, []string{"deals", "news", "tech", "entertainment"}, categoryNames(s))
	for _, c := range s {
		assert.NotEmpty(t, c.URLs, c.Name)
	}

	s[0].URLs[0] = "mutated"
	assert.NotEqual(t, "mutated", DefaultSources()[0].URLs[0], "each call returns a fresh copy")
}

func TestLoadSourcesFile(t *testing.T) {
	dir := t.TempDir()
	defaults := categoryNames(DefaultSources())

	tests := []struct {
		name      string
		path      string
		wantNames []string
		check     func(t *testing.T, s Sources)
	}{
		{
			name:      "empty path",
			path:      "",
			wantNames: defaults,
		},
		{
			name:      "missing file",
			path:      filepath.Join(dir, "nope.json"),
			wantNames: defaults,
		},
		{
			name:      "malformed json",
			path:      writeFile(t, dir, "bad.json", `{"tech": ["a",`),
			wantNames: defaults,
		},
		{
			name:      "trailing comma",
			path:      writeFile(t, dir, "comma.json", `{"a": ["https://a.test/feed"],}`),
			wantNames: defaults,
		},
		{
			name:      "trailing bytes",
			path:      writeFile(t, dir, "trailing.json", `{"a": ["https://a.test/feed"]} garbage`),
			wantNames: defaults,
		},
		{
			name:      "top level array",
			path:      writeFile(t, dir, "array.json", `["https://a.test/feed"]`),
			wantNames: defaults,
		},
		{
			name:      "no usable categories",
			path:      writeFile(t, dir, "empty.json", `{"tech": "https://a.test/feed", "n": 3}`),
			wantNames: defaults,
		},
		{
			name:      "file order preserved",
			path:      writeFile(t, dir, "ok.json", `{"zeta": ["https://z.test/feed"], "alpha": ["https://a.test/1", "https://a.test/2"]}`),
			wantNames: []string{"zeta", "alpha"},
			check: func(t *testing.T, s Sources) {
				assert.Equal(t, []string{"https://a.test/1", "https://a.test/2"}, s[1].URLs)
			},
		},
		{
			name:      "non-array categories omitted",
			path:      writeFile(t, dir, "mixed.json", `{"tech": ["https://t.test/feed"], "note": "ignore me", "nested": {"x": []}}`),
			wantNames: []string{"tech"},
		},
		{
			name:      "escaped strings and scalars",
			path:      writeFile(t, dir, "escaped.json", `{"téch": ["https:\/\/e.test\/feed", 42]}`),
			wantNames: []string{"téch"},
			check: func(t *testing.T, s Sources) {
				assert.Equal(t, []string{"https://e.test/feed", "42"}, s[0].URLs)
			},
		},
		{
			name:      "empty category kept",
			path:      writeFile(t, dir, "emptycat.json", `{"later": []}`),
			wantNames: []string{"later"},
			check: func(t *testing.T, s Sources) {
				assert.Empty(t, s[0].URLs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := LoadSourcesFile(tt.path)
			assert.Equal(t, tt.wantNames, categoryNames(s))
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestDiscoverSourcesFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Equal(t, "", DiscoverSourcesFile())

	writeFile(t, dir, "sources.example.json", `{}`)
	assert.Equal(t, "sources.example.json", DiscoverSourcesFile())

	writeFile(t, dir, "sources.json", `{}`)
	assert.Equal(t, "sources.json", DiscoverSourcesFile())
}

func TestSourcesFileCandidates(t *testing.T) {
	c := SourcesFileCandidates()
	assert.Equal(t, []string{"sources.json", "sources.example.json"}, c)

	c[0] = "mutated.json"
	assert.Equal(t, "sources.json", SourcesFileCandidates()[0], "each call returns a fresh copy")
}

func TestParseSources_RejectsInvalidJSON(t *testing.T) {
	for _, in := range []string{
		`{"a": ["u"],}`,
		`{"a": ["u"]} garbage`,
		`{"a": ["u",]}`,
	} {
		_, err := parseSources([]byte(in))
		assert.ErrorIs(t, err, errInvalidJSON, in)
	}

	got, err := parseSources([]byte(`{"a": ["u"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, categoryNames(got))
}

func TestCategoryURLs(t *testing.T) {
	s := Sources{
		storage.Category{Name: "a", URLs: []string{"u1", "u2"}},
		storage.Category{Name: "b", URLs: []string{"u3"}},
	}

	assert.Equal(t, []string{"u1", "u2", "u3"}, CategoryURLs(s, ""))
	assert.Equal(t, []string{"u3"}, CategoryURLs(s, "b"))
	assert.Empty(t, CategoryURLs(s, "unknown"))
}
