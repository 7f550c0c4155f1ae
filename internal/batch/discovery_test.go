package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
}

func relPaths(t *testing.T, dir string, files []string) []string {
	t.Helper()
	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		rel = append(rel, r)
	}
	return rel
}

func TestDiscoverPDFFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir,
		"b.pdf",
		"a.PDF",
		"c.Pdf",
		"draft_c.pdf",
		"notes.txt",
		filepath.Join("sub", "d.pdf"),
	)

	tests := []struct {
		name   string
		config Config
		want   []string
	}{
		{"flat", Config{}, []string{"a.PDF", "b.pdf", "c.Pdf", "draft_c.pdf"}},
		{"recursive", Config{Recursive: true}, []string{"a.PDF", "b.pdf", "c.Pdf", "draft_c.pdf", filepath.Join("sub", "d.pdf")}},
		{"exclude", Config{ExcludePatterns: []string{"draft_*"}}, []string{"a.PDF", "b.pdf", "c.Pdf"}},
		{"include replaces extension check", Config{IncludePatterns: []string{"*.txt"}}, []string{"notes.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := newDiscovery(&tt.config).discoverPDFFiles([]string{dir})
			require.NoError(t, err)
			assert.Equal(t, tt.want, relPaths(t, dir, files))
		})
	}
}

func TestDiscoverPDFFiles_SkipsEarlierRuns(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir,
		"ch1.pdf",
		"ch1_translated.pdf",
		"ch2.PDF",
		"ch2_translated.pdf",
		"orphan_translated.pdf",
		"._ch1.pdf",
		filepath.Join(".cache", "e.pdf"),
		filepath.Join("out", "ch1_translated.pdf"),
		filepath.Join("out", "ch3.pdf"),
		filepath.Join("vol2", "ch4.pdf"),
	)

	tests := []struct {
		name   string
		config Config
		want   []string
	}{
		{
			name:   "same suffix",
			config: Config{Suffix: "_translated"},
			want:   []string{"ch1.pdf", "ch2.PDF", "orphan_translated.pdf"},
		},
		{
			name:   "other suffix keeps copies",
			config: Config{Suffix: "_fa"},
			want:   []string{"ch1.pdf", "ch1_translated.pdf", "ch2.PDF", "ch2_translated.pdf", "orphan_translated.pdf"},
		},
		{
			name:   "recursive skips output dir",
			config: Config{Suffix: "_translated", Recursive: true, OutputDir: filepath.Join(dir, "out")},
			want:   []string{"ch1.pdf", "ch2.PDF", "orphan_translated.pdf", filepath.Join("vol2", "ch4.pdf")},
		},
		{
			name:   "recursive without output dir",
			config: Config{Suffix: "_translated", Recursive: true},
			want: []string{
				"ch1.pdf", "ch2.PDF", "orphan_translated.pdf",
				filepath.Join("out", "ch1_translated.pdf"), filepath.Join("out", "ch3.pdf"),
				filepath.Join("vol2", "ch4.pdf"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := newDiscovery(&tt.config).discoverPDFFiles([]string{dir})
			require.NoError(t, err)
			assert.Equal(t, tt.want, relPaths(t, dir, files))
		})
	}
}

func TestDiscoverPDFFiles_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "z.pdf", "a.txt", "a.pdf", "a_translated.pdf")
	z := filepath.Join(dir, "z.pdf")
	txt := filepath.Join(dir, "a.txt")
	copied := filepath.Join(dir, "a_translated.pdf")

	d := newDiscovery(&Config{Suffix: "_translated"})
	files, err := d.discoverPDFFiles([]string{z, txt, copied})
	require.NoError(t, err)
	assert.Equal(t, []string{z, copied}, files, "explicit files are only filtered by patterns")

	_, err = newDiscovery(&Config{}).discoverPDFFiles([]string{filepath.Join(dir, "missing.pdf")})
	require.Error(t, err)
}

func TestDiscoverPDFFiles_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "a.pdf", "b.pdf")
	a := filepath.Join(dir, "a.pdf")

	files, err := newDiscovery(&Config{}).discoverPDFFiles([]string{a, dir, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{a, filepath.Join(dir, "b.pdf")}, files)
}

func TestDiscovery_Matches(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		path    string
		want    bool
	}{
		{"lower extension", nil, nil, "x/a.pdf", true},
		{"upper extension", nil, nil, "x/a.PDF", true},
		{"other extension", nil, nil, "x/a.png", false},
		{"include hit", []string{"*.pdf"}, nil, "x/a.pdf", true},
		{"include miss", []string{"*.png"}, nil, "x/a.pdf", false},
		{"exclude wins", []string{"*.pdf"}, []string{"a.*"}, "x/a.pdf", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDiscovery(&Config{IncludePatterns: tt.include, ExcludePatterns: tt.exclude})
			assert.Equal(t, tt.want, d.matches(tt.path))
		})
	}
}
