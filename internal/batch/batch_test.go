package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	pl, err := pipeline.NewBuilder().Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = pl.Close() })
	return pl
}

// writeDocs writes n two-page PDFs with sidecar segments into dir.
func writeDocs(t *testing.T, dir string, n int) []string {
	t.Helper()
	data := testutil.SamplePDF(t, testutil.A4, testutil.A4)
	segs := testutil.SegmentsJSON(t, testutil.SampleSegments())
	var paths []string
	for i := range n {
		name := string(rune('a'+i)) + ".pdf"
		paths = append(paths, testutil.WriteFile(t, dir, name, data))
		testutil.WriteFile(t, dir, strings.TrimSuffix(name, ".pdf")+".json", segs)
	}
	return paths
}

func TestProcessBatch_Sidecars(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, 3)
	outDir := filepath.Join(dir, "out")

	res, err := ProcessBatch(context.Background(), newPipeline(t), []string{dir}, &Config{
		Workers:   2,
		Sidecars:  true,
		OutputDir: outDir,
		Suffix:    "_translated",
	})
	require.NoError(t, err)
	require.Len(t, res.Files, 3)
	assert.Zero(t, res.Failed())

	for i, out := range res.Outputs {
		assert.Equal(t, filepath.Join(outDir, strings.TrimSuffix(filepath.Base(res.Files[i]), ".pdf")+"_translated.pdf"), out)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		doc, err := pdf.Open(out, data, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, doc.PageCount())

		stats := res.Results[i].Report.Stats
		assert.Equal(t, 3, stats.Accepted)
		assert.Equal(t, 1, stats.SkippedTotal())
	}

	var buf bytes.Buffer
	res.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Total documents: 3")
	assert.Contains(t, buf.String(), "9 accepted, 3 skipped")
}

func TestProcessBatch_MissingSidecar(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "lonely.pdf", testutil.SamplePDF(t))

	_, err := ProcessBatch(context.Background(), newPipeline(t), []string{dir}, &Config{Sidecars: true, Suffix: "_t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segments file")
}

func TestProcessBatch_NoFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "notes.txt", []byte("hi"))

	_, err := ProcessBatch(context.Background(), newPipeline(t), []string{dir}, &Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PDF files")

	_, err = ProcessBatch(context.Background(), newPipeline(t), []string{filepath.Join(dir, "missing")}, &Config{})
	require.Error(t, err)
}

func TestProcessBatch_ContinueOnError(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, 2)
	testutil.WriteFile(t, dir, "c.pdf", []byte("not a pdf"))
	testutil.WriteFile(t, dir, "c.json", []byte("[]"))

	res, err := ProcessBatch(context.Background(), newPipeline(t), []string{dir}, &Config{
		Workers:         1,
		Sidecars:        true,
		Suffix:          "_translated",
		ContinueOnError: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed())
	require.ErrorIs(t, res.Errors[2], pdf.ErrInvalidPDF)
	assert.Empty(t, res.Outputs[2])
	assert.FileExists(t, res.Outputs[0])
}

func TestProcessBatch_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	paths := writeDocs(t, dir, 1)

	res, err := ProcessBatch(context.Background(), newPipeline(t), paths, &Config{Sidecars: true})
	require.NoError(t, err)
	require.Error(t, res.Errors[0])
	assert.Contains(t, res.Errors[0].Error(), "overwrite")
}

func TestProcessBatch_RerunIgnoresOwnOutputs(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, 2)
	config := &Config{Sidecars: true, Suffix: "_translated"}

	for range 2 {
		res, err := ProcessBatch(context.Background(), newPipeline(t), []string{dir}, config)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, res.Files)
		assert.Zero(t, res.Failed())
	}
}

func TestFormatResults(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, 1)
	testutil.WriteFile(t, dir, "z.pdf", []byte("broken"))
	testutil.WriteFile(t, dir, "z.json", []byte("[]"))

	res, err := ProcessBatch(context.Background(), newPipeline(t), []string{dir}, &Config{
		Sidecars:        true,
		Suffix:          "_x",
		ContinueOnError: true,
	})
	require.NoError(t, err)

	text, err := res.FormatResults("text")
	require.NoError(t, err)
	assert.Contains(t, text, "3 accepted, 1 skipped, 0 degraded")
	assert.Contains(t, text, "error:")

	out, err := res.FormatResults("json")
	require.NoError(t, err)
	var decoded struct {
		Documents []struct {
			File     string `json:"file"`
			Accepted int    `json:"accepted"`
			Error    string `json:"error"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Documents, 2)
	assert.Equal(t, 3, decoded.Documents[0].Accepted)
	assert.NotEmpty(t, decoded.Documents[1].Error)

	out, err = res.FormatResults("csv")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"file", "output", "accepted", "skipped", "degraded", "error"}, records[0])
	assert.Equal(t, "3", records[1][2])

	var buf bytes.Buffer
	require.NoError(t, res.WriteResults(&buf, "text"))
	assert.Equal(t, text, buf.String())
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, dir, suffix, want string
	}{
		{"in/a.pdf", "", "_translated", filepath.Join("in", "a_translated.pdf")},
		{"in/a.PDF", "out", "", filepath.Join("out", "a.pdf")},
		{"b.pdf", "out", "_t", filepath.Join("out", "b_t.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.input, tt.dir, tt.suffix))
		})
	}
	assert.Equal(t, filepath.Join("in", "a.json"), SidecarPath(filepath.Join("in", "a.pdf")))
}

func TestReadSegmentsFile(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteFile(t, dir, "good.json", testutil.SegmentsJSON(t, testutil.SampleSegments()[:1]))
	bad := testutil.WriteFile(t, dir, "bad.json", []byte("{nope"))

	segs, err := ReadSegmentsFile(good)
	require.NoError(t, err)
	assert.Equal(t, []layout.Segment{testutil.SampleSegments()[0]}, segs)

	_, err = ReadSegmentsFile(bad)
	require.Error(t, err)
	_, err = ReadSegmentsFile(filepath.Join(dir, "absent.json"))
	require.Error(t, err)
}
