package batch

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/retype/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive bool
	// IncludePatterns replaces the .pdf extension check when set.
	IncludePatterns []string
	ExcludePatterns []string

	// Per-document settings
	Pages    string
	Password string
	// Sidecars reads <name>.json next to each PDF as its segments instead
	// of calling the translator.
	Sidecars bool

	// Output settings
	OutputDir string // empty writes next to the input
	Suffix    string
	Format    string // text, json or csv summary

	// Progress settings
	ShowProgress bool
	Quiet        bool
	Progress     io.Writer
}

// Result holds the result of batch processing.
type Result struct {
	Files       []string
	Outputs     []string
	Results     []*pipeline.Result
	Errors      []error
	Duration    time.Duration
	WorkerCount int
}

// Failed returns the number of documents that could not be processed.
func (r *Result) Failed() int {
	n := 0
	for _, err := range r.Errors {
		if err != nil {
			n++
		}
	}
	return n
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// WriteResults writes the formatted results to w.
func (r *Result) WriteResults(w io.Writer, format string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	_, err = io.WriteString(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	accepted, skipped, degraded := 0, 0, 0
	for _, res := range r.Results {
		if res == nil {
			continue
		}
		accepted += res.Report.Stats.Accepted
		skipped += res.Report.Stats.SkippedTotal()
		degraded += res.Report.Stats.Degraded
	}

	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total documents: %d\n", len(r.Files))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", len(r.Files)-r.Failed())
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(w, "  Segments: %d accepted, %d skipped, %d degraded\n", accepted, skipped, degraded)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
}

// OutputPath returns where the translated copy of input is written.
func OutputPath(input, outputDir, suffix string) string {
	dir := filepath.Dir(input)
	if outputDir != "" {
		dir = outputDir
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+suffix+".pdf")
}

// SidecarPath returns the segments file read for input when sidecars are enabled.
func SidecarPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".json"
}
