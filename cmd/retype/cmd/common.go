package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/MeKo-Tech/retype/internal/config"
	"github.com/MeKo-Tech/retype/internal/font"
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/translator"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pipelineOptions are the per-command overrides of the configured pipeline.
type pipelineOptions struct {
	fontPath string
	optimize bool
	workers  int
	// translate attaches a Gemini translator. Without an API key the
	// pipeline is built without one and only accepts given segments.
	translate bool
}

// newPipeline builds a pipeline from cfg.
func newPipeline(ctx context.Context, cfg *config.Config, opts pipelineOptions) (*pipeline.Pipeline, error) {
	layoutCfg, err := cfg.ToLayoutConfig()
	if err != nil {
		return nil, err
	}

	fontPath := cfg.Font.Path
	if opts.fontPath != "" {
		fontPath = opts.fontPath
	}
	face, err := font.LoadOrFallback(fontPath)
	if err != nil {
		return nil, err
	}
	if fontPath == "" {
		slog.Warn("No font configured, using the bundled Latin font", "font", face.Name())
	}

	b := pipeline.NewBuilder().
		WithLayout(layoutCfg).
		WithFace(face).
		WithOptimize(opts.optimize).
		WithWorkers(opts.workers)

	if opts.translate {
		if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
			slog.Warn("No Gemini API key configured, documents need a segments file")
		} else {
			g, err := translator.NewGemini(ctx, cfg.ToGeminiConfig())
			if err != nil {
				return nil, err
			}
			b = b.WithTranslator(g)
		}
	}
	return b.Build()
}

// addPipelineFlags registers the flags read by pipelineFlags.
func addPipelineFlags(c *cobra.Command) {
	c.Flags().String("font", "", "TrueType font for the translated text (overrides font.path)")
	c.Flags().Bool("optimize", false, "optimize the written PDF (overrides output.optimize)")
}

// pipelineFlags reads the pipeline overrides of c on top of cfg.
func pipelineFlags(c *cobra.Command, cfg *config.Config) pipelineOptions {
	opts := pipelineOptions{optimize: cfg.Output.Optimize, translate: true}
	opts.fontPath, _ = c.Flags().GetString("font")
	if c.Flags().Changed("optimize") {
		opts.optimize, _ = c.Flags().GetBool("optimize")
	}
	return opts
}

// printStats writes a human readable summary of typesetting outcomes.
func printStats(w io.Writer, st layout.Stats) {
	_, _ = fmt.Fprintf(w, "Segments: %d accepted, %d skipped, %d degraded\n",
		st.Accepted, st.SkippedTotal(), st.Degraded)
	if st.Overflow > 0 {
		_, _ = fmt.Fprintf(w, "Overflowing text at the minimum font size: %d\n", st.Overflow)
	}

	reasons := make([]string, 0, len(st.Skipped))
	for r := range st.Skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	caser := cases.Title(language.English)
	for _, r := range reasons {
		label := caser.String(strings.ReplaceAll(r, "_", " "))
		_, _ = fmt.Fprintf(w, "  %s: %d\n", label, st.Skipped[layout.SkipReason(r)])
	}
}
