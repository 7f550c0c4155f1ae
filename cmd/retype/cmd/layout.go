package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/retype/internal/batch"
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/preview"
	"github.com/spf13/cobra"
)

// layoutCmd represents the dry-run layout command.
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Typeset segments without writing a PDF",
	Long: `Run the re-typesetter on a segments file and print the resulting drawing
instructions as JSON. Page sizes come from --pdf or from --page-size.

Examples:
  retype layout --segments chapter.json --page-size 595x842 --page-count 20
  retype layout --segments chapter.json --pdf chapter.pdf --preview-dir preview/`,
	Args: cobra.NoArgs,
	RunE: runLayoutCommand,
}

func init() {
	rootCmd.AddCommand(layoutCmd)

	layoutCmd.Flags().String("segments", "", "segments JSON file (required)")
	layoutCmd.Flags().String("page-size", "595x842", "page size in points as WIDTHxHEIGHT")
	layoutCmd.Flags().Int("page-count", 1, "number of pages of --page-size")
	layoutCmd.Flags().String("pdf", "", "read page sizes from this PDF instead")
	layoutCmd.Flags().String("password", "", "user password of an encrypted --pdf")
	layoutCmd.Flags().String("pages", "", "page range to typeset, e.g. 1-3,7")
	layoutCmd.Flags().String("preview-dir", "", "write debug preview PNGs to this directory")
	addPipelineFlags(layoutCmd)
	_ = layoutCmd.MarkFlagRequired("segments")
}

func runLayoutCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	segmentsFile, _ := cmd.Flags().GetString("segments")
	segs, err := batch.ReadSegmentsFile(segmentsFile)
	if err != nil {
		return err
	}

	pages, err := layoutPages(cmd)
	if err != nil {
		return err
	}

	opts := pipelineFlags(cmd, cfg)
	opts.translate = false
	pl, err := newPipeline(cmd.Context(), cfg, opts)
	if err != nil {
		return err
	}
	defer func() { _ = pl.Close() }()

	pageRange, _ := cmd.Flags().GetString("pages")
	res, err := pl.Layout(pages, segs, pageRange)
	if err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("preview-dir"); dir != "" {
		if _, err := preview.WritePages(dir, pages, res.Outcomes, preview.Options{MaxWidth: 1200, Face: pl.Face()}); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// layoutPages returns the page sizes selected by --pdf or --page-size.
func layoutPages(cmd *cobra.Command) ([]layout.PageSize, error) {
	if path, _ := cmd.Flags().GetString("pdf"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		password, _ := cmd.Flags().GetString("password")
		doc, err := pdf.Open(filepath.Base(path), data, pdf.UserPassword(password))
		if err != nil {
			return nil, err
		}
		return doc.Pages, nil
	}

	sizeFlag, _ := cmd.Flags().GetString("page-size")
	size, err := parsePageSize(sizeFlag)
	if err != nil {
		return nil, err
	}
	count, _ := cmd.Flags().GetInt("page-count")
	if count <= 0 {
		return nil, fmt.Errorf("invalid page count: %d (must be positive)", count)
	}
	pages := make([]layout.PageSize, count)
	for i := range pages {
		pages[i] = size
	}
	return pages, nil
}

// parsePageSize parses "WIDTHxHEIGHT" in points.
func parsePageSize(s string) (layout.PageSize, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return layout.PageSize{}, fmt.Errorf("invalid page size %q: expected WIDTHxHEIGHT", s)
	}
	width, err1 := strconv.ParseFloat(strings.TrimSpace(w), 64)
	height, err2 := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err := errors.Join(err1, err2); err != nil {
		return layout.PageSize{}, fmt.Errorf("invalid page size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return layout.PageSize{}, fmt.Errorf("invalid page size %q: dimensions must be positive", s)
	}
	return layout.PageSize{Width: width, Height: height}, nil
}
