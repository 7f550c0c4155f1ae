package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/retype/internal/batch"
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/preview"
	"github.com/spf13/cobra"
)

// translateCmd represents the translate command.
var translateCmd = &cobra.Command{
	Use:   "translate [file.pdf]",
	Short: "Translate one PDF and write the re-typeset copy",
	Long: `Translate the speech bubbles of one manga PDF and write a copy with the
translated text drawn over the original lettering.

Without --segments the document is sent to Gemini (GEMINI_API_KEY must be set).
With --segments the translation is read from a JSON file of
{page_number, text, box_2d} objects and no network call is made.

Examples:
  retype translate chapter.pdf
  retype translate chapter.pdf -o out/chapter_fa.pdf --pages 1-5
  retype translate chapter.pdf --dump-segments chapter.json
  retype translate chapter.pdf --segments chapter.json --preview-dir preview/`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslateCommand,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringP("output", "o", "", "output PDF (default <name><output.suffix>.pdf next to the input)")
	translateCmd.Flags().String("pages", "", "page range to re-typeset, e.g. 1-3,7")
	translateCmd.Flags().String("password", "", "user password of an encrypted PDF")
	translateCmd.Flags().Bool("prompt-password", false, "ask for the password when the PDF is encrypted")
	translateCmd.Flags().String("segments", "", "read translated segments from this JSON file instead of calling Gemini")
	translateCmd.Flags().String("dump-segments", "", "write the segments used to this JSON file")
	translateCmd.Flags().String("preview-dir", "", "write debug preview PNGs of every page to this directory")
	translateCmd.Flags().Bool("report", false, "print the processing report as JSON")
	addPipelineFlags(translateCmd)
}

func runTranslateCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	input := args[0]

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = batch.OutputPath(input, "", cfg.Output.Suffix)
	}
	if sameFile(input, output) {
		return fmt.Errorf("refusing to overwrite input %s", input)
	}

	in := pipeline.Input{Name: filepath.Base(input), Data: data}
	in.Pages, _ = cmd.Flags().GetString("pages")
	in.Password, _ = cmd.Flags().GetString("password")
	in.OnStage = func(stage pipeline.Stage, progress float64) {
		slog.Debug("Stage", "document", in.Name, "stage", stage, "progress", progress)
	}

	segmentsFile, _ := cmd.Flags().GetString("segments")
	if segmentsFile != "" {
		in.Segments, err = batch.ReadSegmentsFile(segmentsFile)
		if err != nil {
			return err
		}
	}

	opts := pipelineFlags(cmd, cfg)
	opts.translate = segmentsFile == ""
	pl, err := newPipeline(cmd.Context(), cfg, opts)
	if err != nil {
		return err
	}
	defer func() { _ = pl.Close() }()

	res, err := pl.ProcessPDF(cmd.Context(), in)
	if errors.Is(err, pdf.ErrEncrypted) && in.Password == "" {
		if prompt, _ := cmd.Flags().GetBool("prompt-password"); prompt {
			creds, perr := pdf.PromptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), input)
			if perr != nil {
				return perr
			}
			in.Password = creds.UserPassword
			res, err = pl.ProcessPDF(cmd.Context(), in)
		}
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(output, res.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	if dump, _ := cmd.Flags().GetString("dump-segments"); dump != "" {
		if err := writeSegments(dump, res.Segments); err != nil {
			return err
		}
	}

	if dir, _ := cmd.Flags().GetString("preview-dir"); dir != "" {
		files, err := preview.WritePages(dir, res.Pages, res.Outcomes, preview.Options{MaxWidth: 1200, Face: pl.Face()})
		if err != nil {
			return err
		}
		slog.Info("Wrote previews", "dir", dir, "pages", len(files))
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("report"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report)
	}
	_, _ = fmt.Fprintf(out, "Wrote %s (%d pages)\n", output, res.Report.TotalPages)
	printStats(out, res.Report.Stats)
	if len(res.Report.MissingGlyphs) > 0 {
		_, _ = fmt.Fprintf(out, "Glyphs missing from the font: %v\n", res.Report.MissingGlyphs)
	}
	return nil
}

// writeSegments stores segments in the format read by --segments.
func writeSegments(path string, segs []layout.Segment) error {
	if segs == nil {
		segs = []layout.Segment{}
	}
	data, err := json.MarshalIndent(segs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode segments: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write segments: %w", err)
	}
	return nil
}

// sameFile reports whether a and b name the same existing file.
func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
