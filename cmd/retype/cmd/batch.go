package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/retype/internal/batch"
	"github.com/MeKo-Tech/retype/internal/config"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command for parallel PDF processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files|dirs...]",
	Short: "Translate many PDFs in parallel",
	Long: `Translate every PDF found in the given files and directories using a pool
of workers. Each translated copy is written as <name><suffix>.pdf, next to
its input or into --output-dir.

With --sidecars the segments of doc.pdf are read from doc.json and Gemini is
not called.

Examples:
  retype batch scans/
  retype batch scans/ --recursive --workers 4 --output-dir out/
  retype batch a.pdf b.pdf --sidecars --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatchCommand,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addBatchFlags(batchCmd)
}

func addBatchFlags(c *cobra.Command) {
	c.Flags().IntP("workers", "w", 0, "number of documents processed at once (overrides batch.workers)")
	c.Flags().String("output-dir", "", "directory for translated PDFs (overrides batch.output_dir)")
	c.Flags().String("suffix", "", "suffix appended to output names (overrides output.suffix)")
	c.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	c.Flags().StringSlice("include", nil, "glob patterns of files to include (default: any .pdf extension)")
	c.Flags().StringSlice("exclude", nil, "glob patterns of files to skip")
	c.Flags().String("pages", "", "page range applied to every document")
	c.Flags().String("password", "", "user password applied to every encrypted document")
	c.Flags().Bool("sidecars", false, "read segments from <name>.json next to each PDF")
	c.Flags().Bool("continue-on-error", false, "keep going when a document fails (overrides batch.continue_on_error)")
	c.Flags().StringP("format", "f", "text", "summary format: text, json or csv")
	c.Flags().Bool("progress", false, "show a progress bar on stderr")
	c.Flags().BoolP("quiet", "q", false, "only print the summary")
	addPipelineFlags(c)
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values when they were set.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := &batch.Config{
		Workers:         cfg.Batch.Workers,
		ContinueOnError: cfg.Batch.ContinueOnError,
		OutputDir:       cfg.Batch.OutputDir,
		Suffix:          cfg.Output.Suffix,
		Progress:        cmd.ErrOrStderr(),
	}

	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("continue-on-error") {
		bc.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	if cmd.Flags().Changed("output-dir") {
		bc.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("suffix") {
		bc.Suffix, _ = cmd.Flags().GetString("suffix")
	}

	bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	bc.Pages, _ = cmd.Flags().GetString("pages")
	bc.Password, _ = cmd.Flags().GetString("password")
	bc.Sidecars, _ = cmd.Flags().GetBool("sidecars")
	bc.Format, _ = cmd.Flags().GetString("format")
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	bc := configToBatchConfig(cfg, cmd)

	opts := pipelineFlags(cmd, cfg)
	opts.workers = bc.Workers
	opts.translate = !bc.Sidecars
	pl, err := newPipeline(cmd.Context(), cfg, opts)
	if err != nil {
		return err
	}
	defer func() { _ = pl.Close() }()

	res, err := batch.ProcessBatch(cmd.Context(), pl, args, bc)
	if err != nil {
		return err
	}

	if err := res.WriteResults(cmd.OutOrStdout(), bc.Format); err != nil {
		return err
	}
	if !bc.Quiet {
		res.PrintStats(cmd.ErrOrStderr())
	}
	if n := res.Failed(); n > 0 {
		return fmt.Errorf("%d of %d documents failed", n, len(res.Files))
	}
	return nil
}
