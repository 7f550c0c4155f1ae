package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/MeKo-Tech/retype/internal/translator"
	"github.com/spf13/cobra"
)

// modelsCmd lists the Gemini models usable for translation.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List Gemini models that can translate documents",
	Long: `List the Gemini models available to the configured API key that support
content generation.

Examples:
  retype models
  retype models --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
			return errors.New("gemini API key is required (set GEMINI_API_KEY)")
		}

		g, err := translator.NewGemini(cmd.Context(), cfg.ToGeminiConfig())
		if err != nil {
			return err
		}
		defer func() { _ = g.Close() }()

		models, err := g.ListModels(cmd.Context())
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		return writeModels(cmd, models, format)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringP("format", "f", "text", "output format: text or json")
}

func writeModels(cmd *cobra.Command, models []translator.ModelInfo, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	case "text", "":
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tVERSION")
		for _, m := range models {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.DisplayName, m.Version)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
