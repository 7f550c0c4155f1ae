package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/retype/internal/config"
	"github.com/MeKo-Tech/retype/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start an HTTP server that translates uploaded PDFs.

The server provides the following endpoints:
  POST /api/translate  - multipart upload (file, pages, password, segments), returns the PDF
  POST /api/layout     - dry-run typesetting of JSON segments
  GET  /api/models     - list usable Gemini models
  GET  /ws/translate   - WebSocket translation with progress messages
  GET  /health         - health check
  GET  /metrics        - Prometheus metrics

Examples:
  retype serve
  retype serve --port 8080
  retype serve --host 0.0.0.0 --rate-limit-enabled --requests-per-minute 5`,
	Args: cobra.NoArgs,
	RunE: runServeCommand,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(c *cobra.Command) {
	c.Flags().String("host", "localhost", "host to bind to")
	c.Flags().IntP("port", "p", 5000, "port to listen on")
	c.Flags().String("cors-origin", "*", "allowed CORS origin")
	c.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	c.Flags().Int("timeout", 300, "per-request processing timeout in seconds")
	c.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	c.Flags().String("output-filename", "", "download name of translated PDFs (overrides output.filename)")

	c.Flags().Bool("rate-limit-enabled", false, "enable per-client rate limiting")
	c.Flags().Int("requests-per-minute", 10, "maximum requests per minute per client")
	c.Flags().Int("requests-per-hour", 100, "maximum requests per hour per client")
	c.Flags().Int("max-requests-per-day", 500, "maximum requests per day per client")
	c.Flags().Int64("max-data-per-day", 1024, "maximum uploaded MB per day per client")
	addPipelineFlags(c)
}

// serverConfigFromFlags resolves server settings, letting set flags win over cfg.
func serverConfigFromFlags(cmd *cobra.Command, cfg *config.Config) server.Config {
	sc := cfg.Server
	out := server.Config{
		Host:            sc.Host,
		Port:            sc.Port,
		CORSOrigin:      sc.CORSOrigin,
		MaxUploadMB:     int64(sc.MaxUploadMB),
		TimeoutSec:      sc.TimeoutSec,
		ShutdownTimeout: sc.ShutdownTimeout,
		OutputFilename:  cfg.Output.Filename,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: sc.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     sc.RateLimit.MaxDataPerDayMB << 20,
		},
	}

	f := cmd.Flags()
	if f.Changed("host") {
		out.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		out.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		out.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		mb, _ := f.GetInt("max-upload-size")
		out.MaxUploadMB = int64(mb)
	}
	if f.Changed("timeout") {
		out.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		out.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("output-filename") {
		out.OutputFilename, _ = f.GetString("output-filename")
	}
	if f.Changed("rate-limit-enabled") {
		out.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		out.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		out.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		out.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		mb, _ := f.GetInt64("max-data-per-day")
		out.RateLimit.MaxDataPerDay = mb << 20
	}
	return out
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	sc := serverConfigFromFlags(cmd, cfg)

	pl, err := newPipeline(cmd.Context(), cfg, pipelineFlags(cmd, cfg))
	if err != nil {
		return err
	}

	srv, err := server.NewServer(sc, pl)
	if err != nil {
		_ = pl.Close()
		return err
	}
	defer func() { _ = srv.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Server configuration",
		"host", sc.Host,
		"port", sc.Port,
		"cors_origin", sc.CORSOrigin,
		"max_upload_mb", sc.MaxUploadMB,
		"rate_limit", sc.RateLimit.Enabled,
		"translator", pl.Translator() != nil)
	return srv.Run(ctx)
}
