// Package batch translates many PDF files with one pipeline.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pipeline"
)

// ProcessBatch discovers PDF files under paths, processes them on a worker
// pool and writes each translated copy. Per-document failures are collected
// in the result; the returned error covers discovery and setup only.
func ProcessBatch(ctx context.Context, pl *pipeline.Pipeline, paths []string, config *Config) (*Result, error) {
	files, err := newDiscovery(config).discoverPDFFiles(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to discover PDF files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no PDF files found")
	}

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	inputs, err := loadInputs(files, config)
	if err != nil {
		return nil, err
	}

	var progress pipeline.ProgressCallback = pipeline.NewLogProgressCallback(nil, slog.LevelDebug)
	if config.ShowProgress && !config.Quiet {
		progress = pipeline.MultiProgressCallback{
			progress,
			pipeline.NewConsoleProgressCallback(config.Progress, "Translating: "),
		}
	}

	startTime := time.Now()
	results, errs := pl.ProcessPDFsParallel(ctx, inputs, pipeline.ParallelConfig{
		MaxWorkers:       config.Workers,
		ContinueOnError:  config.ContinueOnError,
		ProgressCallback: progress,
	})

	outputs := make([]string, len(files))
	for i, res := range results {
		if res == nil {
			continue
		}
		out := OutputPath(files[i], config.OutputDir, config.Suffix)
		if out == files[i] {
			errs[i] = fmt.Errorf("%s: output would overwrite the input, set a suffix or output directory", files[i])
			results[i] = nil
			continue
		}
		if err := os.WriteFile(out, res.PDF, 0o600); err != nil {
			errs[i] = fmt.Errorf("%s: write output: %w", files[i], err)
			results[i] = nil
			continue
		}
		outputs[i] = out
	}

	return &Result{
		Files:       files,
		Outputs:     outputs,
		Results:     results,
		Errors:      errs,
		Duration:    time.Since(startTime),
		WorkerCount: config.Workers,
	}, nil
}

func loadInputs(files []string, config *Config) ([]pipeline.Input, error) {
	inputs := make([]pipeline.Input, len(files))
	for i, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // paths come from the command line
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		inputs[i] = pipeline.Input{
			Name:     file,
			Data:     data,
			Pages:    config.Pages,
			Password: config.Password,
		}
		if config.Sidecars {
			segs, err := ReadSegmentsFile(SidecarPath(file))
			if err != nil {
				return nil, err
			}
			inputs[i].Segments = segs
		}
	}
	return inputs, nil
}

// ReadSegmentsFile reads a JSON array of segments.
func ReadSegmentsFile(path string) ([]layout.Segment, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read segments file: %w", err)
	}
	segs := []layout.Segment{}
	if err := json.Unmarshal(data, &segs); err != nil {
		return nil, fmt.Errorf("failed to parse segments file %s: %w", path, err)
	}
	return segs, nil
}
