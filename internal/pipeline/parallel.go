package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                     // Number of documents in flight (0 = runtime.NumCPU())
	ContinueOnError  bool                    // Keep going after a failed document
	ProgressCallback ProgressCallback        // Optional progress reporting
	ErrorHandler     func(int, Input, error) // Optional per-document error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		MaxWorkers: runtime.NumCPU(),
	}
}

// documentJob represents a single document processing job.
type documentJob struct {
	index int
	input Input
}

// documentResult represents the result of processing a single document.
type documentResult struct {
	index  int
	name   string
	result *Result
	err    error
}

// ProcessPDFsParallel processes documents on a worker pool. Results and
// errors are returned in input order; a failed document leaves a nil result
// and a non-nil error at its index. Unless ContinueOnError is set, the first
// failure cancels documents that have not started yet.
func (p *Pipeline) ProcessPDFsParallel(ctx context.Context, inputs []Input, config ParallelConfig) ([]*Result, []error) {
	if len(inputs) == 0 {
		return nil, []error{errors.New("no documents provided")}
	}
	if p == nil || p.typesetter == nil {
		return nil, []error{errors.New("pipeline not initialized")}
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(inputs))
	progress := config.ProgressCallback
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	progress.OnStart(len(inputs))
	defer progress.OnComplete()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan documentJob, len(inputs))
	results := make(chan documentResult, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- documentJob{index: i, input: in}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*Result, len(inputs))
	errs := make([]error, len(inputs))
	done := make([]bool, len(inputs))
	processed := 0

	for res := range results {
		processed++
		done[res.index] = true
		if res.err != nil {
			errs[res.index] = fmt.Errorf("%s: %w", res.name, res.err)
			progress.OnError(res.name, res.err)
			if config.ErrorHandler != nil {
				config.ErrorHandler(res.index, inputs[res.index], res.err)
			}
			if !config.ContinueOnError {
				cancel()
			}
		} else {
			ordered[res.index] = res.result
		}
		progress.OnProgress(processed, len(inputs), res.name)
	}

	// Documents never picked up report why.
	for i := range inputs {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			errs[i] = fmt.Errorf("%s: %w", inputs[i].Name, err)
		}
	}

	return ordered, errs
}

// worker processes documents from the jobs channel.
func (p *Pipeline) worker(ctx context.Context, jobs <-chan documentJob, results chan<- documentResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				// Leave the index unmarked; the caller records the cancellation.
				continue
			}

			result, err := p.ProcessPDF(ctx, job.input)
			results <- documentResult{index: job.index, name: job.input.Name, result: result, err: err}

		case <-ctx.Done():
			return
		}
	}
}

// FirstError returns the first non-nil error, or nil.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
