package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParallelConfig(t *testing.T) {
	config := DefaultParallelConfig()
	assert.Positive(t, config.MaxWorkers)
	assert.False(t, config.ContinueOnError)
	assert.Nil(t, config.ProgressCallback)
}

func makeInputs(t *testing.T, n int) []Input {
	t.Helper()
	data := testutil.SamplePDF(t)
	inputs := make([]Input, n)
	for i := range inputs {
		inputs[i] = Input{
			Name:     fmt.Sprintf("doc%d.pdf", i),
			Data:     data,
			Segments: testutil.SampleSegments()[:i%2+1],
		}
	}
	return inputs
}

func TestProcessPDFsParallel_Ordered(t *testing.T) {
	pl := newTestPipeline(t, nil)
	cb := &countingCallback{}
	inputs := makeInputs(t, 5)

	results, errs := pl.ProcessPDFsParallel(context.Background(), inputs, ParallelConfig{MaxWorkers: 3, ProgressCallback: cb})
	require.NoError(t, FirstError(errs))
	require.Len(t, results, 5)

	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, inputs[i].Name, res.Report.Filename)
		assert.Equal(t, i%2+1, res.Report.Stats.Accepted)
	}
	assert.Equal(t, countingCallback{starts: 1, progress: 5, completes: 1}, *cb)
}

func TestProcessPDFsParallel_ContinueOnError(t *testing.T) {
	pl := newTestPipeline(t, nil)
	inputs := makeInputs(t, 4)
	inputs[1].Data = []byte("broken")

	var handled atomic.Int32
	results, errs := pl.ProcessPDFsParallel(context.Background(), inputs, ParallelConfig{
		MaxWorkers:      2,
		ContinueOnError: true,
		ErrorHandler:    func(int, Input, error) { handled.Add(1) },
	})

	require.ErrorIs(t, errs[1], pdf.ErrInvalidPDF)
	assert.Contains(t, errs[1].Error(), "doc1.pdf")
	assert.Nil(t, results[1])
	for _, i := range []int{0, 2, 3} {
		assert.NoError(t, errs[i])
		assert.NotNil(t, results[i])
	}
	assert.Equal(t, int32(1), handled.Load())
}

func TestProcessPDFsParallel_StopOnError(t *testing.T) {
	pl := newTestPipeline(t, nil)
	inputs := makeInputs(t, 6)
	inputs[0].Data = nil

	_, errs := pl.ProcessPDFsParallel(context.Background(), inputs, ParallelConfig{MaxWorkers: 1})
	require.ErrorIs(t, errs[0], pdf.ErrInvalidPDF)
	// Every document has either succeeded or carries an error.
	assert.Len(t, errs, 6)
}

func TestProcessPDFsParallel_Invalid(t *testing.T) {
	pl := newTestPipeline(t, nil)
	_, errs := pl.ProcessPDFsParallel(context.Background(), nil, ParallelConfig{})
	require.Error(t, FirstError(errs))

	var nilPipeline *Pipeline
	_, errs = nilPipeline.ProcessPDFsParallel(context.Background(), []Input{{}}, ParallelConfig{})
	require.Error(t, FirstError(errs))
}

func TestProcessPDFsParallel_Canceled(t *testing.T) {
	pl := newTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, errs := pl.ProcessPDFsParallel(ctx, makeInputs(t, 3), ParallelConfig{MaxWorkers: 2})
	require.Len(t, results, 3)
	for _, err := range errs {
		require.Error(t, err)
	}
}

func TestFirstError(t *testing.T) {
	assert.NoError(t, FirstError(nil))
	assert.NoError(t, FirstError([]error{nil, nil}))
	assert.Equal(t, assert.AnError, FirstError([]error{nil, assert.AnError}))
}
