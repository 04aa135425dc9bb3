package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/stealthping/internal/model"
)

// BatchResult is the analysis of one ciphertext of a batch.
type BatchResult struct {
	// Index is the position of the ciphertext in the input.
	Index      int
	Ciphertext string
	Report     *model.AnalysisReport
	// Err is set when this ciphertext could not be analyzed.
	Err error
}

// BatchProcessor analyzes several ciphertexts concurrently.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of ciphertexts analyzed at once.
// Default is 4.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(analyzer Analyzer, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		analyzer:    analyzer,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch analyzes every ciphertext and returns the results in input
// order. A failure on one ciphertext is recorded in its result and does
// not stop the others; the returned error is only set on cancellation,
// in which case results that never ran carry the context error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, ciphertexts []string) ([]BatchResult, error) {
	bp.logger.Debug("starting batch analysis",
		"total", len(ciphertexts),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	// Each goroutine writes only its own index.
	results := make([]BatchResult, len(ciphertexts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, ciphertext := range ciphertexts {
		results[i] = BatchResult{Index: i, Ciphertext: ciphertext, Err: context.Canceled}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}

			analysis, err := bp.analyzer.Analyze(ctx, ciphertext)
			results[i] = BatchResult{
				Index:      i,
				Ciphertext: ciphertext,
				Report:     analysis,
				Err:        err,
			}
			if err != nil {
				bp.logger.Warn("analysis failed", "index", i+1, "error", err)
			}
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch analysis complete",
		"total", len(ciphertexts),
		"elapsed", time.Since(start),
	)

	return results, err
}
