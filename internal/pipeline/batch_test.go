package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/stealthping/internal/cryptanalysis"
	"github.com/nao1215/stealthping/internal/model"
)

// TestBatchProcessor tests concurrent analysis of several ciphertexts.
func TestBatchProcessor(t *testing.T) {
	t.Parallel()

	t.Run("results keep input order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(newAnalyzer(), WithConcurrency(2))
		inputs := []string{"Khoor Zruog", "", "Uryyb Jbeyq"}

		results, err := bp.ProcessBatch(t.Context(), inputs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(inputs) {
			t.Fatalf("len = %d, want %d", len(results), len(inputs))
		}

		for i, r := range results {
			if r.Index != i || r.Ciphertext != inputs[i] {
				t.Errorf("result %d = %+v", i, r)
			}
		}
		if results[0].Err != nil || results[0].Report.Selected == nil || results[0].Report.Selected.Text != "Hello World" {
			t.Errorf("first result = %+v", results[0])
		}
		if !errors.Is(results[1].Err, cryptanalysis.ErrEmptyCiphertext) {
			t.Errorf("second result error = %v, want ErrEmptyCiphertext", results[1].Err)
		}
		if results[2].Err != nil || results[2].Report.Selected == nil || results[2].Report.Selected.Key != 13 {
			t.Errorf("third result = %+v", results[2])
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		results, err := NewBatchProcessor(newAnalyzer()).ProcessBatch(ctx, []string{"abc", "def"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		for _, r := range results {
			if r.Err == nil {
				t.Errorf("result %d should carry an error", r.Index)
			}
		}
	})

	t.Run("default concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(analyzerFunc(func(context.Context, string) (*model.AnalysisReport, error) {
			return &model.AnalysisReport{}, nil
		}), WithConcurrency(0))
		if bp.concurrency != 4 {
			t.Errorf("concurrency = %d, want 4", bp.concurrency)
		}
	})
}

type analyzerFunc func(ctx context.Context, ciphertext string) (*model.AnalysisReport, error)

func (f analyzerFunc) Analyze(ctx context.Context, ciphertext string) (*model.AnalysisReport, error) {
	return f(ctx, ciphertext)
}
