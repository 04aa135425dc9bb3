package cryptanalysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/stealthping/internal/cipher"
	"github.com/nao1215/stealthping/internal/language"
	"github.com/nao1215/stealthping/internal/model"
)

var (
	// ErrEmptyCiphertext is returned when there is nothing to analyze.
	ErrEmptyCiphertext = errors.New("no ciphertext to analyze")

	// ErrNoProfiles is returned when no language profile is configured.
	ErrNoProfiles = errors.New("no language profiles configured")
)

// DefaultThreshold is the fraction of a later language's best score the
// preferred language must reach to be selected. The comparison is inclusive.
const DefaultThreshold = 0.8

// Analyzer brute-forces shift-cipher ciphertexts.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	profiles    []*language.Profile
	threshold   float64
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(th float64) Option {
	return func(a *Analyzer) {
		if th >= 0 {
			a.threshold = th
		}
	}
}

// WithConcurrency bounds the number of keys scored at once.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// New returns an Analyzer for the given profiles. The first profile is the
// preferred language.
func New(profiles []*language.Profile, opts ...Option) *Analyzer {
	a := &Analyzer{
		profiles:    profiles,
		threshold:   DefaultThreshold,
		concurrency: cipher.AlphabetSize,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a
}

// Analyze runs an Analyzer with default options.
func Analyze(ctx context.Context, ciphertext string, profiles []*language.Profile) (*model.AnalysisReport, error) {
	return New(profiles).Analyze(ctx, ciphertext)
}

// Analyze tries all 26 keys on ciphertext.
//
// Keys are scored in parallel; the best candidate per language is then
// chosen by a sequential pass over keys 0..25 keeping the first maximum,
// so the result does not depend on scheduling.
func (a *Analyzer) Analyze(ctx context.Context, ciphertext string) (*model.AnalysisReport, error) {
	if ciphertext == "" {
		return nil, ErrEmptyCiphertext
	}
	if len(a.profiles) == 0 {
		return nil, ErrNoProfiles
	}

	trials := make([]model.Trial, cipher.AlphabetSize)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for key := range cipher.AlphabetSize {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			text := cipher.Decrypt(ciphertext, key)
			scores := make(map[string]float64, len(a.profiles))
			for _, p := range a.profiles {
				scores[p.Name()] = language.Score(text, p)
			}
			trials[key] = model.Trial{Key: key, Text: text, Scores: scores}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	report := &model.AnalysisReport{
		Ciphertext: ciphertext,
		AnalyzedAt: a.now(),
		Languages:  make([]string, len(a.profiles)),
		Threshold:  a.threshold,
		Trials:     trials,
		Best:       make([]model.Candidate, len(a.profiles)),
	}
	for i, p := range a.profiles {
		report.Languages[i] = p.Name()
		report.Best[i] = bestCandidate(trials, p.Name())
	}

	report.Verdict, report.Selected = selectCandidate(report.Best, a.threshold)

	a.logger.Debug("analysis complete",
		"languages", report.Languages,
		"verdict", report.Verdict.String(),
	)
	return report, nil
}

// bestCandidate folds over the trials in key order with a strict
// comparison, so the lowest key wins a tie.
func bestCandidate(trials []model.Trial, lang string) model.Candidate {
	best := model.Candidate{
		Language: lang,
		Key:      trials[0].Key,
		Score:    trials[0].Scores[lang],
		Text:     trials[0].Text,
	}
	for _, t := range trials[1:] {
		if s := t.Scores[lang]; s > best.Score {
			best = model.Candidate{Language: lang, Key: t.Key, Score: s, Text: t.Text}
		}
	}
	return best
}

// selectCandidate applies the selection policy pairwise in configured
// order: the current choice is kept while its score is positive and at
// least threshold times the next language's score; otherwise the next
// language takes over if its score is positive. A final choice that does
// not score above zero is inconclusive.
func selectCandidate(best []model.Candidate, threshold float64) (model.Verdict, *model.Candidate) {
	if len(best) == 0 {
		return model.VerdictInconclusive, nil
	}

	chosen := 0
	for i := 1; i < len(best); i++ {
		cur, next := best[chosen].Score, best[i].Score
		if cur > 0 && cur >= threshold*next {
			continue
		}
		if next > 0 {
			chosen = i
		}
	}

	if best[chosen].Score <= 0 {
		return model.VerdictInconclusive, nil
	}

	selected := best[chosen]
	if chosen == 0 {
		return model.VerdictPreferred, &selected
	}
	return model.VerdictFallback, &selected
}
