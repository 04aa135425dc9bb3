package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nao1215/stealthping/internal/database"
	"github.com/nao1215/stealthping/internal/intercept"
	"github.com/nao1215/stealthping/internal/model"
	"github.com/nao1215/stealthping/internal/report"
)

// NewCaptureReport turns an interceptor result into the report the
// pipeline works on. identifier is zero when no filter was set.
func NewCaptureReport(source string, res intercept.Result, endMarker byte, identifier uint16) *model.CaptureReport {
	return &model.CaptureReport{
		Source:     source,
		StartedAt:  res.Started,
		Duration:   res.Elapsed,
		State:      res.State.String(),
		Reason:     res.Reason,
		Identifier: identifier,
		EndMarker:  endMarker,
		Packets:    res.Packets,
		Discarded:  res.Discarded,
		Duplicates: res.Duplicates,
		Missing:    res.Missing,
		Message:    res.Bytes,
		Text:       res.Text,
		Encoding:   res.Encoding,
	}
}

// DigestStep fills the SHA3-256 digest of the message.
type DigestStep struct{}

// NewDigestStep creates a DigestStep.
func NewDigestStep() *DigestStep {
	return &DigestStep{}
}

// Name returns the step name.
func (s *DigestStep) Name() string {
	return "digest"
}

// Do computes the digest.
func (s *DigestStep) Do(_ context.Context, report *model.CaptureReport) error {
	report.Digest = database.Digest(report.Message)
	return nil
}

// Analyzer is the part of cryptanalysis.Analyzer the pipeline needs.
type Analyzer interface {
	Analyze(ctx context.Context, ciphertext string) (*model.AnalysisReport, error)
}

// AnalyzeStep breaks the captured ciphertext.
type AnalyzeStep struct {
	analyzer Analyzer
	logger   *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.logger = logger
	}
}

// NewAnalyzeStep creates an AnalyzeStep.
func NewAnalyzeStep(analyzer Analyzer, opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{analyzer: analyzer}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do analyzes report.Text. An empty message is skipped without error.
func (s *AnalyzeStep) Do(ctx context.Context, report *model.CaptureReport) error {
	if report.Text == "" {
		s.logger.Info("nothing to analyze", "source", report.Source)
		return nil
	}

	analysis, err := s.analyzer.Analyze(ctx, report.Text)
	if err != nil {
		return fmt.Errorf("failed to analyze capture: %w", err)
	}
	report.Analysis = analysis
	return nil
}

// Store is the part of database.SessionDB the pipeline needs.
type Store interface {
	SaveCapture(ctx context.Context, report *model.CaptureReport) (int64, error)
}

// SaveStep stores the session.
type SaveStep struct {
	store Store
}

// NewSaveStep creates a SaveStep.
func NewSaveStep(store Store) *SaveStep {
	return &SaveStep{store: store}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves the report. Its ID is set by the store. The stored copy lists
// this step among the completed ones; the pipeline records it on the live
// report once Do returns.
func (s *SaveStep) Do(ctx context.Context, report *model.CaptureReport) error {
	done := report.Steps
	report.Steps = append(slices.Clip(done), s.Name())
	_, err := s.store.SaveCapture(ctx, report)
	report.Steps = done
	if err != nil {
		return fmt.Errorf("failed to store capture session: %w", err)
	}
	return nil
}

// ReportStep writes the report with a report.Writer.
type ReportStep struct {
	writer report.Writer
}

// NewReportStep creates a ReportStep.
func NewReportStep(writer report.Writer) *ReportStep {
	return &ReportStep{writer: writer}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, r *model.CaptureReport) error {
	if _, err := s.writer.WriteCapture(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// CaptureConfig selects the steps of CapturePipeline. Nil components leave
// their step out.
type CaptureConfig struct {
	Analyzer Analyzer
	Store    Store
	Writer   report.Writer
	Logger   *slog.Logger
}

// CapturePipeline returns the standard post-capture pipeline:
// digest, analyze, save, report. Analysis failures do not stop the session
// from being stored or reported.
func CapturePipeline(cfg CaptureConfig) *Pipeline {
	steps := []Step{NewDigestStep()}
	if cfg.Analyzer != nil {
		steps = append(steps, NewAnalyzeStep(cfg.Analyzer, WithAnalyzeLogger(cfg.Logger)))
	}
	if cfg.Store != nil {
		steps = append(steps, NewSaveStep(cfg.Store))
	}
	if cfg.Writer != nil {
		steps = append(steps, NewReportStep(cfg.Writer))
	}

	p := New(WithLogger(cfg.Logger), WithContinueOnError(true))
	p.AddSteps(steps...)
	return p
}
