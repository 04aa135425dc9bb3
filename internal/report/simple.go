package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/stealthping/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
// The selected candidate is highlighted when the output supports color.
type SimpleWriter struct {
	baseWriter

	// trials prints the score of every key, not only the best ones.
	// It is on by default.
	trials bool

	// highlight styles the selected candidate.
	highlight bool

	selected lipgloss.Style
	muted    lipgloss.Style
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTrials shows or hides the full per-key score table.
func WithTrials(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.trials = show
	}
}

// WithHighlight enables or disables styling of the selected candidate.
func WithHighlight(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.highlight = enabled
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// Colors are chosen for the output's own terminal profile, so writing to a
// file or a pipe yields plain text.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	r := lipgloss.NewRenderer(output)
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		trials:     true,
		highlight:  true,
		selected:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		muted:      r.NewStyle().Foreground(lipgloss.Color("8")),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteAnalysis outputs the analysis in human-readable format.
func (w *SimpleWriter) WriteAnalysis(report *model.AnalysisReport) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "STEALTHPING ANALYSIS")
	w.writeAnalysisHeader(&sb, report)
	w.writeAnalysisBody(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// WriteCapture outputs the capture session in human-readable format.
func (w *SimpleWriter) WriteCapture(report *model.CaptureReport) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "STEALTHPING CAPTURE")
	w.writeCaptureHeader(&sb, report)
	w.writeMessage(&sb, report)

	if report.Analysis != nil {
		w.writeAnalysisBody(&sb, report.Analysis)
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := (ruleWidth - len(title)) / 2
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeAnalysisHeader(sb *strings.Builder, report *model.AnalysisReport) {
	sb.WriteString(fmt.Sprintf("Ciphertext:  %s\n", report.Ciphertext))
	if !report.AnalyzedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Analyzed:    %s\n", report.AnalyzedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString(fmt.Sprintf("Languages:   %s\n", strings.Join(LanguageTitles(report.Languages), ", ")))
	sb.WriteString(fmt.Sprintf("Threshold:   %.0f%%\n", report.Threshold*100))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCaptureHeader(sb *strings.Builder, report *model.CaptureReport) {
	sb.WriteString(fmt.Sprintf("Source:      %s\n", report.Source))
	sb.WriteString(fmt.Sprintf("Started:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", report.Duration.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Status:      %s\n", stateSummary(report)))
	if report.Identifier != 0 {
		sb.WriteString(fmt.Sprintf("Identifier:  %d\n", report.Identifier))
	}
	sb.WriteString(fmt.Sprintf("End marker:  %s\n", FormatByte(report.EndMarker)))
	sb.WriteString(fmt.Sprintf("Packets:     %d (discarded %d, duplicates %d)\n",
		report.Packets, report.Discarded, report.Duplicates))
	if len(report.Missing) > 0 {
		sb.WriteString(fmt.Sprintf("Missing:     %s\n", FormatSequences(report.Missing)))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeMessage(sb *strings.Builder, report *model.CaptureReport) {
	w.writeSection(sb, "MESSAGE")

	if len(report.Message) == 0 {
		sb.WriteString("  (empty)\n\n")
		return
	}
	sb.WriteString(fmt.Sprintf("  %s\n\n", report.Text))
	sb.WriteString(fmt.Sprintf("  Bytes:     %d\n", len(report.Message)))
	sb.WriteString(fmt.Sprintf("  Encoding:  %s\n", report.Encoding))
	if report.Digest != "" {
		sb.WriteString(fmt.Sprintf("  SHA3-256:  %s\n", report.Digest))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeAnalysisBody(sb *strings.Builder, report *model.AnalysisReport) {
	if w.trials {
		w.writeTrials(sb, report)
	}
	w.writeBest(sb, report)
	w.writeVerdict(sb, report)
}

func (w *SimpleWriter) writeTrials(sb *strings.Builder, report *model.AnalysisReport) {
	w.writeSection(sb, "TRIALS")

	sb.WriteString("  KEY")
	for _, name := range LanguageTitles(report.Languages) {
		sb.WriteString(fmt.Sprintf("  %10s", name))
	}
	sb.WriteString("  TEXT\n")

	for _, trial := range report.Trials {
		line := fmt.Sprintf("  %3d", trial.Key)
		for _, name := range report.Languages {
			line += fmt.Sprintf("  %10.2f", trial.Scores[name])
		}
		line += "  " + trial.Text
		if w.isSelectedKey(report, trial.Key) {
			line = w.style(w.selected, line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBest(sb *strings.Builder, report *model.AnalysisReport) {
	w.writeSection(sb, "BEST CANDIDATES")

	for _, c := range report.Best {
		line := fmt.Sprintf("  %-10s key %2d  score %8.2f  %s", LanguageTitle(c.Language), c.Key, c.Score, c.Text)
		if report.Selected != nil && report.Selected.Language == c.Language {
			line = w.style(w.selected, line+"  <= selected")
		} else {
			line = w.style(w.muted, line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVerdict(sb *strings.Builder, report *model.AnalysisReport) {
	sb.WriteString(fmt.Sprintf("VERDICT: %s (%s)\n", report.Verdict, verdictSummary(report)))
	if report.Conclusive() {
		sb.WriteString("  " + w.style(w.selected, report.Selected.Text) + "\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) isSelectedKey(report *model.AnalysisReport, key int) bool {
	return report.Selected != nil && report.Selected.Key == key
}

func (w *SimpleWriter) style(s lipgloss.Style, text string) string {
	if !w.highlight {
		return text
	}
	return s.Render(text)
}
