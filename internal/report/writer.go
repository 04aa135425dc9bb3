package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/stealthping/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// WriteAnalysis outputs the result of a brute-force analysis.
	WriteAnalysis(report *model.AnalysisReport) (int, error)

	// WriteCapture outputs a capture session, including its analysis
	// when one is attached.
	WriteCapture(report *model.CaptureReport) (int, error)
}

// MultiWriter writes to multiple Writers in order and stops on the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteAnalysis outputs the analysis to all configured Writers.
func (m *MultiWriter) WriteAnalysis(report *model.AnalysisReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAnalysis(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteCapture outputs the capture report to all configured Writers.
func (m *MultiWriter) WriteCapture(report *model.CaptureReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteCapture(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// LanguageTitle returns a profile name as a display title, e.g.
// "english" becomes "English".
func LanguageTitle(name string) string {
	return cases.Title(language.English).String(name)
}

// LanguageTitles applies LanguageTitle to every name.
func LanguageTitles(names []string) []string {
	titles := make([]string, len(names))
	for i, n := range names {
		titles[i] = LanguageTitle(n)
	}
	return titles
}

// FormatByte renders a captured byte as a quoted character when it is
// printable ASCII and as \xNN otherwise.
func FormatByte(b byte) string {
	if b >= 0x20 && b < 0x7f {
		return fmt.Sprintf("'%c'", b)
	}
	return fmt.Sprintf(`\x%02x`, b)
}

// FormatSequences renders sequence numbers as a comma separated list.
func FormatSequences(seqs []uint16) string {
	if len(seqs) == 0 {
		return "none"
	}
	parts := make([]string, len(seqs))
	for i, s := range seqs {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ", ")
}

// verdictSummary describes the selection in one line.
func verdictSummary(report *model.AnalysisReport) string {
	if !report.Conclusive() {
		return "no language scored above zero"
	}
	return fmt.Sprintf("%s, key %d", LanguageTitle(report.Selected.Language), report.Selected.Key)
}

// stateSummary describes how a capture ended.
func stateSummary(report *model.CaptureReport) string {
	if report.Complete() {
		return "Complete"
	}
	if report.Reason != "" {
		return "Cancelled (" + report.Reason + ")"
	}
	return "Cancelled"
}
