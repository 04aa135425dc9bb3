package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/stealthping/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter

	// trials adds the per-key score table. It is on by default.
	trials bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownTrials shows or hides the per-key score table.
func WithMarkdownTrials(show bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.trials = show
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		trials:     true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteAnalysis outputs the analysis in Markdown format.
func (w *MarkdownWriter) WriteAnalysis(report *model.AnalysisReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Stealthping Analysis")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   w.analysisRows(report),
	})
	md.PlainText("")

	w.writeAnalysisBody(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteCapture outputs the capture session in Markdown format.
func (w *MarkdownWriter) WriteCapture(report *model.CaptureReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Stealthping Capture")
	md.PlainText("")

	rows := [][]string{
		{"Source", "`" + report.Source + "`"},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", report.Duration.String()},
		{"Status", w.getStatusText(report)},
		{"End Marker", "`" + FormatByte(report.EndMarker) + "`"},
		{"Packets", strconv.Itoa(report.Packets)},
		{"Discarded", strconv.Itoa(report.Discarded)},
		{"Duplicates", strconv.Itoa(report.Duplicates)},
	}
	if report.Identifier != 0 {
		rows = append(rows, []string{"Identifier", strconv.Itoa(int(report.Identifier))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Missing) > 0 {
		md.Warningf("%d sequence number(s) never arrived: %s", len(report.Missing), FormatSequences(report.Missing))
		md.PlainText("")
	}

	md.H2("Message")
	md.PlainText("")
	if len(report.Message) == 0 {
		md.PlainText("No data bytes were captured.")
		md.PlainText("")
	} else {
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows: [][]string{
				{"Text", "`" + escapeCell(report.Text) + "`"},
				{"Bytes", strconv.Itoa(len(report.Message))},
				{"Encoding", report.Encoding},
				{"SHA3-256", "`" + report.Digest + "`"},
			},
		})
		md.PlainText("")
	}

	if report.Analysis != nil {
		w.writeAnalysisBody(md, report.Analysis)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) analysisRows(report *model.AnalysisReport) [][]string {
	rows := [][]string{
		{"Ciphertext", "`" + escapeCell(report.Ciphertext) + "`"},
	}
	if !report.AnalyzedAt.IsZero() {
		rows = append(rows, []string{"Analyzed", report.AnalyzedAt.Format("2006-01-02 15:04:05 MST")})
	}
	return append(rows,
		[]string{"Languages", strings.Join(LanguageTitles(report.Languages), ", ")},
		[]string{"Threshold", fmt.Sprintf("%.0f%%", report.Threshold*100)},
	)
}

func (w *MarkdownWriter) getStatusText(report *model.CaptureReport) string {
	if report.Complete() {
		return "✅ " + stateSummary(report)
	}
	return "⚠️ " + stateSummary(report)
}

func (w *MarkdownWriter) writeAnalysisBody(md *markdown.Markdown, report *model.AnalysisReport) {
	md.H2("Best Candidates")
	md.PlainText("")

	rows := make([][]string, len(report.Best))
	for i, c := range report.Best {
		name := LanguageTitle(c.Language)
		if report.Selected != nil && report.Selected.Language == c.Language {
			name = "**" + name + "**"
		}
		rows[i] = []string{name, strconv.Itoa(c.Key), formatScore(c.Score), "`" + escapeCell(c.Text) + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Language", "Key", "Score", "Plaintext"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
	w.writeVerdict(md, report)

	if w.trials && len(report.Trials) > 0 {
		w.writeTrials(md, report)
	}
}

// writePieChart charts the best score of each language. Languages that
// scored zero or less are left out; no chart is drawn if none remain.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.AnalysisReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Best Score by Language"),
		piechart.WithShowData(true),
	)

	plotted := 0
	for _, c := range report.Best {
		if c.Score <= 0 {
			continue
		}
		chart.LabelAndIntValue(LanguageTitle(c.Language), uint64(math.Round(c.Score)))
		plotted++
	}
	if plotted == 0 {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeVerdict(md *markdown.Markdown, report *model.AnalysisReport) {
	switch report.Verdict {
	case model.VerdictPreferred:
		md.Tip(fmt.Sprintf("Preferred language selected: %s. Plaintext: %s",
			verdictSummary(report), report.Selected.Text))
	case model.VerdictFallback:
		md.Importantf("Fallback language selected: %s. Plaintext: %s",
			verdictSummary(report), report.Selected.Text)
	default:
		md.Cautionf("Inconclusive: %s.", verdictSummary(report))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTrials(md *markdown.Markdown, report *model.AnalysisReport) {
	header := append([]string{"Key"}, LanguageTitles(report.Languages)...)
	header = append(header, "Text")

	rows := make([][]string, len(report.Trials))
	for i, trial := range report.Trials {
		row := []string{strconv.Itoa(trial.Key)}
		for _, name := range report.Languages {
			row = append(row, formatScore(trial.Scores[name]))
		}
		rows[i] = append(row, "`"+escapeCell(trial.Text)+"`")
	}

	md.Details("All keys", markdown.NewMarkdown(io.Discard).Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	}).String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [stealthping](https://github.com/nao1215/stealthping)*")
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

// escapeCell keeps table cells on one row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "`", "'")
}
