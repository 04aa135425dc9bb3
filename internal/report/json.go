package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/stealthping/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is shorthand for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteAnalysis outputs the analysis in JSON format.
func (w *JSONWriter) WriteAnalysis(report *model.AnalysisReport) (int, error) {
	return w.writeJSON(report)
}

// WriteCapture outputs the capture report in JSON format.
func (w *JSONWriter) WriteCapture(report *model.CaptureReport) (int, error) {
	return w.writeJSON(report)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a report with the version of the tool that produced it.
// Exactly one of Analysis and Capture is set.
type JSONReport struct {
	Version  string                `json:"version"`
	Analysis *model.AnalysisReport `json:"analysis,omitempty"`
	Capture  *model.CaptureReport  `json:"capture,omitempty"`
}

// FullJSONWriter outputs reports inside a JSONReport envelope.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for reports with version metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// WriteAnalysis outputs the analysis wrapped with metadata.
func (w *FullJSONWriter) WriteAnalysis(report *model.AnalysisReport) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Analysis: report})
}

// WriteCapture outputs the capture report wrapped with metadata.
func (w *FullJSONWriter) WriteCapture(report *model.CaptureReport) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Capture: report})
}
