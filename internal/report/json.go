package report

import (
	"encoding/json"
	"io"

	"github.com/shahhaard47/latenteq/domain/study"
)

// JSONWriter outputs study reports as JSON for machine consumption.
type JSONWriter struct {
	baseWriter
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent string.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables two-space indented output.
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

// Write outputs the full study result as JSON.
func (w *JSONWriter) Write(result *study.Result) (int, error) {
	return w.writeJSON(result)
}

// WriteSummary outputs the replication summary as JSON.
func (w *JSONWriter) WriteSummary(summary *study.ReplicationSummary) (int, error) {
	return w.writeJSON(summary)
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
