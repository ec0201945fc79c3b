package report

import (
	"io"

	"github.com/shahhaard47/latenteq/domain/study"
)

// Writer defines the interface for report output. Implementations render
// study results in one format and write them to a configured destination.
type Writer interface {
	// Write renders one full study. Returns the number of bytes written.
	Write(result *study.Result) (int, error)

	// WriteSummary renders a replication batch summary.
	WriteSummary(summary *study.ReplicationSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously, for outputting to
// both terminal and file with the same call. Stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the study to all configured Writers. Returns the total
// bytes written across all of them.
func (m *MultiWriter) Write(result *study.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the replication summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *study.ReplicationSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
