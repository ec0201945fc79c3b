package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shahhaard47/latenteq/domain/study"
	"github.com/shahhaard47/latenteq/internal/config"
	"github.com/shahhaard47/latenteq/internal/report"
)

// newReportWriter builds the writer for the configured format and
// destination. The returned close function is a no-op for stdout.
func newReportWriter(cfg *config.Config) (report.Writer, func() error, error) {
	var output io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if cfg.Report.Output != "" {
		dir := filepath.Dir(cfg.Report.Output)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(cfg.Report.Output)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		closeFn = f.Close
	}

	var w report.Writer
	switch cfg.Report.Format {
	case config.FormatJSON:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case config.FormatHTML:
		w = report.NewHTMLWriter(output)
	default:
		w = report.NewMarkdownWriter(output)
	}
	return w, closeFn, nil
}

// outputStudy renders one study result to the configured destination.
func outputStudy(cfg *config.Config, result *study.Result) error {
	w, closeFn, err := newReportWriter(cfg)
	if err != nil {
		return err
	}
	if _, err := w.Write(result); err != nil {
		_ = closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}

// outputSummary renders a replication summary to the configured destination.
func outputSummary(cfg *config.Config, summary *study.ReplicationSummary) error {
	w, closeFn, err := newReportWriter(cfg)
	if err != nil {
		return err
	}
	if _, err := w.WriteSummary(summary); err != nil {
		_ = closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}
