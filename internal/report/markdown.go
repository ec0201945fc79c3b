package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
)

// MarkdownWriter outputs study reports as GitHub-flavored markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full study report in markdown format.
func (w *MarkdownWriter) Write(result *study.Result) (int, error) {
	var buf bytes.Buffer
	if err := renderStudy(&buf, result); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// WriteSummary outputs the replication summary in markdown format.
func (w *MarkdownWriter) WriteSummary(summary *study.ReplicationSummary) (int, error) {
	var buf bytes.Buffer
	if err := renderSummary(&buf, summary); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// renderStudy builds the full study document. Shared with the HTML writer,
// which converts the same markdown into a page.
func renderStudy(out io.Writer, result *study.Result) error {
	md := markdown.NewMarkdown(out)

	writeManifest(md, result)
	writeScenario(md, result)
	writeProfile(md, result)
	writeFit(md, "Latent-Variable Fit", result.Latent)
	writeFit(md, "Mixed-Model Fit", result.Mixed)
	writeComparison(md, result.Comparison)
	writeNotes(md)
	writeFooter(md)

	return md.Build()
}

// writeManifest writes the header with the study's reproducibility record.
func writeManifest(md *markdown.Markdown, result *study.Result) {
	md.H1("Latent Equivalence Study")
	md.PlainText("")

	m := result.Manifest
	if m == nil {
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Study", "`" + string(m.StudyID) + "`"},
			{"Scenario", m.Scenario},
			{"Units", strconv.Itoa(m.N)},
			{"Waves", strconv.Itoa(m.Waves)},
			{"Seed", strconv.FormatInt(m.Seed, 10)},
			{"Created", m.CreatedAt.Time().Format("2006-01-02 15:04:05 MST")},
			{"Runtime", fmt.Sprintf("%d ms", m.RuntimeMS)},
			{"Fingerprint", "`" + m.Fingerprint.Short() + "`"},
			{"Data hash", "`" + m.DataHash.Short() + "`"},
			{"Code", m.CodeVersion.String()},
		},
	})
	md.PlainText("")
}

// writeScenario writes the generative model next to its parameter values.
func writeScenario(md *markdown.Markdown, result *study.Result) {
	md.H2("Scenario")
	md.PlainText("")
	if result.Scenario.Description != "" {
		md.PlainText(result.Scenario.Description)
		md.PlainText("")
	}

	truth, order := result.Scenario.TrueParams()
	rows := make([][]string, 0, len(order))
	for _, key := range order {
		rows = append(rows, []string{string(key), fnum(truth[key])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Component", "Generative Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeProfile writes observed column statistics against the variances the
// scenario implies.
func writeProfile(md *markdown.Markdown, result *study.Result) {
	if len(result.Profile) == 0 {
		return
	}
	md.H2("Simulated Data")
	md.PlainText("")

	rows := make([][]string, 0, len(result.Profile))
	for k, p := range result.Profile {
		rows = append(rows, []string{
			p.Column,
			fnum(p.Mean),
			fnum(p.SD),
			fnum(p.Variance),
			fnum(result.Scenario.TheoreticalVariance(k)),
			fnum(p.Min),
			fnum(p.Max),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Column", "Mean", "SD", "Variance", "Implied Variance", "Min", "Max"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFit writes one fitter's diagnostics and estimates.
func writeFit(md *markdown.Markdown, title string, fitted *model.FittedResult) {
	if fitted == nil {
		return
	}
	md.H2(title)
	md.PlainText("")

	info := [][]string{
		{"Engine", fitted.Engine},
		{"Converged", strconv.FormatBool(fitted.Converged)},
		{"Log-likelihood", fnum(fitted.LogLik)},
		{"Deviance", fnum(fitted.Deviance)},
		{"Free parameters", strconv.Itoa(fitted.NParams)},
		{"Function evaluations", strconv.Itoa(fitted.FuncEvals)},
	}
	if fitted.Fit != nil {
		info = append(info,
			[]string{"Chi-square", fnum(fitted.Fit.ChiSquare)},
			[]string{"Degrees of freedom", strconv.Itoa(fitted.Fit.DF)},
			[]string{"P-value", fsci(fitted.Fit.PValue)},
		)
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: info})
	md.PlainText("")

	rows := make([][]string, 0, len(fitted.ParamOrder))
	for _, key := range fitted.ParamOrder {
		rows = append(rows, []string{string(key), fnum(fitted.Params[key])})
	}
	md.Table(markdown.TableSet{Header: []string{"Component", "Estimate"}, Rows: rows})
	md.PlainText("")
}

// writeComparison writes the side-by-side table, the score agreement and
// the equivalence verdict.
func writeComparison(md *markdown.Markdown, c *study.Comparison) {
	if c == nil {
		return
	}
	md.H2("Side by Side")
	md.PlainText("")

	rows := make([][]string, 0, len(c.Components))
	for _, row := range c.Components {
		rows = append(rows, []string{
			string(row.Component),
			fnum(row.Truth),
			fnum(row.Latent),
			fnum(row.Mixed),
			fnum(row.AbsDiff),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Component", "Truth", "Latent", "Mixed", "|Diff|"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("Log-likelihood delta (latent minus mixed): %s", fsci(c.LogLikDelta))
	md.PlainText("")

	md.H2("Score Agreement")
	md.PlainText("")
	scoreRows := make([][]string, 0, len(c.Scores))
	for _, s := range c.Scores {
		scoreRows = append(scoreRows, []string{
			s.Factor,
			fnum(s.Correlation),
			fmt.Sprintf("[%s, %s]", fnum(s.CILower), fnum(s.CIUpper)),
			fsci(s.MeanAbsDiff),
			strconv.Itoa(s.N),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Factor", "Correlation", "95% CI", "Mean |Diff|", "Units"},
		Rows:   scoreRows,
	})
	md.PlainText("")

	if c.Equivalent {
		md.Tip(fmt.Sprintf(
			"Equivalent: every factor's score correlation clears the %s threshold (weakest %s).",
			fnum(c.Threshold), fnum(c.MinCorrelation())))
	} else {
		md.Warningf(
			"Not equivalent: weakest score correlation %s is below the %s threshold.",
			fnum(c.MinCorrelation()), fnum(c.Threshold))
	}
	md.PlainText("")
}

// writeNotes writes the standing caveats every report carries.
func writeNotes(md *markdown.Markdown) {
	md.H2("Notes")
	md.PlainText("")
	md.BulletList(
		"Sample covariances divide by n, matching the maximum-likelihood fit function.",
		"Reported log-likelihoods are ML for both fits, even when the mixed model's search criterion is REML.",
		"Latent factor scores and mixed-model fixed-plus-BLUP predictions are the same formula in two notations.",
	)
	md.PlainText("")
}

// writeFooter writes the report footer.
func writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by latenteq*")
}

// renderSummary builds the replication batch document.
func renderSummary(out io.Writer, s *study.ReplicationSummary) error {
	md := markdown.NewMarkdown(out)

	md.H1("Replication Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Scenario", s.Scenario},
			{"Units per replication", strconv.Itoa(s.N)},
			{"Replications", strconv.Itoa(s.Replications)},
			{"Base seed", strconv.FormatInt(s.BaseSeed, 10)},
			{"Failures", strconv.Itoa(s.Failures)},
		},
	})
	md.PlainText("")

	md.H2("Score Correlation Across Replicates")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Min", "Mean", "Median", "Threshold"},
		Rows: [][]string{{
			fnum(s.MinCorrelation),
			fnum(s.MeanCorrelation),
			fnum(s.MedianCorrelation),
			fnum(s.Threshold),
		}},
	})
	md.PlainText("")

	md.H2("Replicates")
	md.PlainText("")
	rows := make([][]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		status := "ok"
		correlation := fnum(o.Correlation)
		switch {
		case o.Err != "":
			status = o.Err
			correlation = "-"
		case !o.Equivalent:
			status = "below threshold"
		}
		rows = append(rows, []string{
			strconv.Itoa(o.Replicate),
			strconv.FormatInt(o.Seed, 10),
			correlation,
			status,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Replicate", "Seed", "Correlation", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.AllEquivalent {
		md.Tip(fmt.Sprintf("All %d replications cleared the %s threshold.",
			s.Replications, fnum(s.Threshold)))
	} else {
		md.Warningf("%d of %d replications failed or fell below the %s threshold.",
			s.Failures+countBelow(s), s.Replications, fnum(s.Threshold))
	}
	md.PlainText("")

	writeFooter(md)
	return md.Build()
}

func countBelow(s *study.ReplicationSummary) int {
	var below int
	for _, o := range s.Outcomes {
		if o.Err == "" && !o.Equivalent {
			below++
		}
	}
	return below
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func fsci(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
