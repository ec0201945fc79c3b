package report

import (
	"bytes"
	"io"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/shahhaard47/latenteq/domain/study"
)

// HTMLWriter outputs study reports as standalone HTML pages. It renders the
// same markdown the MarkdownWriter produces and converts it.
type HTMLWriter struct {
	baseWriter
	title string
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
		title:      "latenteq report",
	}
}

// Write outputs the full study report as a complete HTML page.
func (w *HTMLWriter) Write(result *study.Result) (int, error) {
	var buf bytes.Buffer
	if err := renderStudy(&buf, result); err != nil {
		return 0, err
	}
	return w.output.Write(w.toHTML(buf.Bytes()))
}

// WriteSummary outputs the replication summary as a complete HTML page.
func (w *HTMLWriter) WriteSummary(summary *study.ReplicationSummary) (int, error) {
	var buf bytes.Buffer
	if err := renderSummary(&buf, summary); err != nil {
		return 0, err
	}
	return w.output.Write(w.toHTML(buf.Bytes()))
}

func (w *HTMLWriter) toHTML(source []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(source)

	renderer := html.NewRenderer(html.RendererOptions{
		Title: w.title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}
