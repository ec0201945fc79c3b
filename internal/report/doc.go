// Package report renders study results in the supported output formats:
//   - MarkdownWriter: GitHub-flavored markdown for sharing and review
//   - HTMLWriter: a self-contained rendered page
//   - JSONWriter: machine-readable output for tool integration
//
// Writers implement the Writer interface, so they can be used
// interchangeably and composed with MultiWriter for multi-format output.
package report
