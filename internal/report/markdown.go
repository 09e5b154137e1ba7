package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecapture/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CaptureReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeDepths(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with capture information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CaptureReport) {
	md.H1("Site Capture Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", "`" + report.BaseURL + "`"},
			{"Capture Date", report.ScrapingDate.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(report.TotalPages)},
			{"Assets", strconv.Itoa(report.TotalAssets)},
			{"Deepest Page", strconv.Itoa(report.MaxDepth())},
			{"Output Directory", "`" + report.OutputDirectory + "`"},
		},
	})
	md.PlainText("")

	if report.TotalPages == 0 {
		md.Warningf("No pages were captured. Check the target URL and the log output.")
	} else {
		md.Tip(fmt.Sprintf("Open `%s/index.html` in a browser to view the capture offline.", report.OutputDirectory))
	}
	md.PlainText("")
}

// writeDepths writes a mermaid pie chart of pages per depth.
func (w *MarkdownWriter) writeDepths(md *markdown.Markdown, report *model.CaptureReport) {
	depths := pagesPerDepth(report)
	if len(depths) < 2 {
		return
	}

	md.H2("Pages per Depth")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Depth"),
		piechart.WithShowData(true),
	)
	for _, d := range depths {
		chart.LabelAndIntValue("Depth "+strconv.Itoa(d.depth), uint64(d.pages)) //nolint:gosec // counts are never negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes the captured pages table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CaptureReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages captured.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		rows[i] = []string{
			truncateString(p.Title, 40),
			truncateString(p.URL, 60),
			"`" + p.Filename + "`",
			strconv.Itoa(p.Depth),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Title", "URL", "File", "Depth"},
		Rows:   rows,
	})
	md.PlainText("")

	if aliases := len(report.URLMappings) - len(report.Pages); aliases > 0 {
		md.Note(fmt.Sprintf("%d URL(s) share a file with another page and are listed in scraping_report.json.", aliases))
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecapture](https://github.com/nao1215/sitecapture)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
