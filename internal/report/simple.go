package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitecapture/internal/model"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every URL mapping, aliases included.
	verbose bool

	// upper renders section titles.
	upper cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		upper:      cases.Upper(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CaptureReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeDepths(&sb, report)
	w.writePages(&sb, report)
	w.writeMappings(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// section writes a titled separator.
func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.upper.String(title))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with capture information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CaptureReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      SITE CAPTURE REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Base URL:       %s\n", report.BaseURL)
	fmt.Fprintf(sb, "Capture Date:   %s\n", report.ScrapingDate.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Pages:          %d\n", report.TotalPages)
	fmt.Fprintf(sb, "Assets:         %d\n", report.TotalAssets)
	fmt.Fprintf(sb, "Output:         %s\n", report.OutputDirectory)
	sb.WriteString("\n")
}

// writeDepths writes the page count per depth.
func (w *SimpleWriter) writeDepths(sb *strings.Builder, report *model.CaptureReport) {
	depths := pagesPerDepth(report)
	if len(depths) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "pages per depth")
	if len(depths) == 0 {
		sb.WriteString("  No pages captured\n\n")
		return
	}
	for _, d := range depths {
		fmt.Fprintf(sb, "  depth %d: %d\n", d.depth, d.pages)
	}
	sb.WriteString("\n")
}

// writePages lists captured pages.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CaptureReport) {
	if len(report.Pages) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "captured pages")
	if len(report.Pages) == 0 {
		sb.WriteString("  No pages captured\n\n")
		return
	}
	for _, p := range report.Pages {
		fmt.Fprintf(sb, "  [+] %s\n", p.Filename)
		fmt.Fprintf(sb, "      %s (%s, depth %d)\n", p.Title, p.URL, p.Depth)
	}
	sb.WriteString("\n")
}

// writeMappings lists every URL→file entry in verbose mode.
func (w *SimpleWriter) writeMappings(sb *strings.Builder, report *model.CaptureReport) {
	if !w.verbose {
		return
	}
	if len(report.URLMappings) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "url mappings")
	for _, m := range report.URLMappings {
		fmt.Fprintf(sb, "  %s -> %s\n", m.OriginalURL, m.LocalFilename)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitecapture\n")
	sb.WriteString("https://github.com/nao1215/sitecapture\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
