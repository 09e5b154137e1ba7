package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecapture/internal/config"
	"github.com/nao1215/sitecapture/internal/database"
	"github.com/nao1215/sitecapture/internal/report"
)

// historyTimeFormat is how run timestamps are shown in listings.
const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command reads past capture runs from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past captures",
		Long: `History lists capture runs recorded in the history database, newest first.

Every successful capture is recorded unless --no-history was given. Use
--show with a run ID from the listing to print that run's report again.

Examples:
  # List all recorded captures
  sitecapture history

  # List captures of one site
  sitecapture history --site https://example.com

  # Print the report of one capture as JSON
  sitecapture history --show 0f8e... --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("site", "",
		"Only list captures started from this URL")
	cmd.Flags().String("show", "",
		"Print the report of the capture with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Print the report in JSON format (with --show)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the report in Markdown format (with --show)")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	site, err := flags.GetString("site")
	if err != nil {
		return err
	}
	show, err := flags.GetString("show")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingSummaryFormats
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if show != "" {
		r, err := db.GetCaptureReport(ctx, show)
		if err != nil {
			return err
		}

		var w report.Writer
		switch {
		case jsonOutput:
			w = report.NewFullJSONWriter(out, getVersion(), show, report.WithPrettyPrint())
		case markdownOutput:
			w = report.NewMarkdownWriter(out)
		default:
			w = report.NewSimpleWriter(out, report.WithShowEmpty(true), report.WithVerbose(getVerboseFlag(cmd)))
		}
		_, err = w.Write(r)
		return err
	}

	captures, err := db.ListCaptures(ctx, site)
	if err != nil {
		return err
	}
	return listCaptures(out, captures)
}

// listCaptures prints capture summaries as an aligned table.
func listCaptures(out io.Writer, captures []database.CaptureSummary) error {
	if len(captures) == 0 {
		_, err := fmt.Fprintln(out, "No captures recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tPAGES\tASSETS\tURL\tOUTPUT")
	for _, c := range captures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			c.ID,
			c.StartedAt.Local().Format(historyTimeFormat),
			duration(c.StartedAt, c.FinishedAt),
			c.TotalPages,
			c.TotalAssets,
			c.BaseURL,
			c.OutputDir,
		)
	}
	return tw.Flush()
}

// duration formats the run time of a capture, or "-" when unknown.
func duration(started, finished time.Time) string {
	if started.IsZero() || finished.IsZero() || finished.Before(started) {
		return "-"
	}
	return finished.Sub(started).Round(time.Millisecond).String()
}
