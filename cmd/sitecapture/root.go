package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitecapture.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecapture",
		Short: "Capture a website as a browsable offline replica",
		Long: `sitecapture crawls a website breadth-first from a single URL and writes
a self-contained offline replica to a local directory.

Pages are saved as flat HTML files with internal links pointing at each
other. Stylesheets, scripts, images and fonts are downloaded into an
assets/ tree. A sitemap.html, an index.html and a scraping_report.json
describe what was captured.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCaptureCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
