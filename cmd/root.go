// Package cmd implements the CLI commands for ampify using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ampify",
	Short: "ampify — rewrite HTML documents into AMP-compliant variants",
	Long: `ampify converts standard HTML pages into AMP pages: it normalizes
document metadata, strips disallowed scripts, inlines local stylesheets,
injects the AMP runtime and boilerplate, and replaces <img> elements with
<amp-img> carrying explicit dimensions.

Usage:
  ampify convert <url|file> [flags]
  ampify serve --config <file>`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
