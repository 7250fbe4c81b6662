// Package cmd — serve command.
// Runs the AMP proxy: a server that mirrors a canonical site's pages as AMP
// under an /amp path prefix.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/ampify/server"
)

var flagConfig string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve AMP variants of an upstream site",
	Long: `Serve starts an HTTP server that maps <amp_prefix>/<path> to the
canonical page at <upstream>/<path>, transformed to AMP on the fly.

Example:
  ampify serve --config ampify.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagConfig, "config", "ampify.yaml", "Path to the YAML config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := server.LoadConfig(flagConfig)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, logger).ListenAndServe(ctx)
}
