// Package cmd — convert command.
// Converts a single page (or, with --all, a whole site) to AMP files on
// disk. The source can be a URL or a local HTML file.
package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/ampify/core"
	"github.com/gaurav-prasanna/ampify/core/amp"
	"github.com/gaurav-prasanna/ampify/core/assets"
	"github.com/gaurav-prasanna/ampify/core/fetch"
	"github.com/gaurav-prasanna/ampify/core/imgprobe"
	"github.com/gaurav-prasanna/ampify/core/output"
	"github.com/gaurav-prasanna/ampify/core/report"
	"github.com/gaurav-prasanna/ampify/crawl"
)

// Flag variables.
var (
	flagAll          bool
	flagCanonical    string
	flagReport       string
	flagStaticDir    string
	flagStaticPrefix string
	flagOutputDir    string
)

var convertCmd = &cobra.Command{
	Use:   "convert <url|file>",
	Short: "Convert a page (or site) to AMP",
	Long: `Convert fetches or reads an HTML document, runs the AMP transformation
pipeline, and writes the result as an .amp.html file.

Examples:
  ampify convert https://example.com/article --static_dir ./static
  ampify convert page.html --canonical /article
  ampify convert https://example.com --all --output_dir ./amp
  ampify convert https://example.com/article --report md`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().BoolVar(&flagAll, "all", false, "Convert all discovered internal pages")
	convertCmd.Flags().StringVar(&flagCanonical, "canonical", "", "Canonical path for the link[rel=canonical] (default: the source URL path)")
	convertCmd.Flags().StringVar(&flagReport, "report", "", "Also write a transform report: md, json, or pdf")
	convertCmd.Flags().StringVar(&flagStaticDir, "static_dir", "", "Local directory holding the site's static assets (enables stylesheet inlining)")
	convertCmd.Flags().StringVar(&flagStaticPrefix, "static_prefix", "/static/", "URL prefix the static assets are served under")
	convertCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	source := args[0]

	parsed, err := url.Parse(source)
	remote := err == nil && parsed.Scheme != "" && parsed.Host != ""

	if flagAll && !remote {
		return fmt.Errorf("--all requires a URL source, got %s", source)
	}

	reporter, err := selectRenderer(flagReport)
	if err != nil {
		return err
	}

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	transformer := buildTransformer(source, remote)
	ctx := context.Background()

	if flagAll {
		return convertAll(ctx, source, transformer, writer)
	}
	return convertOne(ctx, source, remote, transformer, writer, reporter)
}

// buildTransformer assembles the pipeline collaborators from flags. Without
// a static directory there is no stylesheet resolver and inlined styles come
// out empty; remote sources get an image prober rooted at the source URL.
func buildTransformer(source string, remote bool) *amp.Transformer {
	var resolver core.AssetResolver
	if flagStaticDir != "" {
		resolver = assets.New(flagStaticPrefix, flagStaticDir)
	}

	var prober core.ImageProber
	if remote {
		prober = imgprobe.New(imgprobe.WithBase(source))
	}

	return amp.New(resolver, prober)
}

// convertOne runs a single document through the pipeline.
func convertOne(ctx context.Context, source string, remote bool, transformer *amp.Transformer, writer *output.Writer, reporter core.Renderer) error {
	raw, canonical, err := loadSource(ctx, source, remote)
	if err != nil {
		return err
	}
	if flagCanonical != "" {
		canonical = flagCanonical
	}

	ampHTML, rep, err := transformer.TransformWithReport(ctx, raw, canonical)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	path, err := writer.WritePage(source, []byte(ampHTML))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)

	if reporter != nil {
		data, err := reporter.Render(*rep)
		if err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
		path, err := writer.WriteReport(source, data, reporter.Extension())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Report:  %s\n", path)
	}
	return nil
}

// convertAll discovers all internal pages and converts each one, mirroring
// the site structure under the output directory.
func convertAll(ctx context.Context, baseURL string, transformer *amp.Transformer, writer *output.Writer) error {
	fetcher := fetch.New()

	fmt.Fprintf(os.Stdout, "Discovering pages from %s...\n", baseURL)
	urls, err := crawl.Discover(ctx, baseURL, fetcher)
	if err != nil {
		return fmt.Errorf("discovering pages: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Found %d pages to convert\n", len(urls))

	var errCount int
	for i, pageURL := range urls {
		fmt.Fprintf(os.Stdout, "[%d/%d] Converting %s\n", i+1, len(urls), pageURL)

		result, err := fetcher.Fetch(ctx, pageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Fetch error: %v\n", err)
			errCount++
			continue
		}
		if result.StatusCode < 200 || result.StatusCode >= 300 {
			fmt.Fprintf(os.Stderr, "  ✗ Skipped: upstream returned %d\n", result.StatusCode)
			errCount++
			continue
		}

		parsed, _ := url.Parse(pageURL)
		canonical := parsed.Path
		if canonical == "" {
			canonical = "/"
		}

		ampHTML, err := transformer.Transform(ctx, []byte(result.HTML), canonical)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Transform error: %v\n", err)
			errCount++
			continue
		}

		path, err := writer.WriteMirrored(pageURL, []byte(ampHTML))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Write error: %v\n", err)
			errCount++
			continue
		}
		fmt.Fprintf(os.Stdout, "  ✓ Written: %s\n", path)
	}

	if errCount > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d pages failed\n", errCount, len(urls))
	}
	return nil
}

// loadSource fetches a remote page or reads a local file, and derives the
// default canonical path.
func loadSource(ctx context.Context, source string, remote bool) ([]byte, string, error) {
	if !remote {
		raw, err := os.ReadFile(source)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", source, err)
		}
		return raw, "/", nil
	}

	result, err := fetch.New().Fetch(ctx, source)
	if err != nil {
		return nil, "", err
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetching %s: upstream returned %d", source, result.StatusCode)
	}

	parsed, _ := url.Parse(source)
	canonical := parsed.Path
	if canonical == "" {
		canonical = "/"
	}
	return []byte(result.HTML), canonical, nil
}

// selectRenderer maps the --report flag to a report renderer; an empty flag
// means no report.
func selectRenderer(format string) (core.Renderer, error) {
	switch format {
	case "":
		return nil, nil
	case "md", "markdown":
		return report.NewMarkdownRenderer(), nil
	case "json":
		return report.NewJSONRenderer(), nil
	case "pdf":
		return report.NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want md, json, or pdf)", format)
	}
}
