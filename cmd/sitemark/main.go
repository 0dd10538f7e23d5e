// Package main provides the sitemark binary entry point.
// Sitemark fetches web pages and converts them into trees of Markdown
// files split by section, with downloaded images and a README index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitemark/sitemark/config"
	"github.com/sitemark/sitemark/pipeline"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sitemark"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		outputDir  string
		logLevel   string
		verbose    bool
		timeout    time.Duration
		renderJS   bool
	)

	cmd := &cobra.Command{
		Use:   "sitemark [url...]",
		Short: "Convert web pages to Markdown file trees",
		Long: `Sitemark fetches web pages and converts them into trees of Markdown
files, one file per top-level section, with a README index linking them.

It provides:
- Section splitting on configurable heading levels
- Image downloading with local reference rewriting
- Cross-section link resolution
- A manifest recording every generated file with its checksum`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logLevel = "debug"
			}
			return run(args, configPath, outputDir, logLevel, timeout, renderJS, cmd.Flags().Changed("render-js"))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (shorthand for --log-level debug)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Page fetch timeout (overrides config)")
	cmd.Flags().BoolVar(&renderJS, "render-js", false, "Render pages in a headless browser before conversion")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default user config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			return config.NewLoader(logger).EnsureUserConfig()
		},
	})

	return cmd
}

func run(urls []string, configPath, outputDir, logLevel string, timeout time.Duration, renderJS, renderJSSet bool) error {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if timeout > 0 {
		cfg.Fetch.Timeout = config.Duration(timeout)
	}
	if renderJSSet {
		cfg.Fetch.RenderJS = renderJS
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting conversion",
		slog.Int("urls", len(urls)),
		slog.String("output_dir", cfg.OutputDir))

	summary := pipeline.NewRunner(p, cfg.OutputDir, logger).Run(ctx, urls)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d pages failed", summary.Failed, len(urls))
	}
	return nil
}
