package pipeline

import (
	"context"
	"log/slog"
)

// Summary reports the outcome of a batch run.
type Summary struct {
	Converted int
	Failed    int
	// Errors maps each failed URL to its error.
	Errors map[string]error
}

// Runner converts a batch of URLs, isolating failures so one bad page
// never aborts the rest.
type Runner struct {
	pipeline  *Pipeline
	outputDir string
	logger    *slog.Logger
}

// NewRunner creates a Runner writing under outputDir.
func NewRunner(p *Pipeline, outputDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{pipeline: p, outputDir: outputDir, logger: logger}
}

// Run converts every URL in order and writes the results to disk.
// Cancellation stops the batch; the summary covers what was attempted.
func (r *Runner) Run(ctx context.Context, urls []string) Summary {
	summary := Summary{Errors: make(map[string]error)}

	for _, pageURL := range urls {
		if err := ctx.Err(); err != nil {
			summary.Failed++
			summary.Errors[pageURL] = err
			continue
		}

		result, err := r.pipeline.ConvertPage(ctx, pageURL)
		if err == nil {
			err = Materialize(result, r.outputDir)
		}
		if err != nil {
			summary.Failed++
			summary.Errors[pageURL] = err
			r.logger.Error("Conversion failed",
				slog.String("url", pageURL), slog.String("error", err.Error()))
			continue
		}

		summary.Converted++
		r.logger.Info("Converted page",
			slog.String("url", result.URL),
			slog.String("dir", result.Dir),
			slog.Int("files", len(result.Files)),
			slog.Int("assets", len(result.Assets)))
	}

	r.logger.Info("Batch complete",
		slog.Int("converted", summary.Converted),
		slog.Int("failed", summary.Failed))
	return summary
}
