package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/retry"
	"github.com/ppiankov/dossier/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	taskTimeout  time.Duration
	noRetry      bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Assemble and persist dossiers for a list of subjects",
	Long: `Batch reads "name,wikidataid" lines and assembles each subject:
- Blank lines and lines starting with # are ignored
- The identifier follows the last comma, so names may contain commas
- Subjects run in parallel with a configurable worker count
- Every valid document is written to the clean index
- With --output-dir each document is also rendered to JSON and Markdown

Example:
  dossier batch subjects.csv
  dossier batch subjects.csv --concurrency 8 --output-dir ./dossiers
  dossier batch subjects.csv --index sqlite --no-retry`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "also render each document into this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&taskTimeout, "task-timeout", 0, "timeout per attempt (default from config)")
	batchCmd.Flags().BoolVar(&noRetry, "no-retry", false, "fail each subject on its first error")
	addOverrideFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg := currentConfig()
	applyOverrides(cfg)
	if taskTimeout > 0 {
		cfg.Worker.TaskTimeout = taskTimeout
	}

	retryCfg := retry.FromModel(cfg.Retry)
	if noRetry {
		retryCfg.MaxAttempts = 1
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Dossier Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Index:        %s\n", cfg.Index.Backend)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Attempts:     %d\n", retryCfg.MaxAttempts)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	processor := worker.NewBatchProcessor(svc.pipeline, concurrency, retryCfg, cfg.Worker.TaskTimeout)

	fmt.Fprintf(os.Stderr, "⚙️  Processing subjects with %d workers...\n\n", concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer()
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s (%s): %v\n", result.Subject.Name, result.Subject.WikidataID, result.Error)
			continue
		}

		successCount++
		doc := result.Result.Document

		if outputDir != "" {
			base := filepath.Join(outputDir, sanitizeFilename(doc.WikidataID+"-"+doc.Title))
			if err := renderer.WriteFiles(doc, base+".json", base+".md", ""); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", doc.Title, err)
				continue
			}
		}

		state := "updated"
		if result.Result.Created {
			state = "created"
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%s) %s as %s\n", doc.Title, doc.WikidataID, state, result.Result.Key)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d subjects\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d subjects failed", failureCount)
	}
	return nil
}

// sanitizeFilename maps s onto a portable file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))

	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	if s == "" || s == "." || s == ".." {
		s = "dossier"
	}
	return s
}
