package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fracheck/internal/logger"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Validate multiple GeoJSON files in parallel",
	Long: `Batch validates many GeoJSON files concurrently:
- Read file paths from the list file (one per line, # starts a comment)
- Relative paths are resolved against the list file's directory
- Validate files in parallel with a configurable worker count
- Write one result JSON per input file

Example:
  fracheck batch files.txt
  fracheck batch files.txt --concurrency 8 --output-dir ./results
  fracheck batch files.txt --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./fracheck-results", "output directory for results")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  fracheck Batch Validation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, logger.L())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Validating files with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	rejectedCount := 0
	used := make(map[string]int)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		// Inputs with the same base name get numbered result files
		name := resultName(result.Path, "")
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		outPath := filepath.Join(outputDir, name+".result.json")
		if err := writeJSON(outPath, result.Result); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write result: %v\n", result.Path, err)
			continue
		}

		res := result.Result
		if res.Status == model.StatusError {
			rejectedCount++
			fmt.Fprintf(os.Stderr, "✗ %s rejected: %v\n", result.Path, res.Errors)
			continue
		}
		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d features, %d need review)\n",
			result.Path, res.Summary.TotalFeatures, res.Summary.FeaturesNeedingReview)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Rejected:  %d\n", rejectedCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
