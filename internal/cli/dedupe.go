package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fracheck/internal/logger"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
)

var (
	dedupeOut     string
	dedupeTimeout time.Duration
)

// dedupeCmd represents the dedupe command
var dedupeCmd = &cobra.Command{
	Use:   "dedupe <file|url>",
	Short: "Find likely duplicate and clustered claims",
	Long: `Dedupe compares every pair of claims and reports the pairs that look like
duplicates (similar holder, village and district text, or coordinates within a
few meters) or that sit in the same cluster.

The input is a GeoJSON FeatureCollection, which is validated first, or a JSON
array of claim summaries with id, holder_name, village, district, lat and lon.

Example:
  fracheck dedupe claims.geojson
  fracheck dedupe summaries.json --json candidates.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDedupe,
}

func init() {
	rootCmd.AddCommand(dedupeCmd)

	dedupeCmd.Flags().StringVar(&dedupeOut, "json", "-", "output JSON path (- for stdout)")
	dedupeCmd.Flags().DurationVar(&dedupeTimeout, "timeout", 5*time.Minute, "comparison timeout")
}

func runDedupe(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), dedupeTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.L()

	data, name, err := pipeline.NewFetcherFromConfig(cfg.Fetch).Read(ctx, file)
	if err != nil {
		return err
	}

	var summaries []model.ClaimSummary
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &summaries); err != nil {
			return fmt.Errorf("decode claim summaries: %w", err)
		}
	} else {
		p, err := newPipeline(cfg, log)
		if err != nil {
			return err
		}
		res, err := p.ValidateJSON(ctx, data, "", name)
		if err != nil {
			return err
		}
		if res.Status == model.StatusError {
			return fmt.Errorf("document rejected: %v", res.Errors)
		}
		for _, f := range res.Features {
			summaries = append(summaries, model.SummaryOf(f))
		}
	}

	candidates, err := newDetector(cfg, log).FindCandidates(ctx, summaries)
	if err != nil {
		return fmt.Errorf("compare claims: %w", err)
	}

	duplicates, clustered := 0, 0
	for _, c := range candidates {
		if c.IsDuplicate {
			duplicates++
		}
		if c.IsClustered {
			clustered++
		}
	}
	fmt.Fprintf(os.Stderr, "✓ Compared %d claims: %d duplicate pairs, %d clustered pairs\n",
		len(summaries), duplicates, clustered)

	return writeJSON(dedupeOut, candidates)
}
