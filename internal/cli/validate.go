package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fracheck/internal/logger"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
)

var (
	claimType       string
	sourceDoc       string
	outJSON         string
	outCSV          string
	outGeoJSON      string
	band            string
	acceptIDs       []string
	forceAccept     bool
	savedBy         string
	validateTimeout time.Duration
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file|url>",
	Short: "Validate a GeoJSON FeatureCollection of claims",
	Long: `Validate measures, normalizes, flags and scores every claim polygon of a
GeoJSON FeatureCollection:
- Geodesic area, centroid and bounding box of each polygon
- Normalized claim attributes and generated claim ids
- Review flags such as missing_village or invalid_geometry_type
- A confidence score and tier for each claim

Review helpers select a confidence band, bulk-accept high confidence claims,
export a review CSV or GeoJSON, and save the selection to the claim store.

Example:
  fracheck validate claims.geojson
  fracheck validate claims.geojson --type CFR --json result.json
  fracheck validate https://portal.example.org/claims/mandla.geojson
  fracheck validate claims.geojson --band low --csv review.csv
  fracheck validate claims.geojson --accept IFR-AB12CD34 --save-as reviewer`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&claimType, "type", "", "claim type of the document (IFR, CR, CFR)")
	validateCmd.Flags().StringVar(&sourceDoc, "source-doc", "", "source document name (default: file name)")
	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", time.Minute, "validation timeout")

	// Output flags
	validateCmd.Flags().StringVar(&outJSON, "json", "-", "output JSON path (- for stdout)")
	validateCmd.Flags().StringVar(&outCSV, "csv", "", "review CSV path (optional)")
	validateCmd.Flags().StringVar(&outGeoJSON, "geojson", "", "GeoJSON export path (optional)")

	// Review flags
	validateCmd.Flags().StringVar(&band, "band", "all", "confidence band for CSV, GeoJSON and save (all, high, medium, low)")
	validateCmd.Flags().StringSliceVar(&acceptIDs, "accept", nil, "claim ids to accept")
	validateCmd.Flags().BoolVar(&forceAccept, "force", false, "accept claims below the high tier")
	validateCmd.Flags().StringVar(&savedBy, "save-as", "", "save the selected claims to the claim store under this reviewer name")
}

func runValidate(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	selected, err := pipeline.ParseBand(band)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.L()

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	data, name, err := pipeline.NewFetcherFromConfig(cfg.Fetch).Read(ctx, file)
	if err != nil {
		return err
	}
	doc := sourceDoc
	if doc == "" {
		doc = name
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Validating: %s\n", file)
		fmt.Fprintf(os.Stderr, "Claim type: %s\n", orDefault(claimType, cfg.Defaults.ClaimType))
		fmt.Fprintln(os.Stderr)
	}

	res, err := p.ValidateJSON(ctx, data, claimType, doc)
	if err != nil {
		return fmt.Errorf("validate failed: %w", err)
	}

	if err := writeJSON(outJSON, res); err != nil {
		return err
	}
	if res.Status == model.StatusError {
		return fmt.Errorf("document rejected: %s", strings.Join(res.Errors, ", "))
	}

	features := pipeline.FilterByBand(res.Features, selected)

	if outCSV != "" {
		if err := writeCSV(outCSV, features); err != nil {
			return err
		}
	}
	if outGeoJSON != "" {
		if err := writeGeoJSON(outGeoJSON, features); err != nil {
			return err
		}
	}

	if len(acceptIDs) > 0 {
		accepted := pipeline.BulkAccept(res.Features, acceptIDs, forceAccept)
		for _, id := range accepted.Accepted {
			fmt.Fprintf(os.Stderr, "✓ accepted %s\n", id)
		}
		for _, s := range accepted.Skipped {
			fmt.Fprintf(os.Stderr, "✗ skipped %s (%s)\n", s.ID, s.Reason)
		}
	}

	if savedBy != "" {
		if err := saveFeatures(ctx, cfg.Store.Path, features, savedBy); err != nil {
			return err
		}
	}

	printSummary(res, features, selected)
	return nil
}

func writeCSV(path string, features []model.ProcessedFeature) (err error) {
	w, err := openOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	if err := pipeline.WriteReviewCSV(w, features); err != nil {
		return fmt.Errorf("write review csv: %w", err)
	}
	return nil
}

func saveFeatures(ctx context.Context, path string, features []model.ProcessedFeature, by string) error {
	st, err := openStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	for _, f := range features {
		v, err := st.Save(ctx, f, by)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ saved %s version %d\n", v.ClaimID, v.Version)
	}
	return nil
}

func printSummary(res *model.ValidationResult, selected []model.ProcessedFeature, b pipeline.Band) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Validation %s\n", res.Status)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Features:      %d\n", res.Summary.TotalFeatures)
	fmt.Fprintf(os.Stderr, "  Valid:         %d\n", res.Summary.ValidFeatures)
	fmt.Fprintf(os.Stderr, "  Needs review:  %d\n", res.Summary.FeaturesNeedingReview)
	fmt.Fprintf(os.Stderr, "  Total area:    %.4f ha\n", res.Summary.TotalAreaHa)
	if len(res.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "  Notices:       %s\n", strings.Join(res.Errors, ", "))
	}
	fmt.Fprintf(os.Stderr, "  Band %-9s %d\n", string(b)+":", len(selected))
	if bbox, ok := pipeline.Bounds(selected); ok {
		fmt.Fprintf(os.Stderr, "  Bounds:        [%.6f, %.6f, %.6f, %.6f]\n", bbox[0], bbox[1], bbox[2], bbox[3])
	} else {
		fmt.Fprintf(os.Stderr, "  Bounds:        %s\n", pipeline.ErrNoFeatures)
	}
	fmt.Fprintf(os.Stderr, "\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
