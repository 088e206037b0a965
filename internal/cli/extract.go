package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fracheck/internal/extract"
	"github.com/ppiankov/fracheck/internal/logger"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
	"github.com/ppiankov/fracheck/internal/validate"
)

var (
	extractHTML     bool
	extractOut      string
	extractGeoJSON  string
	extractValidate bool
	extractTimeout  time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <text-file|url>",
	Short: "Extract claims from OCR text or an HTML export",
	Long: `Extract reads claim records out of OCR text:
- Embedded JSON records are read first
- Otherwise the text is split into claim blocks and labelled fields
  (name, spouse, father, village, district, state, extent, latitude,
  longitude) are matched in each block
- Each claim is checked for missing or invalid fields, duplicates,
  clusters and coordinates outside India

Documents ending in .html or .htm are read as HTML.

Example:
  fracheck extract ocr.txt
  fracheck extract export.html --geojson claims.geojson
  fracheck extract ocr.txt --validate`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().BoolVar(&extractHTML, "html", false, "read the input as HTML")
	extractCmd.Flags().StringVar(&extractOut, "json", "-", "output JSON path (- for stdout)")
	extractCmd.Flags().StringVar(&extractGeoJSON, "geojson", "", "write the claims as a GeoJSON FeatureCollection (optional)")
	extractCmd.Flags().BoolVar(&extractValidate, "validate", false, "also run the claims through polygon validation")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", time.Minute, "download and validation timeout")
}

// extractReport is the output of the extract command
type extractReport struct {
	Claims     []model.ValidatedClaim  `json:"claims"`
	Stats      model.ClaimStats        `json:"stats"`
	Validation *model.ValidationResult `json:"validation,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.L()

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	data, name, err := pipeline.NewFetcherFromConfig(cfg.Fetch).Read(ctx, file)
	if err != nil {
		return err
	}

	extractor := extract.NewClaimExtractor()
	var claims []model.ExtractedClaim
	ext := strings.ToLower(filepath.Ext(name))
	if extractHTML || ext == ".html" || ext == ".htm" {
		if claims, err = extractor.ExtractHTML(string(data)); err != nil {
			return fmt.Errorf("parse html: %w", err)
		}
	} else {
		claims = extractor.Extract(string(data))
	}

	checker := validate.NewClaimChecker(newDetector(cfg, log), validate.IndiaRegion)
	validated := checker.ValidateClaims(claims)
	report := extractReport{
		Claims: validated,
		Stats:  validate.SummarizeClaims(validated),
	}

	fc := extract.ToFeatureCollection(claims)
	if extractGeoJSON != "" {
		if err := writeJSON(extractGeoJSON, fc); err != nil {
			return err
		}
	}

	if extractValidate {
		raw, err := json.Marshal(fc)
		if err != nil {
			return fmt.Errorf("encode claims: %w", err)
		}
		p, err := newPipeline(cfg, log)
		if err != nil {
			return err
		}
		if report.Validation, err = p.ValidateJSON(ctx, raw, "", name); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "✓ Extracted %d claims (%d valid, %d invalid, %d without coordinates)\n",
		report.Stats.Total, report.Stats.Valid, report.Stats.Invalid, report.Stats.MissingCoordinates)

	return writeJSON(extractOut, report)
}
