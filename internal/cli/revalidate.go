package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
	"github.com/ppiankov/fracheck/internal/score"
	"github.com/ppiankov/fracheck/internal/validate"
)

var (
	patchValues map[string]string
	pickClaimID string
	revalOut    string
	revalSaveAs string
)

// revalidateCmd represents the revalidate command
var revalidateCmd = &cobra.Command{
	Use:   "revalidate <feature.json>",
	Short: "Apply reviewer corrections to a processed claim",
	Long: `Revalidate merges corrected attribute values into a processed claim and
recomputes its flags, confidence and tier. The geometry is never touched.

The input is one processed feature, or a validation result together with
--claim-id. A blank value clears the field.

Editable fields: ` + fmt.Sprint(validate.EditableKeys()) + `

Example:
  fracheck revalidate feature.json --set village_name=Kanha --set holder_name="Sita Devi"
  fracheck revalidate result.json --claim-id IFR-AB12CD34 --set district=Mandla`,
	Args: cobra.ExactArgs(1),
	RunE: runRevalidate,
}

func init() {
	rootCmd.AddCommand(revalidateCmd)

	revalidateCmd.Flags().StringToStringVar(&patchValues, "set", nil, "field=value correction (repeatable)")
	revalidateCmd.Flags().StringVar(&pickClaimID, "claim-id", "", "claim to correct when the input is a validation result")
	revalidateCmd.Flags().StringVar(&revalOut, "json", "-", "output JSON path (- for stdout)")
	revalidateCmd.Flags().StringVar(&revalSaveAs, "save-as", "", "save the corrected claim to the claim store under this reviewer name")
}

func runRevalidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	f, err := loadFeature(data, pickClaimID)
	if err != nil {
		return err
	}

	updated, err := pipeline.Revalidate(f, model.PropertyPatch(patchValues))
	if err != nil {
		return err
	}

	if verbose {
		keys := make([]string, 0, len(patchValues))
		for k := range patchValues {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(os.Stderr, "Patched %v on %s\n", keys, f.Properties.ClaimID)
		fmt.Fprintf(os.Stderr, "Confidence %.4f -> %s (%s)\n", f.Confidence, score.Describe(updated.Score), updated.Tier)
		fmt.Fprintf(os.Stderr, "Flags %v -> %v\n", f.Flags.Strings(), updated.Flags.Strings())
	}

	if err := writeJSON(revalOut, updated); err != nil {
		return err
	}

	if revalSaveAs != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return saveFeatures(ctx, cfg.Store.Path, []model.ProcessedFeature{updated}, revalSaveAs)
	}
	return nil
}

// loadFeature decodes a processed feature, or picks claimID out of a
// validation result
func loadFeature(data []byte, claimID string) (model.ProcessedFeature, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return model.ProcessedFeature{}, fmt.Errorf("decode input: %w", err)
	}

	if _, ok := top["features"]; !ok {
		var f model.ProcessedFeature
		if err := json.Unmarshal(data, &f); err != nil {
			return model.ProcessedFeature{}, fmt.Errorf("decode feature: %w", err)
		}
		if f.Properties.ClaimID == "" {
			return model.ProcessedFeature{}, fmt.Errorf("input is not a processed feature (no properties.claim_id)")
		}
		return f, nil
	}

	if claimID == "" {
		return model.ProcessedFeature{}, fmt.Errorf("input is a validation result: --claim-id is required")
	}
	var res model.ValidationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return model.ProcessedFeature{}, fmt.Errorf("decode result: %w", err)
	}
	for _, f := range res.Features {
		if f.Properties.ClaimID == claimID {
			return f, nil
		}
	}
	return model.ProcessedFeature{}, fmt.Errorf("claim %s not found in result", claimID)
}
