package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/score"
	"github.com/ppiankov/fracheck/internal/validate"
)

// DefaultSourceDoc is echoed into source_doc when the caller names no document
const DefaultSourceDoc = "uploaded_file.geojson"

// Options configures a Pipeline. Zero values take the documented defaults.
type Options struct {
	Limits           validate.Limits       // Default 200 max / 100 processed
	IDs              validate.IDGenerator  // Default validate.RandomIDs
	Overlap          score.OverlapStrategy // Default score.ConstantOverlap
	DefaultClaimType model.ClaimType       // Used when the document type is unknown, default IFR
	DefaultSourceDoc string                // Default DefaultSourceDoc
	Fetcher          *Fetcher              // Loads remote documents in ValidateFile, nil reads local files only
	Logger           *slog.Logger          // Default discards
}

// OptionsFromConfig builds pipeline options from the application config
func OptionsFromConfig(cfg *model.Config, logger *slog.Logger) (Options, error) {
	overlap, err := score.ParseOverlap(cfg.Scoring.Overlap)
	if err != nil {
		return Options{}, fmt.Errorf("scoring: %w", err)
	}
	claimType, ok := model.ParseClaimType(cfg.Defaults.ClaimType)
	if !ok {
		return Options{}, fmt.Errorf("defaults: unknown claim type %q", cfg.Defaults.ClaimType)
	}
	return Options{
		Limits: validate.Limits{
			MaxFeatures: cfg.Limits.MaxFeatures,
			ProcessCap:  cfg.Limits.ProcessCap,
		},
		Overlap:          overlap,
		DefaultClaimType: claimType,
		DefaultSourceDoc: cfg.Defaults.SourceDoc,
		Fetcher:          NewFetcherFromConfig(cfg.Fetch),
		Logger:           logger,
	}, nil
}

// Pipeline validates feature collections. It holds no per-call state and is
// safe for concurrent use as long as its IDGenerator is.
type Pipeline struct {
	limits      validate.Limits
	normalizer  *validate.Normalizer
	engine      *validate.Engine
	scorer      *score.Scorer
	defaultType model.ClaimType
	defaultDoc  string
	fetcher     *Fetcher
	logger      *slog.Logger
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	if opts.DefaultClaimType == "" {
		opts.DefaultClaimType = model.ClaimTypeIndividual
	}
	if opts.DefaultSourceDoc == "" {
		opts.DefaultSourceDoc = DefaultSourceDoc
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		limits:      opts.Limits,
		normalizer:  validate.NewNormalizer(opts.IDs),
		engine:      validate.NewEngine(),
		scorer:      score.NewScorer(opts.Overlap),
		defaultType: opts.DefaultClaimType,
		defaultDoc:  opts.DefaultSourceDoc,
		fetcher:     opts.Fetcher,
		logger:      opts.Logger,
	}
}

// draft is a feature between the geometry and scoring stages
type draft struct {
	props    model.ClaimProperties
	geometry any
	outcome  validate.GeometryOutcome
}

// ValidateJSON decodes data and validates it. Undecodable input yields an
// invalid_json result rather than an error.
func (p *Pipeline) ValidateJSON(ctx context.Context, data []byte, docType, sourceDoc string) (*model.ValidationResult, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		p.logger.Debug("undecodable document", "error", err)
		return model.ErrorResult(model.ErrInvalidJSON, 0), nil
	}
	return p.Validate(ctx, doc, docType, sourceDoc)
}

// ValidateFile reads a GeoJSON document from a local path or, with a
// Fetcher, an http(s) URL and validates it with the default claim type. The
// document's base name is used as source document.
func (p *Pipeline) ValidateFile(ctx context.Context, location string) (*model.ValidationResult, error) {
	data, name, err := p.fetcher.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return p.ValidateJSON(ctx, data, "", name)
}

// Validate runs the structural check, then normalizes, measures, flags and
// scores each accepted feature. Problems with a single feature are reported
// as flags on that feature. The only error returned is ctx's.
func (p *Pipeline) Validate(ctx context.Context, doc any, docType, sourceDoc string) (*model.ValidationResult, error) {
	structure := validate.CheckStructure(doc, p.limits)
	if structure.ErrToken != "" {
		p.logger.Info("document rejected", "error", structure.ErrToken, "features", structure.Total)
		return model.ErrorResult(structure.ErrToken, structure.Total), nil
	}

	claimType, ok := model.ParseClaimType(docType)
	if !ok {
		claimType = p.defaultType
	}
	if sourceDoc == "" {
		sourceDoc = p.defaultDoc
	}

	// Measure every feature before scoring any, so overlap strategies see
	// the whole batch
	drafts := make([]draft, len(structure.Features))
	footprints := make([]orb.MultiPolygon, len(structure.Features))
	used := validate.IDSet{}
	for i, raw := range structure.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		drafts[i] = p.measure(raw, claimType, sourceDoc, used)
		if res := drafts[i].outcome.Result; res != nil {
			footprints[i] = res.Shape
		}
	}

	features := make([]model.ProcessedFeature, len(drafts))
	for i, d := range drafts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		features[i] = p.finish(i, d, footprints)
	}

	result := &model.ValidationResult{
		Status:   model.StatusSuccess,
		Errors:   []string{},
		Features: features,
		Summary:  Summarize(features, structure.Total),
	}
	if structure.Truncated {
		result.Status = model.StatusPartial
		result.Errors = append(result.Errors, model.NoticeFeaturesTruncated)
	}

	p.logger.Info("batch validated",
		"status", result.Status,
		"total", result.Summary.TotalFeatures,
		"processed", len(features),
		"valid", result.Summary.ValidFeatures,
		"needs_review", result.Summary.FeaturesNeedingReview,
	)
	return result, nil
}

func (p *Pipeline) measure(raw any, claimType model.ClaimType, sourceDoc string, used validate.IDSet) draft {
	feature, _ := raw.(map[string]any)
	props, _ := feature["properties"].(map[string]any)
	geom := feature["geometry"]

	d := draft{
		props:    p.normalizer.NormalizeInBatch(props, claimType, sourceDoc, used),
		geometry: geom,
		outcome:  validate.MeasureGeometry(geom),
	}

	if res := d.outcome.Result; res != nil {
		bbox := res.BBoxArray()
		d.props.AreaHa = res.AreaHa()
		d.props.Centroid = [2]float64{res.Centroid[0], res.Centroid[1]}
		d.props.BBox = &bbox
	} else if d.outcome.Err != nil {
		p.logger.Debug("geometry not measured", "claim_id", d.props.ClaimID, "error", d.outcome.Err)
	}
	return d
}

func (p *Pipeline) finish(index int, d draft, footprints []orb.MultiPolygon) model.ProcessedFeature {
	flags := p.engine.Evaluate(d.outcome, d.props)
	breakdown := p.scorer.Calculate(d.props, index, footprints)
	return assemble(index, d.props, d.geometry, flags, breakdown)
}

// assemble fills the derived fields shared by validation and revalidation
func assemble(index int, props model.ClaimProperties, geom any, flags model.FlagSet, breakdown model.ScoreBreakdown) model.ProcessedFeature {
	tier := score.TierFor(breakdown.Total)
	props.Flags = flags
	props.Confidence = breakdown.Total
	return model.ProcessedFeature{
		FeatureIndex: index,
		Properties:   props,
		Geometry:     geom,
		Flags:        flags,
		Confidence:   breakdown.Total,
		Tier:         tier,
		RenderStyle:  score.StyleFor(tier),
		Score:        breakdown,
	}
}

// Summarize aggregates processed features. total is the length of the input
// features array, which may exceed len(features) after truncation.
func Summarize(features []model.ProcessedFeature, total int) model.Summary {
	s := model.Summary{TotalFeatures: total}
	for _, f := range features {
		if f.Confidence >= score.MediumThreshold {
			s.ValidFeatures++
		}
		if f.NeedsReview() {
			s.FeaturesNeedingReview++
		}
		s.TotalAreaHa += f.Properties.AreaHa
	}
	return s
}
