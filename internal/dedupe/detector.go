package dedupe

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/worker"
)

// Reasons recorded on a DuplicateCandidate
const (
	ReasonText        = "text"
	ReasonCoordinates = "coordinates"
	ReasonCluster     = "cluster"
)

// Options holds the detector thresholds
type Options struct {
	TextThreshold   float64 // Similarity at or above which texts match
	DuplicateMeters float64 // Distance at or below which coordinates match
	ClusterMeters   float64 // Distance at or below which claims are clustered
	Workers         int     // Concurrent row scanners for FindCandidates
	Logger          *slog.Logger
}

// DefaultOptions returns the built-in thresholds
func DefaultOptions() Options {
	return Options{
		TextThreshold:   DefaultTextThreshold,
		DuplicateMeters: DefaultDuplicateMeters,
		ClusterMeters:   DefaultClusterMeters,
		Workers:         4,
	}
}

// Detector compares claim summaries pairwise
type Detector struct {
	opts   Options
	logger *slog.Logger
}

// NewDetector creates a detector. Zero thresholds take their defaults.
func NewDetector(opts Options) *Detector {
	d := DefaultOptions()
	if opts.TextThreshold <= 0 {
		opts.TextThreshold = d.TextThreshold
	}
	if opts.DuplicateMeters <= 0 {
		opts.DuplicateMeters = d.DuplicateMeters
	}
	if opts.ClusterMeters <= 0 {
		opts.ClusterMeters = d.ClusterMeters
	}
	if opts.Workers <= 0 {
		opts.Workers = d.Workers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Detector{opts: opts, logger: logger}
}

// Options returns the effective thresholds
func (d *Detector) Options() Options {
	return d.opts
}

// IsDuplicate reports whether b duplicates a by text or by coordinates
func (d *Detector) IsDuplicate(a, b model.ClaimSummary) bool {
	return IsDuplicateText(a, b, d.opts.TextThreshold) ||
		IsDuplicateCoordinates(a, b, d.opts.DuplicateMeters)
}

// AreClustered reports whether a and b sit within the cluster distance
func (d *Detector) AreClustered(a, b model.ClaimSummary) bool {
	return AreClustered(a, b, d.opts.ClusterMeters)
}

// Compare evaluates every predicate on one pair
func (d *Detector) Compare(a, b model.ClaimSummary) model.DuplicateCandidate {
	c := model.DuplicateCandidate{
		LeftID:     a.ID,
		RightID:    b.ID,
		Similarity: TextSimilarity(a, b),
	}

	if c.Similarity >= d.opts.TextThreshold {
		c.IsDuplicate = true
		c.Reasons = append(c.Reasons, ReasonText)
	}
	if dist, ok := Distance(a, b); ok {
		c.DistanceM = &dist
		if dist <= d.opts.DuplicateMeters {
			c.IsDuplicate = true
			c.Reasons = append(c.Reasons, ReasonCoordinates)
		}
		if dist <= d.opts.ClusterMeters {
			c.IsClustered = true
			c.Reasons = append(c.Reasons, ReasonCluster)
		}
	}
	return c
}

// rowJob compares one claim against every later claim
type rowJob struct {
	detector *Detector
	claims   []model.ClaimSummary
	row      int
}

type rowResult struct {
	row        int
	candidates []model.DuplicateCandidate
	err        error
}

func (r *rowResult) GetError() error {
	return r.err
}

func (j *rowJob) Execute(ctx context.Context) worker.Result {
	res := &rowResult{row: j.row}
	left := j.claims[j.row]
	for k := j.row + 1; k < len(j.claims); k++ {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}
		c := j.detector.Compare(left, j.claims[k])
		if !c.IsDuplicate && !c.IsClustered {
			continue
		}
		c.LeftIndex, c.RightIndex = j.row, k
		res.candidates = append(res.candidates, c)
	}
	return res
}

// FindCandidates compares every pair in claims and returns the pairs that are
// duplicates or clustered, ordered by (LeftIndex, RightIndex)
func (d *Detector) FindCandidates(ctx context.Context, claims []model.ClaimSummary) ([]model.DuplicateCandidate, error) {
	if len(claims) < 2 {
		return []model.DuplicateCandidate{}, nil
	}

	pool := worker.NewPool(ctx, d.opts.Workers)
	pool.Start()
	for i := 0; i < len(claims)-1; i++ {
		if !pool.Submit(&rowJob{detector: d, claims: claims, row: i}) {
			break
		}
	}
	results := pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.DuplicateCandidate, 0)
	for _, r := range results {
		rr := r.(*rowResult)
		if rr.err != nil {
			return nil, rr.err
		}
		out = append(out, rr.candidates...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LeftIndex != out[j].LeftIndex {
			return out[i].LeftIndex < out[j].LeftIndex
		}
		return out[i].RightIndex < out[j].RightIndex
	})

	d.logger.Debug("duplicate scan complete", "claims", len(claims), "candidates", len(out))
	return out, nil
}
