package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/fracheck/internal/cache"
	"github.com/ppiankov/fracheck/internal/extract"
	"github.com/ppiankov/fracheck/internal/metrics"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
	"github.com/ppiankov/fracheck/internal/store"
	"github.com/ppiankov/fracheck/internal/validate"
)

// readBody reads the whole request body, answering 413 when it is over the
// configured limit
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error())
			return nil, false
		}
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, false
	}
	return body, true
}

// handleValidate handles POST /api/v1/validate?type=IFR&source_doc=name.
// The body is a GeoJSON FeatureCollection; the response is the validation
// result, with 400 when the batch was rejected as a whole.
func (s *Server) handleValidate(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	docType := c.Query("type")
	sourceDoc := c.Query("source_doc")

	key := cache.ResultKey(body, docType, sourceDoc)
	if res, hit := cache.GetResult(s.cache, key); hit {
		metrics.CacheHitsTotal.Inc()
		c.Header("X-Cache", "hit")
		writeResult(c, res)
		return
	}
	if s.cache != nil {
		metrics.CacheMissesTotal.Inc()
		c.Header("X-Cache", "miss")
	}

	res, err := s.pipeline.ValidateJSON(c.Request.Context(), body, docType, sourceDoc)
	if err != nil {
		abort(c, http.StatusServiceUnavailable, "CANCELLED", err.Error())
		return
	}
	metrics.ObserveResult(res)

	if err := cache.SetResult(s.cache, key, res); err != nil {
		s.logger.Warn("cache write failed", "error", err)
	}
	writeResult(c, res)
}

func writeResult(c *gin.Context, res *model.ValidationResult) {
	status := http.StatusOK
	if res.Status == model.StatusError {
		status = http.StatusBadRequest
	}
	c.JSON(status, res)
}

// revalidateRequest is the body of POST /api/v1/revalidate
type revalidateRequest struct {
	Feature model.ProcessedFeature `json:"feature"`
	Patch   model.PropertyPatch    `json:"patch"`
}

// handleRevalidate applies a correction patch to a processed feature
func (s *Server) handleRevalidate(c *gin.Context) {
	var req revalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Feature.Properties.ClaimID == "" {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", "feature.properties.claim_id is required")
		return
	}

	f, err := pipeline.Revalidate(req.Feature, req.Patch)
	if err != nil {
		if errors.Is(err, validate.ErrNotEditable) {
			abort(c, http.StatusBadRequest, "NOT_EDITABLE", err.Error())
			return
		}
		abort(c, http.StatusInternalServerError, "REVALIDATE_FAILED", err.Error())
		return
	}
	metrics.ObserveFeature(f)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    f,
	})
}

// duplicatesRequest is the body of POST /api/v1/duplicates. Claims and
// features are compared together, claims first.
type duplicatesRequest struct {
	Claims   []model.ClaimSummary     `json:"claims"`
	Features []model.ProcessedFeature `json:"features"`
}

// handleDuplicates reports duplicate and clustered pairs
func (s *Server) handleDuplicates(c *gin.Context) {
	var req duplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	summaries := make([]model.ClaimSummary, 0, len(req.Claims)+len(req.Features))
	summaries = append(summaries, req.Claims...)
	for _, f := range req.Features {
		summaries = append(summaries, model.SummaryOf(f))
	}

	candidates, err := s.detector.FindCandidates(c.Request.Context(), summaries)
	if err != nil {
		abort(c, http.StatusServiceUnavailable, "CANCELLED", err.Error())
		return
	}
	metrics.ObserveCandidates(candidates)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"compared":   len(summaries),
			"candidates": candidates,
		},
	})
}

// handleExtract handles POST /api/v1/extract. The body is plain text, or HTML
// when sent as text/html. With validate=true the extracted claims are also
// run through the validation pipeline.
func (s *Server) handleExtract(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	var claims []model.ExtractedClaim
	if strings.HasPrefix(c.ContentType(), "text/html") {
		var err error
		if claims, err = s.extractor.ExtractHTML(string(body)); err != nil {
			abort(c, http.StatusBadRequest, "INVALID_HTML", err.Error())
			return
		}
	} else {
		claims = s.extractor.Extract(string(body))
	}

	validated := s.checker.ValidateClaims(claims)
	fc := extract.ToFeatureCollection(claims)
	data := gin.H{
		"claims":             validated,
		"stats":              validate.SummarizeClaims(validated),
		"feature_collection": fc,
	}

	if c.Query("validate") == "true" {
		raw, err := json.Marshal(fc)
		if err != nil {
			abort(c, http.StatusInternalServerError, "ENCODE_FAILED", err.Error())
			return
		}
		res, err := s.pipeline.ValidateJSON(c.Request.Context(), raw, c.Query("type"), c.Query("source_doc"))
		if err != nil {
			abort(c, http.StatusServiceUnavailable, "CANCELLED", err.Error())
			return
		}
		metrics.ObserveResult(res)
		data["validation"] = res
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// saveClaimRequest is the body of POST /api/v1/claims
type saveClaimRequest struct {
	Feature model.ProcessedFeature `json:"feature"`
	SavedBy string                 `json:"saved_by"`
}

// handleSaveClaim stores a reviewed feature as a new claim version
func (s *Server) handleSaveClaim(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var req saveClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Feature.Properties.ClaimID == "" {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", "feature.properties.claim_id is required")
		return
	}

	v, err := s.store.Save(c.Request.Context(), req.Feature, req.SavedBy)
	if err != nil {
		abort(c, http.StatusInternalServerError, "SAVE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    v,
	})
}

// handleLatestClaim handles GET /api/v1/claims/:claim_id
func (s *Server) handleLatestClaim(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	f, err := s.store.Latest(c.Request.Context(), c.Param("claim_id"))
	if !s.storeOK(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    f,
	})
}

// handleClaimVersions handles GET /api/v1/claims/:claim_id/versions
func (s *Server) handleClaimVersions(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	versions, err := s.store.Versions(c.Request.Context(), c.Param("claim_id"))
	if !s.storeOK(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    versions,
	})
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		abort(c, http.StatusServiceUnavailable, "STORE_DISABLED", "claim store is not configured")
		return false
	}
	return true
}

func (s *Server) storeOK(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrNotFound):
		abort(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		abort(c, http.StatusInternalServerError, "STORE_FAILED", err.Error())
	}
	return false
}
