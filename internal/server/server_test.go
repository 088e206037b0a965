package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fracheck/internal/cache"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
	"github.com/ppiankov/fracheck/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type counterIDs struct{ n int }

func (c *counterIDs) NewID(t model.ClaimType) string {
	c.n++
	return fmt.Sprintf("%s-TMP-%06x", t, c.n)
}

// envelope is the success/error wrapper of every endpoint except validate
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const squareCollection = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "geometry": {"type": "Polygon", "coordinates": [[[80,20],[80.0096,20],[80.0096,20.009],[80,20.009],[80,20]]]},
    "properties": {"holder_name": "Sita Devi", "village_name": "Kanha", "district": "Mandla", "state": "Madhya Pradesh"}
  }]
}`

const partialCollection = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "geometry": {"type": "Polygon", "coordinates": [[[80,20],[80.0096,20],[80.0096,20.009],[80,20.009],[80,20]]]},
    "properties": {"holder_name": "Sita Devi"}
  }]
}`

func newTestServer(t *testing.T, cfg model.ServerConfig, deps Deps) *Server {
	t.Helper()
	if deps.Pipeline == nil {
		deps.Pipeline = pipeline.New(pipeline.Options{IDs: &counterIDs{}})
	}
	return New(cfg, deps)
}

func do(s *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func validateOne(t *testing.T, s *Server, body string) model.ProcessedFeature {
	t.Helper()
	w := do(s, http.MethodPost, "/api/v1/validate?type=IFR", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res model.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Features, 1)
	return res.Features[0]
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})

	w := do(s, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestValidate_Success(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})

	w := do(s, http.MethodPost, "/api/v1/validate?type=IFR&source_doc=patta.geojson", "application/json", squareCollection)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res model.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, model.StatusSuccess, res.Status)
	require.Len(t, res.Features, 1)

	f := res.Features[0]
	assert.Equal(t, "IFR-TMP-000001", f.Properties.ClaimID)
	assert.Equal(t, "patta.geojson", f.Properties.SourceDoc)
	assert.True(t, f.Flags.Empty(), "expected no flags, got %v", f.Flags.Strings())
	assert.Equal(t, model.TierHigh, f.Tier)
	assert.Equal(t, 1, res.Summary.ValidFeatures)
}

func TestValidate_RejectedBatch(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})

	tests := []struct {
		name  string
		body  string
		token string
	}{
		{"invalid json", `{"type":`, model.ErrInvalidJSON},
		{"not a collection", `{"type":"Feature"}`, model.ErrNotAFeatureCollection},
		{"missing features", `{"type":"FeatureCollection"}`, model.ErrMissingFeaturesArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/api/v1/validate", "application/json", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var res model.ValidationResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, model.StatusError, res.Status)
			assert.Equal(t, []string{tt.token}, res.Errors)
		})
	}
}

func TestValidate_CacheHit(t *testing.T) {
	c := cache.New(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute})
	s := newTestServer(t, model.ServerConfig{}, Deps{Cache: c})

	first := do(s, http.MethodPost, "/api/v1/validate", "application/json", squareCollection)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))

	second := do(s, http.MethodPost, "/api/v1/validate", "application/json", squareCollection)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// Another claim type is a different entry
	third := do(s, http.MethodPost, "/api/v1/validate?type=CFR", "application/json", squareCollection)
	assert.Equal(t, "miss", third.Header().Get("X-Cache"))
}

func TestValidate_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{MaxBodyBytes: 16}, Deps{})

	w := do(s, http.MethodPost, "/api/v1/validate", "application/json", squareCollection)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BODY_TOO_LARGE", env.Error.Code)
}

func TestRevalidate(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})
	f := validateOne(t, s, partialCollection)
	require.False(t, f.Flags.Empty())

	w := doJSON(t, s, http.MethodPost, "/api/v1/revalidate", gin.H{
		"feature": f,
		"patch": model.PropertyPatch{
			"village_name": "Kanha",
			"district":     "Mandla",
			"state":        "Madhya Pradesh",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var got model.ProcessedFeature
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, got.Flags.Empty(), "expected flags cleared, got %v", got.Flags.Strings())
	assert.Equal(t, f.Properties.ClaimID, got.Properties.ClaimID)
	require.NotNil(t, got.Properties.VillageName)
	assert.Equal(t, "Kanha", *got.Properties.VillageName)
}

func TestRevalidate_Errors(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})
	f := validateOne(t, s, partialCollection)

	tests := []struct {
		name    string
		payload any
		code    string
	}{
		{"read-only field", gin.H{"feature": f, "patch": model.PropertyPatch{"area_ha": "5"}}, "NOT_EDITABLE"},
		{"missing claim id", gin.H{"feature": model.ProcessedFeature{}, "patch": model.PropertyPatch{}}, "INVALID_REQUEST"},
		{"malformed body", "not an object", "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/v1/revalidate", tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestDuplicates(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})
	lat, lon := 22.3345, 80.6112
	farLat := 25.0

	w := doJSON(t, s, http.MethodPost, "/api/v1/duplicates", gin.H{
		"claims": []model.ClaimSummary{
			{ID: "A", HolderName: "Sita Devi", Village: "Kanha", District: "Mandla", Lat: &lat, Lon: &lon},
			{ID: "B", HolderName: "Sita Devi", Village: "Kanha", District: "Mandla", Lat: &lat, Lon: &lon},
			{ID: "C", HolderName: "Ravi Shankar", Village: "Bichhiya", District: "Seoni", Lat: &farLat, Lon: &lon},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	var data struct {
		Compared   int                        `json:"compared"`
		Candidates []model.DuplicateCandidate `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 3, data.Compared)
	require.Len(t, data.Candidates, 1)
	assert.Equal(t, "A", data.Candidates[0].LeftID)
	assert.Equal(t, "B", data.Candidates[0].RightID)
	assert.True(t, data.Candidates[0].IsDuplicate)
}

func TestExtract(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})
	text := "Name: Sita Devi\nVillage: Kanha\nDistrict: Mandla\nState: Madhya Pradesh\nLatitude: 22.3345\nLongitude: 80.6112"

	w := do(s, http.MethodPost, "/api/v1/extract?validate=true", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	var data struct {
		Claims     []model.ValidatedClaim  `json:"claims"`
		Stats      model.ClaimStats        `json:"stats"`
		Validation *model.ValidationResult `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Claims, 1)
	assert.Equal(t, "Sita Devi", data.Claims[0].Name)
	assert.Equal(t, 1, data.Stats.Total)

	// Extracted claims are points, so the polygon checks flag them
	require.NotNil(t, data.Validation)
	require.Len(t, data.Validation.Features, 1)
	assert.True(t, data.Validation.Features[0].Flags.Has(model.FlagInvalidGeometryType))
}

func TestExtract_HTML(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})
	page := `<html><body><script>var x = 1;</script><p>Name: Sita Devi</p><p>Village: Kanha</p></body></html>`

	w := do(s, http.MethodPost, "/api/v1/extract", "text/html; charset=utf-8", page)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	var data struct {
		Claims []model.ValidatedClaim `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Claims, 1)
	assert.Equal(t, "Sita Devi", data.Claims[0].Name)
	assert.Equal(t, "Kanha", data.Claims[0].Village)
}

func TestClaims_History(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s := newTestServer(t, model.ServerConfig{}, Deps{Store: st})
	f := validateOne(t, s, partialCollection)
	id := f.Properties.ClaimID

	w := doJSON(t, s, http.MethodPost, "/api/v1/claims", gin.H{"feature": f, "saved_by": "reviewer-a"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var v store.Version
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &v))
	assert.Equal(t, 1, v.Version)

	w = doJSON(t, s, http.MethodPost, "/api/v1/claims", gin.H{"feature": f, "saved_by": "reviewer-b"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(s, http.MethodGet, "/api/v1/claims/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var latest model.ProcessedFeature
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &latest))
	assert.Equal(t, id, latest.Properties.ClaimID)

	w = do(s, http.MethodGet, "/api/v1/claims/"+id+"/versions", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var versions []store.Version
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &versions))
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, "reviewer-b", versions[0].SavedBy)

	w = do(s, http.MethodGet, "/api/v1/claims/IFR-NOPE", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestClaims_StoreDisabled(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})

	w := do(s, http.MethodGet, "/api/v1/claims/IFR-1", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STORE_DISABLED", env.Error.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{RequestsPerSecond: 0.001, Burst: 1}, Deps{})

	first := do(s, http.MethodPost, "/api/v1/validate", "application/json", squareCollection)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(s, http.MethodPost, "/api/v1/validate", "application/json", squareCollection)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	env := decodeEnvelope(t, second)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	// Health checks are not limited
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, model.ServerConfig{}, Deps{})
	do(s, http.MethodPost, "/api/v1/validate", "application/json", squareCollection)

	w := do(s, http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fracheck_features_validated_total")
}
