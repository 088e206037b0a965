package pipeline

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/worker"
)

// Retry policy of FetchWithRetry
const (
	fetchAttempts    = 3
	fetchBaseBackoff = time.Second
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// Fetcher downloads claim documents (GeoJSON, OCR text, HTML exports) from
// portals over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter // per host, nil when unlimited
}

// NewFetcher creates a new Fetcher. Empty proxy URLs fall back to the
// HTTP_PROXY family of environment variables.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = newProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed portals
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// NewFetcherFromConfig creates a Fetcher from the fetch section of the config
func NewFetcherFromConfig(cfg model.FetchConfig) *Fetcher {
	f := NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBytes, cfg.InsecureTLS, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.RequestsPerHost > 0 {
		f.limiter = worker.NewLimiter(cfg.RequestsPerHost, cfg.Burst)
	}
	return f
}

// newProxyFunc picks the configured proxy for the request scheme.
// noProxy is a comma-separated list of hosts that bypass it.
func newProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := make(map[string]bool)
	for _, h := range strings.Split(noProxy, ",") {
		if h = strings.TrimSpace(h); h != "" {
			bypass[strings.ToLower(h)] = true
		}
	}

	return func(req *http.Request) (*url.URL, error) {
		if bypass[strings.ToLower(req.URL.Hostname())] {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// FetchResult contains a fetched document and its metadata
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
	Name        string // Document name derived from the final URL
}

// Fetch retrieves the document at rawURL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, req.URL.Host); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/geo+json,application/json,text/plain,text/html;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// One byte over the limit tells a truncated body from an exact fit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read body: document exceeds %d bytes", f.maxBytes)
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
		Name:        documentName(finalURL),
	}, nil
}

// FetchWithRetry fetches rawURL, retrying transient failures with
// exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(fetchBaseBackoff << (attempt - 1))
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// isRetryableFetchError reports whether err is worth another attempt:
// server errors, 429 and network failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unexpected status: ") {
		code := strings.TrimPrefix(msg, "unexpected status: ")
		return strings.HasPrefix(code, "5") || strings.HasPrefix(code, "429")
	}
	return strings.HasPrefix(msg, "fetch: ")
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Read loads a document from a local path or an http(s) URL and returns its
// bytes with a document name. A nil Fetcher reads local files only.
func (f *Fetcher) Read(ctx context.Context, location string) ([]byte, string, error) {
	if !IsRemote(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", location, err)
		}
		return data, filepath.Base(location), nil
	}
	if f == nil {
		return nil, "", fmt.Errorf("read %s: remote documents are not enabled", location)
	}

	result, err := f.FetchWithRetry(ctx, location)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", location, err)
	}
	return result.Body, result.Name, nil
}

// documentName returns the last path segment of a URL, or its host when the
// path is empty
func documentName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	p := strings.Trim(parsed.Path, "/")
	if p == "" {
		return parsed.Host
	}
	name, err := url.PathUnescape(path.Base(p))
	if err != nil {
		return path.Base(p)
	}
	return name
}
