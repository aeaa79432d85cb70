package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "weekgrid/internal/log"
)

// Request describes a single upstream GET.
type Request struct {
	// Name identifies the source in logs (feed ID, "api", ...).
	Name string
	URL  string
	// Token, if set, is sent as "Authorization: Bearer <token>".
	Token  string
	Accept string
}

// Result contains the outcome of fetching a single URL.
type Result struct {
	Body      []byte // payload (either freshly fetched or from cache)
	FromCache bool   // true if we reused the cached body
}

// StatusError is returned for non-OK responses that could not be served
// from cache.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "fetch: upstream responded " + e.Status
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher performs conditional GETs (ETag / Last-Modified) backed by a disk
// cache, so upstream outages fall back to the last good body.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a new Fetcher.
//
// cacheDir is the base directory where per-URL cache subdirectories and
// metadata will be stored. Example: "/var/lib/weekgrid/http-cache".
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	if cacheDir == "" {
		// Relative dir so that development runs work without root.
		cacheDir = "./var/http-cache"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cacheDir: cacheDir,
	}
}

// Get fetches req.URL, honoring cached validators.
//
// Authentication failures (401/403) are never masked by the cache; other
// failures fall back to the cached body when one exists.
func (f *Fetcher) Get(ctx context.Context, req Request) (Result, error) {
	if req.URL == "" {
		return Result{}, errors.New("fetch: URL is empty")
	}

	cachePath := f.cachePathForURL(req.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Result{}, err
	}
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			httpReq.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			httpReq.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("fetch start", "source", req.Name, "url", RedactURL(req.URL))

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("fetch network error, using cached body", err, "source", req.Name, "url", RedactURL(req.URL))
			return Result{Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("fetch %s: %w", req.Name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return Result{}, readErr
		}

		newMeta := cacheEntry{
			URL:          req.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("fetch cache save failed", err, "source", req.Name, "url", RedactURL(req.URL))
		}

		appLog.Info("fetch success", "source", req.Name, "url", RedactURL(req.URL), "bytes", len(body))
		return Result{Body: body}, nil

	case resp.StatusCode == http.StatusNotModified:
		if len(cachedBody) == 0 {
			return Result{}, errors.New("fetch: 304 Not Modified but no cached body available")
		}
		appLog.Debug("fetch not modified; using cache", "source", req.Name, "url", RedactURL(req.URL))
		return Result{Body: cachedBody, FromCache: true}, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}

	default:
		if len(cachedBody) > 0 {
			appLog.Error("fetch non-OK, using cached body", errors.New(resp.Status), "source", req.Name, "url", RedactURL(req.URL), "status", resp.StatusCode)
			return Result{Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
}

func (f *Fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	// Use first 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// RedactURL hides the path and query of u for logging, keeping the host.
//
//	https://example.edu/feeds/private.ics?token=abcd
//	-> https://example.edu/...(redacted)
func RedactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "url://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
