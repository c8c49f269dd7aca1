package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "admincal/internal/log"
)

// cacheEntry holds HTTP cache metadata for a single GET URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// getResult is the outcome of a conditional GET.
type getResult struct {
	Body      []byte
	FromCache bool // true if the body came from disk (304 or stale fallback)
}

// fetcher performs GETs honoring ETag and Last-Modified, backed by a
// per-URL disk cache. An empty cacheDir turns caching off entirely.
type fetcher struct {
	client       *http.Client
	cacheDir     string
	staleOnError bool
}

func (f *fetcher) get(ctx context.Context, url string) (getResult, error) {
	if url == "" {
		return getResult{}, errors.New("backend: empty url")
	}

	var (
		cachePath  string
		meta       cacheEntry
		cachedBody []byte
	)
	if f.cacheDir != "" {
		cachePath = f.cachePathForURL(url)
		if err := os.MkdirAll(cachePath, 0o700); err != nil {
			return getResult{}, err
		}
		meta, _ = loadCacheMeta(cachePath)
		cachedBody, _ = loadCacheBody(cachePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return getResult{}, err
	}
	req.Header.Set("Accept", "application/json")

	// Conditional headers only make sense when we can answer a 304.
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("backend get start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		if f.staleOnError && len(cachedBody) > 0 {
			appLog.Warn("backend get network error, using cached body", "url", redactURL(url), "err", err.Error())
			return getResult{Body: cachedBody, FromCache: true}, nil
		}
		return getResult{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return getResult{}, readErr
		}

		if cachePath != "" {
			newMeta := cacheEntry{
				URL:          url,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(cachePath, newMeta, body); err != nil {
				// Log but still return the freshly fetched body.
				appLog.Error("backend cache save failed", err, "url", redactURL(url))
			}
		}

		appLog.Debug("backend get success", "url", redactURL(url), "status", resp.StatusCode, "from_cache", false)
		return getResult{Body: body}, nil

	case resp.StatusCode == http.StatusNotModified:
		if len(cachedBody) == 0 {
			return getResult{}, errors.New("backend: 304 Not Modified but no cached body available")
		}
		appLog.Debug("backend get not modified; using cache", "url", redactURL(url))
		return getResult{Body: cachedBody, FromCache: true}, nil

	default:
		statusErr := newStatusError(http.MethodGet, url, resp)
		if f.staleOnError && len(cachedBody) > 0 {
			appLog.Warn("backend get non-OK, using cached body", "url", redactURL(url), "status", resp.StatusCode)
			return getResult{Body: cachedBody, FromCache: true}, nil
		}
		return getResult{}, statusErr
	}
}

func (f *fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	// First 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
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

func loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of u for logging.
//
//	https://admin.example.com/api/employee/42?token=abcd
//	-> https://admin.example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "backend://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
