package icsfeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gridfeed/gridfeed/internal/adapters/source"
)

const fetchTimeout = 15 * time.Second

// cacheEntry holds HTTP cache metadata for one feed URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// fetcher downloads ICS payloads with ETag / Last-Modified conditional
// requests and a disk-backed body cache used as fallback on upstream errors.
type fetcher struct {
	client   *http.Client
	cacheDir string
}

func newFetcher(cacheDir string) *fetcher {
	if cacheDir == "" {
		cacheDir = "./var/cache"
	}
	return &fetcher{
		client:   &http.Client{Timeout: fetchTimeout},
		cacheDir: cacheDir,
	}
}

// fetch returns the feed body, from the network or the cache.
func (f *fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty feed url", source.ErrPermanent)
	}

	cachePath := f.cachePathForURL(url)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	meta, _ := f.loadMeta(cachePath)
	cached, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", source.ErrPermanent, err)
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			return cached, nil
		}
		return nil, fmt.Errorf("%w: %w", source.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: %w", source.ErrTransient, readErr)
		}
		f.saveCache(cachePath, cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}, body)
		return body, nil

	case resp.StatusCode == http.StatusNotModified:
		if len(cached) == 0 {
			return nil, fmt.Errorf("%w: 304 with no cached body", source.ErrTransient)
		}
		return cached, nil

	case resp.StatusCode >= 500:
		if len(cached) > 0 {
			return cached, nil
		}
		return nil, fmt.Errorf("%w: upstream status %s", source.ErrTransient, resp.Status)

	default:
		return nil, fmt.Errorf("%w: upstream status %s", source.ErrPermanent, resp.Status)
	}
}

func (f *fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *fetcher) loadMeta(cachePath string) (cacheEntry, error) {
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

// saveCache is best-effort; a failed write never fails the fetch.
func (f *fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) {
	if data, err := json.Marshal(meta); err == nil {
		_ = os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
	}
	_ = os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600)
}
