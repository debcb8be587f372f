package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gramsight/gramsight-backend/internal/logger"
)

// FetchError is returned for network failures and non-2xx download responses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SyncResult describes the outcome of a change-detecting download.
type SyncResult struct {
	Unchanged bool
	Data      []byte
	Hash      string
	Extension string
	Width     int
	Height    int
}

// Fetcher downloads remote binaries and compares them against the currently
// stored copy by sha256.
type Fetcher struct {
	client *http.Client
	log    *logger.Logger
}

func NewFetcher(log *logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With("service", "MediaFetcher"),
	}
}

// SyncBinary downloads remoteURL and hashes it against existing (the current
// stored copy, nil when absent). A failure to read the existing copy is
// logged and treated as if no copy existed, so the new bytes win.
func (f *Fetcher) SyncBinary(ctx context.Context, remoteURL string, existing io.ReadCloser) (*SyncResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, &FetchError{URL: remoteURL, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: remoteURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: remoteURL, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: remoteURL, Err: err}
	}

	newHash := HashBytes(data)

	if existing != nil {
		existingHash, hashErr := hashReader(existing)
		_ = existing.Close()
		if hashErr != nil {
			f.log.Warn("Failed to hash existing copy, treating as absent", "url", remoteURL, "error", hashErr)
		} else if existingHash == newHash {
			return &SyncResult{Unchanged: true, Hash: newHash}, nil
		}
	}

	result := &SyncResult{
		Data:      data,
		Hash:      newHash,
		Extension: extensionFor(resp.Header.Get("Content-Type"), remoteURL),
	}
	if cfg, _, decErr := image.DecodeConfig(bytes.NewReader(data)); decErr == nil {
		result.Width = cfg.Width
		result.Height = cfg.Height
	}
	return result, nil
}

func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// extensionFor prefers the response Content-Type and falls back to the URL
// path suffix. Returns ".bin" when neither yields anything usable.
func extensionFor(contentType, remoteURL string) string {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case "image/jpeg":
				return ".jpg"
			case "image/png":
				return ".png"
			case "image/gif":
				return ".gif"
			case "image/webp":
				return ".webp"
			case "video/mp4":
				return ".mp4"
			}
			if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
				return exts[0]
			}
		}
	}
	if u, err := url.Parse(remoteURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return ".bin"
}
