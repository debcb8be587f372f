package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gramsight/gramsight-backend/internal/logger"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewFetcher(log)
}

func TestSyncBinary_NewDownload(t *testing.T) {
	payload := []byte("image bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer server.Close()

	result, err := testFetcher(t).SyncBinary(context.Background(), server.URL+"/pic", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Unchanged {
		t.Fatalf("expected changed result with no existing copy")
	}
	if !bytes.Equal(result.Data, payload) {
		t.Fatalf("unexpected data: %q", result.Data)
	}
	if result.Hash != HashBytes(payload) {
		t.Fatalf("unexpected hash: %s", result.Hash)
	}
	if result.Extension != ".jpg" {
		t.Fatalf("expected .jpg extension, got %q", result.Extension)
	}
}

func TestSyncBinary_UnchangedSkipsPayload(t *testing.T) {
	payload := []byte("stable content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	existing := io.NopCloser(bytes.NewReader(payload))
	result, err := testFetcher(t).SyncBinary(context.Background(), server.URL, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Unchanged {
		t.Fatalf("expected unchanged result for identical content")
	}
	if result.Data != nil {
		t.Fatalf("unchanged result must not carry data")
	}
	if result.Hash != HashBytes(payload) {
		t.Fatalf("unexpected hash: %s", result.Hash)
	}
}

func TestSyncBinary_ChangedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new version"))
	}))
	defer server.Close()

	existing := io.NopCloser(bytes.NewReader([]byte("old version")))
	result, err := testFetcher(t).SyncBinary(context.Background(), server.URL, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Unchanged {
		t.Fatalf("expected changed result for different content")
	}
	if string(result.Data) != "new version" {
		t.Fatalf("unexpected data: %q", result.Data)
	}
}

func TestSyncBinary_BrokenExistingReaderTreatedAsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	result, err := testFetcher(t).SyncBinary(context.Background(), server.URL, brokenReader{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Unchanged {
		t.Fatalf("broken existing copy must not report unchanged")
	}
}

func TestSyncBinary_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testFetcher(t).SyncBinary(context.Background(), server.URL, nil)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", fetchErr.StatusCode)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := []struct {
		contentType string
		url         string
		want        string
	}{
		{"image/jpeg", "http://x/y", ".jpg"},
		{"image/png", "http://x/y", ".png"},
		{"video/mp4", "http://x/y", ".mp4"},
		{"", "http://x/video.mp4?sig=abc", ".mp4"},
		{"", "http://x/noext", ".bin"},
		{"", "http://x/file.PNG", ".png"},
	}
	for _, tc := range cases {
		if got := extensionFor(tc.contentType, tc.url); got != tc.want {
			t.Errorf("extensionFor(%q, %q) = %q, want %q", tc.contentType, tc.url, got, tc.want)
		}
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("disk read failed") }
func (brokenReader) Close() error             { return nil }
