package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gramsight/gramsight-backend/internal/logger"
)

func testClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", server.URL)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	c, err := NewClient(log)
	if err != nil {
		t.Fatalf("init client: %v", err)
	}
	return c
}

func TestEmbedText(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}],"usage":{"total_tokens":9}}`))
	}))

	vector, tokens, err := c.EmbedText(context.Background(), "a description")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector: %v", vector)
	}
	if tokens != 9 {
		t.Fatalf("expected 9 tokens, got %d", tokens)
	}
}

func TestGenerateImageInsight(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"a beach at dusk"}}],"usage":{"total_tokens":55}}`))
	}))

	insight, tokens, err := c.GenerateImageInsight(context.Background(), []byte("img"), "describe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insight != "a beach at dusk" {
		t.Fatalf("unexpected insight: %q", insight)
	}
	if tokens != 55 {
		t.Fatalf("expected 55 tokens, got %d", tokens)
	}
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":[{"embedding":[1]}],"usage":{"total_tokens":1}}`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	vector, _, err := c.EmbedText(ctx, "retry me")
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if len(vector) != 1 {
		t.Fatalf("unexpected vector: %v", vector)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))

	if _, _, err := c.EmbedText(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("client errors must not retry, got %d calls", calls)
	}
}

func TestIsRetryableHTTP(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !isRetryableHTTP(code) {
			t.Errorf("expected %d retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if isRetryableHTTP(code) {
			t.Errorf("expected %d not retryable", code)
		}
	}
}
