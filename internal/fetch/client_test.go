package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(opts ...ClientOption) *Client {
	base := []ClientOption{WithRateLimit(0), WithInitialBackoff(time.Millisecond), WithMaxRetries(3)}
	return NewClient(append(base, opts...)...)
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-ELS-APIKey") != "k" {
			t.Errorf("missing API key header")
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "findpapers") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{"total": 3}`))
	}))
	defer server.Close()

	var out struct {
		Total int `json:"total"`
	}
	c := testClient(WithHeader("X-ELS-APIKey", "k"))
	if err := c.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Total != 3 {
		t.Errorf("Total = %d, want 3", out.Total)
	}
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := testClient().Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "ok" || calls.Load() != 3 {
		t.Errorf("body = %q after %d calls", body, calls.Load())
	}
}

func TestGet_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient().Get(context.Background(), server.URL)
	if !IsUnavailable(err) {
		t.Fatalf("Get() error = %v, want unavailable", err)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected HTTPError 503, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGet_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := testClient().Get(context.Background(), server.URL+"/works/10.1/x")
	if !IsNotFound(err) {
		t.Errorf("Get() error = %v, want not found", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGet_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient().Get(context.Background(), server.URL+"?apiKey=SECRET")
	if !IsAuthError(err) {
		t.Fatalf("Get() error = %v, want auth error", err)
	}
	if strings.Contains(err.Error(), "SECRET") {
		t.Errorf("error leaks API key: %v", err)
	}
}

func TestGetJSON_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer server.Close()

	var v map[string]any
	err := testClient().GetJSON(context.Background(), server.URL, &v)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("GetJSON() error = %v, want invalid response", err)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testClient().Get(ctx, server.URL); err == nil {
		t.Error("Get() with cancelled context succeeded")
	}
}

func TestWith_DoesNotMutateParent(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Test"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	parent := testClient(WithHeader("X-Test", "parent"))
	child := parent.With(WithHeader("X-Test", "child"))

	ctx := context.Background()
	if _, err := child.Get(ctx, server.URL); err != nil {
		t.Fatal(err)
	}
	if _, err := parent.Get(ctx, server.URL); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "child" || seen[1] != "parent" {
		t.Errorf("headers seen = %v", seen)
	}
}
