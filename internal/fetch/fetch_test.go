package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet_ConditionalRequests(t *testing.T) {
	var hits, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), time.Second)
	req := Request{Name: "test", URL: srv.URL + "/slots", Token: "s3cret"}

	first, err := f.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if string(first.Body) != "payload" || first.FromCache {
		t.Errorf("first = %q fromCache=%v", first.Body, first.FromCache)
	}

	second, err := f.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if string(second.Body) != "payload" || !second.FromCache {
		t.Errorf("second = %q fromCache=%v", second.Body, second.FromCache)
	}
	if hits.Load() != 2 || conditional.Load() != 1 {
		t.Errorf("hits=%d conditional=%d, want 2/1", hits.Load(), conditional.Load())
	}
}

func TestGet_FallsBackToCacheOnServerError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("good"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), time.Second)
	req := Request{Name: "test", URL: srv.URL}
	if _, err := f.Get(context.Background(), req); err != nil {
		t.Fatalf("Get: %v", err)
	}

	fail.Store(true)
	res, err := f.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if string(res.Body) != "good" || !res.FromCache {
		t.Errorf("res = %q fromCache=%v", res.Body, res.FromCache)
	}
}

func TestGet_StatusErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), time.Second)

	_, err := f.Get(context.Background(), Request{URL: srv.URL})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}

	status.Store(http.StatusUnauthorized)
	_, err = f.Get(context.Background(), Request{URL: srv.URL})
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 StatusError", err)
	}

	if _, err := f.Get(context.Background(), Request{}); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"https://example.edu/feeds/private.ics?token=abcd": "https://example.edu/...(redacted)",
		"http://localhost:8080":                            "http://localhost:8080/...(redacted)",
		"not a url":                                        "url://...(redacted)",
	}
	for in, want := range tests {
		if got := RedactURL(in); got != want {
			t.Errorf("RedactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
