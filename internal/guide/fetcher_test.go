package guide

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFetcherRemoteBustsCache(t *testing.T) {
	var (
		mu     sync.Mutex
		tokens []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		tokens = append(tokens, r.URL.Query().Get("_"))
		mu.Unlock()
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("expected no-cache header, got %q", r.Header.Get("Cache-Control"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"wifi":{"networkName":"n","password":"p"}}`))
	}))
	defer ts.Close()

	fixed := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	f := NewFetcher(ts.URL+"/config.json", WithClock(func() time.Time { return fixed }))

	for i := 0; i < 2; i++ {
		snap, err := f.Load(context.Background())
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if snap.Doc.WiFi == nil {
			t.Fatalf("expected wifi section")
		}
		if !snap.FetchedAt.Equal(fixed) {
			t.Fatalf("unexpected fetch time: %v", snap.FetchedAt)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(tokens) != 2 || tokens[0] == "" || tokens[0] == tokens[1] {
		t.Fatalf("expected two distinct cache-busting tokens, got %v", tokens)
	}
}

func TestFetcherStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewFetcher(ts.URL).Load(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Status != http.StatusNotFound || !errors.Is(err, ErrStatus) {
		t.Fatalf("unexpected fetch error: %+v", fe)
	}
}

func TestFetcherParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer ts.Close()

	_, err := NewFetcher(ts.URL).Load(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Status != 0 {
		t.Fatalf("parse failures carry no status, got %d", fe.Status)
	}
}

func TestFetcherLocalFile(t *testing.T) {
	snap, err := NewFetcher(filepath.Join("testdata", "config.json")).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Doc.Emergency == nil || len(snap.Doc.Emergency.Fire) != 1 {
		t.Fatalf("unexpected emergency section: %+v", snap.Doc.Emergency)
	}

	_, err = NewFetcher(filepath.Join("testdata", "missing.json")).Load(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError for missing file, got %v", err)
	}
}

func TestFetcherTokensIncreaseWithFrozenClock(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	f := NewFetcher("https://example.invalid/config.json", WithClock(func() time.Time { return fixed }))
	first := f.nextToken()
	second := f.nextToken()
	if second <= first {
		t.Fatalf("expected strictly increasing tokens, got %d then %d", first, second)
	}
}
