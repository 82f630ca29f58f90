package guide

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxDocumentBytes    = 4 << 20
	cacheBustParam      = "_"
)

// FetchError reports a failed load: transport failure, non-success status, or a
// payload that is not a configuration document.
type FetchError struct {
	Source string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrStatus is wrapped by FetchError when the transport answered with a non-2xx status.
var ErrStatus = errors.New("guide: unexpected status")

// Fetcher loads the configuration document from an http(s) URL or a local file.
// It never caches and never retries.
type Fetcher struct {
	source string
	http   *http.Client
	now    func() time.Time

	mu        sync.Mutex
	lastToken int64
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.http = c
		}
	}
}

// WithClock overrides the time source used for cache-busting tokens.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher builds a fetcher for source.
func NewFetcher(source string, opts ...Option) *Fetcher {
	f := &Fetcher{
		source: strings.TrimSpace(source),
		http:   &http.Client{Timeout: defaultFetchTimeout},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Source returns the configured document location.
func (f *Fetcher) Source() string { return f.source }

// Load fetches and parses a fresh copy of the document.
func (f *Fetcher) Load(ctx context.Context) (*Snapshot, error) {
	if f.source == "" {
		return nil, &FetchError{Source: f.source, Err: errors.New("no document source configured")}
	}
	var (
		data []byte
		err  error
	)
	if isRemote(f.source) {
		data, err = f.loadRemote(ctx)
	} else {
		data, err = f.loadFile()
	}
	if err != nil {
		return nil, err
	}
	snap, err := Parse(data)
	if err != nil {
		return nil, &FetchError{Source: f.source, Err: err}
	}
	snap.FetchedAt = f.now()
	snap.Source = f.source
	return snap, nil
}

func (f *Fetcher) loadRemote(ctx context.Context) ([]byte, error) {
	endpoint, err := f.bustedURL()
	if err != nil {
		return nil, &FetchError{Source: f.source, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Source: f.source, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &FetchError{Source: f.source, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{Source: f.source, Status: resp.StatusCode, Err: ErrStatus}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, &FetchError{Source: f.source, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

func (f *Fetcher) loadFile() ([]byte, error) {
	path := strings.TrimPrefix(f.source, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{Source: f.source, Err: err}
	}
	return data, nil
}

// bustedURL appends a strictly increasing, time-derived token so no intermediary can
// answer from cache.
func (f *Fetcher) bustedURL() (string, error) {
	u, err := url.Parse(f.source)
	if err != nil {
		return "", fmt.Errorf("parse source: %w", err)
	}
	q := u.Query()
	q.Set(cacheBustParam, strconv.FormatInt(f.nextToken(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Fetcher) nextToken() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := f.now().UnixMilli()
	if token <= f.lastToken {
		token = f.lastToken + 1
	}
	f.lastToken = token
	return token
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
