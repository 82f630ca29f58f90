package testutil

import (
	"context"
	_ "embed"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"finitefield.org/inn-kiosk/internal/guide"
	"finitefield.org/inn-kiosk/internal/httpserver"
	"finitefield.org/inn-kiosk/internal/i18n"
	"finitefield.org/inn-kiosk/internal/idle"
	"finitefield.org/inn-kiosk/internal/kiosk"
)

// SampleDocument is a complete configuration document covering every section.
//
//go:embed document.json
var SampleDocument []byte

// StaticLoader serves a fixed payload, or a fixed error.
type StaticLoader struct {
	mu      sync.Mutex
	payload []byte
	err     error
}

func NewStaticLoader(payload []byte) *StaticLoader {
	return &StaticLoader{payload: payload}
}

// Set replaces the payload served by subsequent loads.
func (l *StaticLoader) Set(payload []byte, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payload, l.err = payload, err
}

func (l *StaticLoader) Load(context.Context) (*guide.Snapshot, error) {
	l.mu.Lock()
	payload, err := l.payload, l.err
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	snap, err := guide.Parse(payload)
	if err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()
	snap.Source = "static"
	return snap, nil
}

type serverConfig struct {
	loader      idle.Loader
	idleTimeout time.Duration
	display     http.Handler
}

// ServerOption customises the kiosk server for tests.
type ServerOption func(*serverConfig)

// WithLoader overrides the configuration loader.
func WithLoader(l idle.Loader) ServerOption {
	return func(cfg *serverConfig) { cfg.loader = l }
}

// WithIdleTimeout overrides the idle timeout; the default is long enough never to
// fire during a test.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(cfg *serverConfig) { cfg.idleTimeout = d }
}

// WithDisplay mounts a display push handler at /ws.
func WithDisplay(h http.Handler) ServerOption {
	return func(cfg *serverConfig) { cfg.display = h }
}

// Server bundles the test HTTP server with the runtime behind it.
type Server struct {
	*httptest.Server
	Runtime *kiosk.Runtime
}

// NewServer constructs an httptest server running the kiosk HTTP stack with a
// running session runtime.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	cfg := serverConfig{
		loader:      NewStaticLoader(SampleDocument),
		idleTimeout: time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt, err := kiosk.NewRuntime(kiosk.Config{
		Labels:      i18n.MustDefault(),
		Loader:      cfg.loader,
		IdleTimeout: cfg.idleTimeout,
	})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.Run(ctx)
	}()

	srv, err := httpserver.New(httpserver.Config{
		Address: ":0",
		Kiosk:   rt,
		Display: cfg.display,
	})
	if err != nil {
		cancel()
		t.Fatalf("new http server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return &Server{Server: ts, Runtime: rt}
}
