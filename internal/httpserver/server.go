package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/kiosk"
	custommw "finitefield.org/inn-kiosk/internal/middleware"
	"finitefield.org/inn-kiosk/internal/observability"
	"finitefield.org/inn-kiosk/internal/view"
	"finitefield.org/inn-kiosk/public"
)

// Kiosk is the session runtime the handlers drive.
type Kiosk interface {
	Do(ctx context.Context, fn func(*kiosk.Session) error) error
	Page(ctx context.Context) (view.Page, error)
	Activity(ctx context.Context) error
}

// Config holds runtime options for the kiosk HTTP server.
type Config struct {
	Address string
	Kiosk   Kiosk
	// Display serves the push channel at /ws.
	Display      http.Handler
	Logger       *zap.Logger
	DevMode      bool
	TemplatesDir string
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Kiosk == nil {
		return nil, fmt.Errorf("httpserver: kiosk is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rnd, err := newRenderer(cfg.DevMode, cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}
	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}

	h := &handlers{kiosk: cfg.Kiosk, render: rnd}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.RequestLogger(logger))
	router.Use(observability.Recovery(logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
	if cfg.Display != nil {
		router.Handle("/ws", cfg.Display)
	}

	router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())

		r.Get("/", h.index)
		r.Get("/app", h.fragment)
		r.Post("/activity", h.activity)
		r.Post("/pages/{page}", h.showPage)
		r.Post("/lang/toggle", h.toggleLanguage)
		r.Post("/drinks/sections/{index}/toggle", h.toggleDrinkSection)
		r.Post("/breakfast/premium/toggle", h.togglePremium)
		r.Post("/modals/{name}/{op}", h.modal)
	})

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}
