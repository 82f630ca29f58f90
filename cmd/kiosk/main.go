package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/display"
	"finitefield.org/inn-kiosk/internal/guide"
	"finitefield.org/inn-kiosk/internal/httpserver"
	"finitefield.org/inn-kiosk/internal/i18n"
	"finitefield.org/inn-kiosk/internal/idle"
	"finitefield.org/inn-kiosk/internal/kiosk"
	"finitefield.org/inn-kiosk/internal/observability"
	"finitefield.org/inn-kiosk/internal/settings"
	"finitefield.org/inn-kiosk/internal/wake"
)

func main() {
	cfg, err := settings.Load()
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.ConfigSource, "config", cfg.ConfigSource, "configuration document URL or file path")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("settings: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("kiosk stopped", zap.Error(err))
	}
}

func run(cfg settings.Settings, logger *zap.Logger) error {
	labels, err := i18n.Default()
	if err != nil {
		return err
	}

	fetcher := guide.NewFetcher(cfg.ConfigSource,
		guide.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
	)
	hub := display.NewHub(logger)

	rt, err := kiosk.NewRuntime(kiosk.Config{
		Labels:       labels,
		Loader:       fetcher,
		IdleTimeout:  cfg.IdleTimeout,
		IdlePolicy:   cfg.Policy(),
		FetchTimeout: cfg.FetchTimeout,
		OnOutcome: func(o idle.Outcome) {
			if cmd, ok := display.CommandFor(o); ok {
				hub.Broadcast(cmd)
			}
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	var locker wake.Locker
	if cfg.WakeInhibit {
		locker = wake.NewInhibitLocker()
	}
	keepAwake := wake.New(locker, cfg.PulseInterval, func() { hub.Broadcast(display.CommandPulse) }, logger)

	srv, err := httpserver.New(httpserver.Config{
		Address:      cfg.HTTPAddr,
		Kiosk:        rt,
		Display:      hub,
		Logger:       logger,
		DevMode:      cfg.Dev,
		TemplatesDir: cfg.TemplatesDir,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := rt.Run(ctx); err != nil {
			logger.Error("runtime stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		keepAwake.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("kiosk listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("config_source", fetcher.Source()),
		zap.Duration("idle_timeout", cfg.IdleTimeout),
		zap.String("idle_policy", string(cfg.Policy())),
		zap.Bool("dev", cfg.Dev),
	)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	stop()
	wg.Wait()
	if err != nil {
		return err
	}
	logger.Info("kiosk stopped")
	return nil
}
