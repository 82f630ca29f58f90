package kiosk

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/i18n"
	"finitefield.org/inn-kiosk/internal/idle"
	"finitefield.org/inn-kiosk/internal/view"
)

var (
	// ErrStopped is returned once the runtime loop has exited.
	ErrStopped        = errors.New("kiosk: runtime stopped")
	ErrAlreadyRunning = errors.New("kiosk: runtime already running")
)

// Config wires a Runtime.
type Config struct {
	Labels       *i18n.Bundle
	Loader       idle.Loader
	IdleTimeout  time.Duration
	IdlePolicy   idle.Policy
	FetchTimeout time.Duration
	Clock        idle.Clock
	// OnOutcome observes every idle cycle outcome. It runs on the loop goroutine
	// and must not block.
	OnOutcome func(idle.Outcome)
	Logger    *zap.Logger
}

// Runtime owns the Session and runs every mutation on one goroutine. HTTP handlers,
// idle timers and fetch completions all reach the session through it.
type Runtime struct {
	cfg     Config
	logger  *zap.Logger
	session *Session
	idle    *idle.Controller

	tasks   chan func()
	done    chan struct{}
	running atomic.Bool
}

// NewRuntime validates cfg and returns a runtime that is ready to Run.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.Labels == nil {
		return nil, fmt.Errorf("kiosk: labels are required")
	}
	if cfg.Loader == nil {
		return nil, fmt.Errorf("kiosk: loader is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		cfg:     cfg,
		logger:  logger,
		session: NewSession(cfg.Labels),
		tasks:   make(chan func()),
		done:    make(chan struct{}),
	}
	ctrl, err := idle.New(idle.Config{
		Timeout:      cfg.IdleTimeout,
		Policy:       cfg.IdlePolicy,
		FetchTimeout: cfg.FetchTimeout,
		Clock:        cfg.Clock,
		Dispatch:     r.dispatch,
		Session:      r.session,
		Loader:       cfg.Loader,
		OnOutcome:    cfg.OnOutcome,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	r.idle = ctrl
	return r, nil
}

// Run performs the initial load, starts the idle controller and serves tasks until
// ctx is cancelled. A failed initial load leaves the session in its error state;
// the idle controller still starts so a later reconciliation can recover.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(r.done)

	r.initialLoad(ctx)
	r.idle.Start(ctx)
	defer r.idle.Stop()
	r.logger.Info("idle timer armed", zap.Duration("timeout", r.idle.Timeout()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-r.tasks:
			fn()
		}
	}
}

func (r *Runtime) initialLoad(ctx context.Context) {
	lctx := ctx
	if r.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, r.cfg.FetchTimeout)
		defer cancel()
	}
	snap, err := r.cfg.Loader.Load(lctx)
	if err != nil {
		r.logger.Error("initial configuration load failed", zap.Error(err))
		r.session.Fail(err)
		return
	}
	r.session.Install(snap)
	for _, issue := range snap.Issues {
		r.logger.Warn("configuration section ignored",
			zap.String("section", issue.Section),
			zap.Error(issue.Err),
		)
	}
	r.logger.Info("configuration loaded", zap.String("source", snap.Source))
}

// Do records guest activity and runs fn against the session on the loop goroutine.
func (r *Runtime) Do(ctx context.Context, fn func(*Session) error) error {
	return r.exec(ctx, func(s *Session) error {
		r.idle.Activity()
		return fn(s)
	})
}

// View runs fn against the session without counting as activity.
func (r *Runtime) View(ctx context.Context, fn func(*Session)) error {
	return r.exec(ctx, func(s *Session) error {
		fn(s)
		return nil
	})
}

// Activity restarts the idle countdown.
func (r *Runtime) Activity(ctx context.Context) error {
	return r.Do(ctx, func(*Session) error { return nil })
}

// Page builds the view model of the current state.
func (r *Runtime) Page(ctx context.Context) (view.Page, error) {
	var page view.Page
	err := r.View(ctx, func(s *Session) {
		page = view.Build(s.Snapshot(), s.ViewState(), r.cfg.Labels, r.logger)
	})
	return page, err
}

// IdleState reports the idle controller state.
func (r *Runtime) IdleState(ctx context.Context) (idle.State, error) {
	var st idle.State
	err := r.View(ctx, func(*Session) { st = r.idle.State() })
	return st, err
}

func (r *Runtime) exec(ctx context.Context, fn func(*Session) error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("session task panicked", zap.Any("panic", rec))
				result <- fmt.Errorf("kiosk: task panicked: %v", rec)
			}
		}()
		result <- fn(r.session)
	}
	select {
	case r.tasks <- task:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch queues fn onto the loop without waiting for it. Work dispatched after
// the loop exits is dropped.
func (r *Runtime) dispatch(fn func()) {
	select {
	case r.tasks <- fn:
	case <-r.done:
	}
}
