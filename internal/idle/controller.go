package idle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/guide"
	"finitefield.org/inn-kiosk/internal/nav"
)

// State of the idle controller.
type State int

const (
	// Stopped means no timer is pending; only before Start and after Stop.
	Stopped State = iota
	// Armed means a timer is pending.
	Armed
	// Firing means the expiry cycle is running (possibly waiting on a fetch).
	Firing
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Firing:
		return "firing"
	default:
		return "stopped"
	}
}

// Policy selects what happens when the idle timeout expires.
type Policy string

const (
	// PolicyReconcile resets the view, re-fetches the document and reloads only when
	// it changed.
	PolicyReconcile Policy = "reconcile"
	// PolicyReload unconditionally reloads the document. Superseded by PolicyReconcile.
	PolicyReload Policy = "reload"
	// PolicyHome only returns to the home page. Superseded by PolicyReconcile.
	PolicyHome Policy = "home"
)

// ParsePolicy maps a setting value to a Policy; empty means PolicyReconcile.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyReconcile, nil
	case PolicyReconcile, PolicyReload, PolicyHome:
		return p, nil
	default:
		return "", fmt.Errorf("idle: unknown policy %q", s)
	}
}

// Outcome reports how an expiry cycle ended.
type Outcome string

const (
	OutcomeReset       Outcome = "reset"
	OutcomeReloaded    Outcome = "reloaded"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeFetchFailed Outcome = "fetch_failed"
)

// Session is the state the controller resets and reloads.
type Session interface {
	Page() string
	ResetView()
	Snapshot() *guide.Snapshot
	// Generation changes every time a snapshot is installed.
	Generation() uint64
	Install(*guide.Snapshot)
}

// Loader fetches a fresh configuration document.
type Loader interface {
	Load(ctx context.Context) (*guide.Snapshot, error)
}

// Config wires a Controller.
type Config struct {
	Timeout      time.Duration
	Policy       Policy
	FetchTimeout time.Duration
	Clock        Clock
	// Dispatch runs fn on the goroutine that owns the session. Timer expiries and
	// fetch results are always delivered through it.
	Dispatch  func(fn func())
	Session   Session
	Loader    Loader
	OnOutcome func(Outcome)
	Logger    *zap.Logger
}

var ErrInvalidConfig = errors.New("idle: invalid config")

// Controller is the idle-session state machine. Every method must be called from
// the goroutine that owns the session.
type Controller struct {
	cfg    Config
	logger *zap.Logger
	spawn  func(fn func())

	state  State
	timer  Timer
	armGen uint64
	cycle  uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New validates cfg and builds a stopped controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if cfg.Dispatch == nil || cfg.Session == nil {
		return nil, fmt.Errorf("%w: dispatch and session are required", ErrInvalidConfig)
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyReconcile
	}
	if cfg.Policy != PolicyHome && cfg.Loader == nil {
		return nil, fmt.Errorf("%w: policy %s requires a loader", ErrInvalidConfig, cfg.Policy)
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "idle")),
		spawn:  func(fn func()) { go fn() },
		ctx:    context.Background(),
	}, nil
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Timeout returns the configured idle timeout.
func (c *Controller) Timeout() time.Duration { return c.cfg.Timeout }

// Start arms the first timer. ctx bounds reconciliation fetches.
func (c *Controller) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.arm()
}

// Activity cancels the pending timer and arms a fresh one with the full timeout.
// Activity during a running cycle is absorbed; the cycle re-arms when it ends.
func (c *Controller) Activity() {
	if c.state != Armed {
		return
	}
	c.arm()
}

// Stop cancels the pending timer and any in-flight fetch.
func (c *Controller) Stop() {
	c.disarm()
	c.state = Stopped
	c.cycle++
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) arm() {
	c.disarm()
	gen := c.armGen
	c.timer = c.cfg.Clock.AfterFunc(c.cfg.Timeout, func() {
		c.cfg.Dispatch(func() { c.expire(gen) })
	})
	c.state = Armed
}

// disarm stops the current timer and invalidates its expiry so that a timer whose
// Stop lost the race still cannot fire.
func (c *Controller) disarm() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.armGen++
}

func (c *Controller) expire(gen uint64) {
	if c.state != Armed || gen != c.armGen {
		return
	}
	c.timer = nil
	c.state = Firing
	c.logger.Info("idle timeout", zap.Duration("timeout", c.cfg.Timeout), zap.String("policy", string(c.cfg.Policy)))

	switch c.cfg.Policy {
	case PolicyHome:
		if c.cfg.Session.Page() != nav.Home {
			c.cfg.Session.ResetView()
			c.report(OutcomeReset)
		}
		c.arm()
	case PolicyReload:
		c.fetch(true)
	default:
		c.cfg.Session.ResetView()
		c.report(OutcomeReset)
		c.fetch(false)
	}
}

func (c *Controller) fetch(force bool) {
	c.cycle++
	cycle := c.cycle
	base := c.cfg.Session.Generation()
	ctx := c.ctx
	loader := c.cfg.Loader
	timeout := c.cfg.FetchTimeout
	c.spawn(func() {
		fctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		snap, err := loader.Load(fctx)
		c.cfg.Dispatch(func() { c.finish(cycle, base, force, snap, err) })
	})
}

func (c *Controller) finish(cycle, base uint64, force bool, snap *guide.Snapshot, err error) {
	if c.state != Firing || cycle != c.cycle {
		c.logger.Debug("discarding stale reconciliation result", zap.Uint64("cycle", cycle))
		return
	}
	defer c.arm()

	if c.cfg.Session.Generation() != base {
		c.logger.Info("snapshot replaced during reconciliation; discarding result")
		return
	}
	if err != nil {
		c.logger.Warn("reconciliation fetch failed; keeping current snapshot", zap.Error(err))
		c.report(OutcomeFetchFailed)
		return
	}
	if !force && snap.Equal(c.cfg.Session.Snapshot()) {
		c.report(OutcomeUnchanged)
		return
	}
	c.cfg.Session.Install(snap)
	c.report(OutcomeReloaded)
}

func (c *Controller) report(o Outcome) {
	if c.cfg.OnOutcome != nil {
		c.cfg.OnOutcome(o)
	}
}
