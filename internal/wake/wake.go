package wake

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultPulseInterval is how often the display is nudged.
const DefaultPulseInterval = 30 * time.Second

// ErrUnsupported means the platform offers no no-sleep lock.
var ErrUnsupported = errors.New("wake: no-sleep lock not supported")

// LockError reports a failed no-sleep lock request.
type LockError struct {
	Err error
}

func (e *LockError) Error() string { return fmt.Sprintf("wake: lock request failed: %v", e.Err) }

func (e *LockError) Unwrap() error { return e.Err }

// DefaultLockGrace is how long a freshly started inhibitor must survive before
// the lock counts as held.
const DefaultLockGrace = 250 * time.Millisecond

// Lock is a held no-sleep lock.
type Lock struct {
	release func()
	lost    <-chan error
}

// NewLock wraps a release func and an optional channel that reports losing the
// lock before Release is called.
func NewLock(release func(), lost <-chan error) *Lock {
	return &Lock{release: release, lost: lost}
}

// Release drops the lock.
func (l *Lock) Release() {
	if l.release != nil {
		l.release()
	}
}

// Lost delivers an error if the lock ends without Release. A nil channel never fires.
func (l *Lock) Lost() <-chan error { return l.lost }

// Locker acquires a platform no-sleep lock.
type Locker interface {
	Acquire(ctx context.Context) (*Lock, error)
}

// InhibitLocker holds a systemd-inhibit lock for as long as the kiosk runs.
type InhibitLocker struct {
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
	grace    time.Duration
}

func NewInhibitLocker() *InhibitLocker {
	return &InhibitLocker{lookPath: exec.LookPath, command: exec.CommandContext, grace: DefaultLockGrace}
}

// Acquire starts systemd-inhibit and waits out the grace period. An inhibitor
// that exits within it was refused and is reported as a *LockError.
func (l *InhibitLocker) Acquire(ctx context.Context) (*Lock, error) {
	path, err := l.lookPath("systemd-inhibit")
	if err != nil {
		return nil, ErrUnsupported
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := l.command(ctx, path,
		"--what=idle:sleep",
		"--who=inn-kiosk",
		"--why=guest information display",
		"--mode=block",
		"sleep", "infinity",
	)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &LockError{Err: err}
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	grace := l.grace
	if grace <= 0 {
		grace = DefaultLockGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case err := <-exited:
		cancel()
		return nil, &LockError{Err: inhibitorExit(err)}
	case <-timer.C:
	}

	var released atomic.Bool
	lost := make(chan error, 1)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		err := <-exited
		if !released.Load() {
			lost <- &LockError{Err: inhibitorExit(err)}
		}
	}()
	return NewLock(func() {
		released.Store(true)
		cancel()
		<-watched
	}, lost), nil
}

func inhibitorExit(err error) error {
	if err == nil {
		return errors.New("systemd-inhibit exited")
	}
	return fmt.Errorf("systemd-inhibit exited: %w", err)
}

// Controller keeps the display awake: it requests a no-sleep lock when one is
// available and pulses the display periodically regardless.
type Controller struct {
	locker   Locker
	interval time.Duration
	pulse    func()
	logger   *zap.Logger
}

// New builds a controller. A nil locker means no lock is requested; a
// non-positive interval selects DefaultPulseInterval.
func New(locker Locker, interval time.Duration, pulse func(), logger *zap.Logger) *Controller {
	if interval <= 0 {
		interval = DefaultPulseInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		locker:   locker,
		interval: interval,
		pulse:    pulse,
		logger:   logger.With(zap.String("component", "wake")),
	}
}

// Run acquires the lock and pulses until ctx is cancelled. Lock failures are
// logged and never stop the pulse.
func (c *Controller) Run(ctx context.Context) {
	var lost <-chan error
	if lock := c.acquire(ctx); lock != nil {
		defer lock.Release()
		lost = lock.Lost()
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-lost:
			lost = nil
			if ctx.Err() == nil {
				c.logger.Warn("no-sleep lock lost", zap.Error(err))
			}
		case <-ticker.C:
			if c.pulse != nil {
				c.pulse()
			}
		}
	}
}

func (c *Controller) acquire(ctx context.Context) *Lock {
	if c.locker == nil {
		return nil
	}
	lock, err := c.locker.Acquire(ctx)
	switch {
	case errors.Is(err, ErrUnsupported):
		c.logger.Debug("no-sleep lock unavailable; relying on display pulse")
		return nil
	case err != nil && ctx.Err() != nil:
		return nil
	case err != nil:
		var lockErr *LockError
		if !errors.As(err, &lockErr) {
			err = &LockError{Err: err}
		}
		c.logger.Warn("no-sleep lock request failed", zap.Error(err))
		return nil
	case lock == nil:
		return nil
	}
	c.logger.Info("no-sleep lock acquired")
	return lock
}
