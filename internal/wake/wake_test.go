package wake

import (
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubLocker struct {
	err      error
	released atomic.Bool
}

func (l *stubLocker) Acquire(context.Context) (*Lock, error) {
	if l.err != nil {
		return nil, l.err
	}
	return NewLock(func() { l.released.Store(true) }, nil), nil
}

// shellLocker runs script in place of systemd-inhibit.
func shellLocker(script string, grace time.Duration) *InhibitLocker {
	return &InhibitLocker{
		lookPath: func(string) (string, error) { return "/bin/sh", nil },
		command: func(ctx context.Context, name string, _ ...string) *exec.Cmd {
			return exec.CommandContext(ctx, name, "-c", script)
		},
		grace: grace,
	}
}

func runFor(t *testing.T, c *Controller, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("controller did not stop")
	}
}

func TestPulsesAndReleasesLock(t *testing.T) {
	var pulses atomic.Int32
	locker := &stubLocker{}
	c := New(locker, 5*time.Millisecond, func() { pulses.Add(1) }, nil)

	runFor(t, c, 60*time.Millisecond)

	if pulses.Load() == 0 {
		t.Fatalf("expected at least one pulse")
	}
	if !locker.released.Load() {
		t.Fatalf("lock should be released on shutdown")
	}
}

func TestLockFailureIsWarnedAndNonFatal(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var pulses atomic.Int32
	c := New(&stubLocker{err: errors.New("denied")}, 5*time.Millisecond, func() { pulses.Add(1) }, zap.New(core))

	runFor(t, c, 60*time.Millisecond)

	if pulses.Load() == 0 {
		t.Fatalf("pulse must run even when the lock fails")
	}
	warned := logs.FilterMessage("no-sleep lock request failed").All()
	if len(warned) != 1 || warned[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warn entry, got %v", warned)
	}
}

func TestUnsupportedLockIsQuiet(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := New(&stubLocker{err: ErrUnsupported}, 5*time.Millisecond, nil, zap.New(core))

	runFor(t, c, 20*time.Millisecond)

	if logs.Len() != 0 {
		t.Fatalf("unsupported lock should not log above debug, got %d entries", logs.Len())
	}
}

func TestInhibitLockerWithoutBinary(t *testing.T) {
	l := &InhibitLocker{
		lookPath: func(string) (string, error) { return "", exec.ErrNotFound },
		command:  exec.CommandContext,
	}
	if _, err := l.Acquire(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestInhibitLockerStartFailure(t *testing.T) {
	l := &InhibitLocker{
		lookPath: func(string) (string, error) { return "/nonexistent/systemd-inhibit", nil },
		command:  exec.CommandContext,
	}
	_, err := l.Acquire(context.Background())
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %v", err)
	}
}

func TestInhibitorRefusalIsWarned(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &InhibitLocker{
		lookPath: func(string) (string, error) { return "/bin/false", nil },
		command: func(ctx context.Context, name string, _ ...string) *exec.Cmd {
			return exec.CommandContext(ctx, name)
		},
		grace: 100 * time.Millisecond,
	}
	c := New(l, time.Hour, nil, zap.New(core))

	runFor(t, c, 300*time.Millisecond)

	warned := logs.FilterMessage("no-sleep lock request failed").All()
	if len(warned) != 1 || warned[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warn entry, got %v", warned)
	}
	if n := logs.FilterMessage("no-sleep lock acquired").Len(); n != 0 {
		t.Fatalf("refused lock must not be reported as acquired")
	}
}

func TestInhibitLockerEarlyExitIsLockError(t *testing.T) {
	_, err := shellLocker("exit 3", time.Second).Acquire(context.Background())
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %v", err)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Fatalf("expected exit status 3 in the chain, got %v", err)
	}
}

func TestInhibitLockerReleaseIsNotALoss(t *testing.T) {
	lock, err := shellLocker("sleep 5", 20*time.Millisecond).Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	lock.Release()
	select {
	case err := <-lock.Lost():
		t.Fatalf("release reported as lost: %v", err)
	default:
	}
}

func TestLostLockIsWarned(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := New(shellLocker("sleep 0.1; exit 1", 20*time.Millisecond), time.Hour, nil, zap.New(core))

	runFor(t, c, 500*time.Millisecond)

	if logs.FilterMessage("no-sleep lock acquired").Len() != 1 {
		t.Fatalf("expected the lock to be acquired first")
	}
	lost := logs.FilterMessage("no-sleep lock lost").All()
	if len(lost) != 1 || lost[0].Level != zap.WarnLevel {
		t.Fatalf("expected one lost-lock warning, got %v", lost)
	}
}

func TestDefaultInterval(t *testing.T) {
	if c := New(nil, 0, nil, nil); c.interval != DefaultPulseInterval {
		t.Fatalf("interval = %s", c.interval)
	}
}
