package idle

import (
	"context"
	"errors"
	"testing"
	"time"

	"finitefield.org/inn-kiosk/internal/guide"
	"finitefield.org/inn-kiosk/internal/nav"
)

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Duration
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{clock: c, deadline: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now += d
	for _, t := range append([]*fakeTimer(nil), c.timers...) {
		if !t.stopped && !t.fired && t.deadline <= c.now {
			t.fired = true
			t.fn()
		}
	}
}

type fakeSession struct {
	page     string
	snap     *guide.Snapshot
	gen      uint64
	resets   int
	installs int
}

func (s *fakeSession) Page() string              { return s.page }
func (s *fakeSession) ResetView()                { s.page = nav.Home; s.resets++ }
func (s *fakeSession) Snapshot() *guide.Snapshot { return s.snap }
func (s *fakeSession) Generation() uint64        { return s.gen }
func (s *fakeSession) Install(snap *guide.Snapshot) {
	s.snap = snap
	s.gen++
	s.installs++
	s.page = nav.Home
}

type fakeLoader struct {
	snap  *guide.Snapshot
	err   error
	calls int
}

func (l *fakeLoader) Load(context.Context) (*guide.Snapshot, error) {
	l.calls++
	return l.snap, l.err
}

func mustParse(t *testing.T, payload string) *guide.Snapshot {
	t.Helper()
	snap, err := guide.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return snap
}

type harness struct {
	clock    *fakeClock
	session  *fakeSession
	loader   *fakeLoader
	outcomes []Outcome
	ctrl     *Controller
}

func newHarness(t *testing.T, policy Policy) *harness {
	t.Helper()
	h := &harness{
		clock:   &fakeClock{},
		session: &fakeSession{page: nav.Drinks, snap: mustParse(t, `{"wifi":{"networkName":"a"}}`)},
		loader:  &fakeLoader{},
	}
	ctrl, err := New(Config{
		Timeout:   time.Minute,
		Policy:    policy,
		Clock:     h.clock,
		Dispatch:  func(fn func()) { fn() },
		Session:   h.session,
		Loader:    h.loader,
		OnOutcome: func(o Outcome) { h.outcomes = append(h.outcomes, o) },
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	ctrl.spawn = func(fn func()) { fn() }
	h.ctrl = ctrl
	ctrl.Start(context.Background())
	return h
}

func TestActivityRestartsCountdown(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	h.loader.snap = h.session.snap

	h.clock.Advance(time.Minute - time.Millisecond)
	h.ctrl.Activity()
	h.clock.Advance(time.Minute - time.Millisecond)
	if h.session.resets != 0 || h.loader.calls != 0 {
		t.Fatalf("no reset may happen before a full timeout of inactivity")
	}
	h.clock.Advance(time.Millisecond)
	if h.session.resets != 1 || h.loader.calls != 1 {
		t.Fatalf("expected one reset after a full timeout, got resets=%d fetches=%d", h.session.resets, h.loader.calls)
	}
}

func TestReconcileUnchangedKeepsSnapshot(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	before := h.session.snap
	h.loader.snap = mustParse(t, `{"wifi":{"networkName":"a"}}`)

	h.clock.Advance(time.Minute)

	if h.session.installs != 0 || h.session.snap != before {
		t.Fatalf("equal document must not reload")
	}
	if h.session.page != nav.Home {
		t.Fatalf("expected view reset to home, got %s", h.session.page)
	}
	if want := []Outcome{OutcomeReset, OutcomeUnchanged}; !equalOutcomes(h.outcomes, want) {
		t.Fatalf("outcomes = %v, want %v", h.outcomes, want)
	}
	if h.ctrl.State() != Armed {
		t.Fatalf("expected controller to re-arm, got %s", h.ctrl.State())
	}
}

func TestReconcileChangedReloads(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	fresh := mustParse(t, `{"wifi":{"networkName":"b"}}`)
	h.loader.snap = fresh

	h.clock.Advance(time.Minute)

	if h.session.installs != 1 || h.session.snap != fresh {
		t.Fatalf("changed document must reload")
	}
	if want := []Outcome{OutcomeReset, OutcomeReloaded}; !equalOutcomes(h.outcomes, want) {
		t.Fatalf("outcomes = %v, want %v", h.outcomes, want)
	}
}

func TestReconcileFetchFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	before := h.session.snap
	h.loader.err = errors.New("network down")

	h.clock.Advance(time.Minute)
	if h.session.snap != before || h.session.installs != 0 {
		t.Fatalf("fetch failure must keep the snapshot")
	}
	if h.ctrl.State() != Armed {
		t.Fatalf("expected re-arm after failure, got %s", h.ctrl.State())
	}

	h.loader.err = nil
	h.loader.snap = mustParse(t, `{"wifi":{"networkName":"c"}}`)
	h.clock.Advance(time.Minute)
	if h.session.installs != 1 {
		t.Fatalf("next cycle should reconcile normally")
	}
}

func TestStaleTimerNeverFires(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	h.loader.snap = h.session.snap
	stale := h.clock.timers[0]

	h.ctrl.Activity()
	// Simulate a timer whose Stop lost the race with its expiry.
	stale.fn()

	if h.session.resets != 0 {
		t.Fatalf("a cancelled timer must not trigger a reset")
	}
}

func TestStaleReconciliationResultIsDiscarded(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	var pending func()
	h.ctrl.spawn = func(fn func()) { pending = fn }
	h.loader.snap = mustParse(t, `{"wifi":{"networkName":"late"}}`)

	h.clock.Advance(time.Minute)
	if pending == nil {
		t.Fatalf("expected a fetch in flight")
	}
	// A newer snapshot lands before the reconciliation answer.
	newer := mustParse(t, `{"wifi":{"networkName":"newer"}}`)
	h.session.Install(newer)
	pending()

	if h.session.snap != newer {
		t.Fatalf("late reconciliation response clobbered a newer snapshot")
	}
	if h.ctrl.State() != Armed {
		t.Fatalf("expected re-arm, got %s", h.ctrl.State())
	}
}

func TestActivityDuringFiringIsAbsorbed(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	var pending func()
	h.ctrl.spawn = func(fn func()) { pending = fn }
	h.loader.snap = h.session.snap

	h.clock.Advance(time.Minute)
	h.ctrl.Activity()
	if h.ctrl.State() != Firing {
		t.Fatalf("activity must not re-arm mid-cycle, got %s", h.ctrl.State())
	}
	pending()
	if h.ctrl.State() != Armed {
		t.Fatalf("expected re-arm once the cycle ends")
	}
}

func TestStopDiscardsInFlightFetch(t *testing.T) {
	h := newHarness(t, PolicyReconcile)
	var pending func()
	h.ctrl.spawn = func(fn func()) { pending = fn }
	h.loader.snap = mustParse(t, `{"wifi":{"networkName":"z"}}`)

	h.clock.Advance(time.Minute)
	h.ctrl.Stop()
	pending()

	if h.session.installs != 0 || h.ctrl.State() != Stopped {
		t.Fatalf("stopped controller must ignore late results")
	}
}

func TestHomePolicy(t *testing.T) {
	h := newHarness(t, PolicyHome)
	h.clock.Advance(time.Minute)
	if h.session.resets != 1 || h.loader.calls != 0 {
		t.Fatalf("home policy should reset without fetching")
	}
	h.clock.Advance(time.Minute)
	if h.session.resets != 1 {
		t.Fatalf("home policy is a no-op when already home")
	}
	if h.ctrl.State() != Armed {
		t.Fatalf("expected immediate re-arm")
	}
}

func TestReloadPolicyAlwaysInstalls(t *testing.T) {
	h := newHarness(t, PolicyReload)
	h.loader.snap = mustParse(t, `{"wifi":{"networkName":"a"}}`)
	h.clock.Advance(time.Minute)
	if h.session.installs != 1 {
		t.Fatalf("reload policy must install even an identical document")
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyReconcile {
		t.Fatalf("unexpected default policy %q %v", p, err)
	}
	if p, err := ParsePolicy(" Reload "); err != nil || p != PolicyReload {
		t.Fatalf("unexpected policy %q %v", p, err)
	}
	if _, err := ParsePolicy("sometimes"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	_, err := New(Config{Timeout: time.Second, Dispatch: func(fn func()) { fn() }, Session: &fakeSession{}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("reconcile without loader should be rejected, got %v", err)
	}
}

func equalOutcomes(got, want []Outcome) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
