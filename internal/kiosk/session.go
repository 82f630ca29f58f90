package kiosk

import (
	"errors"
	"fmt"

	"finitefield.org/inn-kiosk/internal/guide"
	"finitefield.org/inn-kiosk/internal/i18n"
	"finitefield.org/inn-kiosk/internal/nav"
	"finitefield.org/inn-kiosk/internal/view"
)

var (
	ErrUnknownPage    = errors.New("kiosk: unknown page")
	ErrUnknownModal   = errors.New("kiosk: unknown modal")
	ErrUnknownSection = errors.New("kiosk: unknown drinks section")
)

// Session is the single owned state object of the kiosk. It is not safe for
// concurrent use; Runtime serialises all access onto one goroutine.
type Session struct {
	labels *i18n.Bundle

	snapshot   *guide.Snapshot
	generation uint64
	loadErr    error

	lang             string
	page             string
	premiumBreakfast bool
	modals           map[string]bool
	accordion        view.Accordion
}

// NewSession returns a session in its initial state: primary language, home page,
// no snapshot.
func NewSession(labels *i18n.Bundle) *Session {
	s := &Session{labels: labels}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.lang = s.labels.Fallback()
	s.page = nav.Home
	s.premiumBreakfast = false
	s.modals = map[string]bool{}
	s.accordion = view.Accordion{}
}

// Install replaces the snapshot as a whole and reinitialises the view state, the
// equivalent of a full reload.
func (s *Session) Install(snap *guide.Snapshot) {
	if snap == nil {
		return
	}
	s.snapshot = snap
	s.generation++
	s.loadErr = nil
	s.reset()
}

// Fail records a load failure while no snapshot is available.
func (s *Session) Fail(err error) {
	if s.snapshot != nil || err == nil {
		return
	}
	s.loadErr = err
}

func (s *Session) Snapshot() *guide.Snapshot { return s.snapshot }
func (s *Session) Generation() uint64        { return s.generation }
func (s *Session) LoadErr() error            { return s.loadErr }
func (s *Session) Lang() string              { return s.lang }
func (s *Session) Page() string              { return s.page }
func (s *Session) PremiumBreakfast() bool    { return s.premiumBreakfast }

// ShowPage makes id the single visible page. Redundant calls are allowed.
func (s *Session) ShowPage(id string) error {
	if !nav.Valid(id) {
		return fmt.Errorf("%w: %q", ErrUnknownPage, id)
	}
	s.page = id
	return nil
}

// ToggleLanguage switches between the primary and secondary language. Labels and
// document text both re-resolve on the next render, so the switch is symmetric.
func (s *Session) ToggleLanguage() string {
	s.lang = s.labels.Toggle(s.lang)
	return s.lang
}

func (s *Session) OpenModal(id string) error {
	if !nav.ValidModal(id) {
		return fmt.Errorf("%w: %q", ErrUnknownModal, id)
	}
	s.modals[id] = true
	return nil
}

func (s *Session) CloseModal(id string) error {
	if !nav.ValidModal(id) {
		return fmt.Errorf("%w: %q", ErrUnknownModal, id)
	}
	delete(s.modals, id)
	return nil
}

func (s *Session) CloseAllModals() {
	s.modals = map[string]bool{}
}

func (s *Session) TogglePremiumBreakfast() bool {
	s.premiumBreakfast = !s.premiumBreakfast
	return s.premiumBreakfast
}

// ToggleDrinkSection flips one accordion panel of the drinks page.
func (s *Session) ToggleDrinkSection(index int) (bool, error) {
	n := 0
	if s.snapshot != nil && s.snapshot.Doc.Drinks != nil {
		n = len(s.snapshot.Doc.Drinks.Sections)
	}
	if index < 0 || index >= n {
		return false, fmt.Errorf("%w: %d", ErrUnknownSection, index)
	}
	return s.accordion.Toggle(index), nil
}

// ResetView returns to the home page and closes every overlay. The snapshot and
// language are kept.
func (s *Session) ResetView() {
	s.page = nav.Home
	s.CloseAllModals()
}

// ViewState exports the rendering-relevant state.
func (s *Session) ViewState() view.State {
	acc := make(view.Accordion, len(s.accordion))
	for k, v := range s.accordion {
		acc[k] = v
	}
	modals := make(map[string]bool, len(s.modals))
	for k, v := range s.modals {
		modals[k] = v
	}
	return view.State{
		Lang:             s.lang,
		Page:             s.page,
		Accordion:        acc,
		PremiumBreakfast: s.premiumBreakfast,
		Modals:           modals,
		LoadErr:          s.loadErr,
	}
}
