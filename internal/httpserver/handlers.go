package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/kiosk"
	custommw "finitefield.org/inn-kiosk/internal/middleware"
	"finitefield.org/inn-kiosk/internal/observability"
)

type handlers struct {
	kiosk  Kiosk
	render *renderer
}

// index renders the full document. The error screen is served with 503.
func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	page, err := h.kiosk.Page(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if page.Failed() {
		status = http.StatusServiceUnavailable
	}
	h.render.render(w, r, status, "base", page)
}

// fragment renders the #app fragment used for in-place swaps.
func (h *handlers) fragment(w http.ResponseWriter, r *http.Request) {
	page, err := h.kiosk.Page(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render.render(w, r, http.StatusOK, "app", page)
}

func (h *handlers) activity(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.Activity(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) showPage(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")
	h.act(w, r, func(s *kiosk.Session) error { return s.ShowPage(page) })
}

func (h *handlers) toggleLanguage(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *kiosk.Session) error {
		s.ToggleLanguage()
		return nil
	})
}

func (h *handlers) toggleDrinkSection(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.act(w, r, func(s *kiosk.Session) error {
		_, err := s.ToggleDrinkSection(index)
		return err
	})
}

func (h *handlers) togglePremium(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *kiosk.Session) error {
		s.TogglePremiumBreakfast()
		return nil
	})
}

func (h *handlers) modal(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	switch chi.URLParam(r, "op") {
	case "open":
		h.act(w, r, func(s *kiosk.Session) error { return s.OpenModal(name) })
	case "close":
		h.act(w, r, func(s *kiosk.Session) error { return s.CloseModal(name) })
	default:
		http.NotFound(w, r)
	}
}

// act applies a guest action and answers with the refreshed fragment, or with a
// redirect to the full page for non-htmx clients.
func (h *handlers) act(w http.ResponseWriter, r *http.Request, fn func(*kiosk.Session) error) {
	if err := h.kiosk.Do(r.Context(), fn); err != nil {
		h.fail(w, r, err)
		return
	}
	if !custommw.IsHTMXRequest(r.Context()) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.fragment(w, r)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.FromContext(r.Context())
	switch {
	case errors.Is(err, kiosk.ErrUnknownPage),
		errors.Is(err, kiosk.ErrUnknownModal),
		errors.Is(err, kiosk.ErrUnknownSection):
		logger.Debug("unknown target", zap.Error(err))
		http.NotFound(w, r)
	case errors.Is(err, kiosk.ErrStopped):
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debug("request abandoned", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		logger.Error("kiosk action failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
