package view

import (
	"fmt"

	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/guide"
	"finitefield.org/inn-kiosk/internal/nav"
)

// State is the slice of session state that affects rendering.
type State struct {
	Lang             string
	Page             string
	Accordion        Accordion
	PremiumBreakfast bool
	Modals           map[string]bool
	// LoadErr is set when no document could be loaded at startup.
	LoadErr error
}

// Page is the view model of the whole kiosk. A nil section means its mount points
// keep their static markup.
type Page struct {
	Lang      string
	Active    string
	Nav       []nav.RenderedItem
	Tiles     []nav.Item
	Modals    map[string]bool
	LoadError string

	WiFi        *WiFi
	Facilities  *Facilities
	Bicycle     *Bicycle
	Drinks      *Drinks
	Bath        *Bath
	Seasonal    *Seasonal
	Sightseeing []Spot
	Emergency   *Emergency
	Breakfast   *Breakfast
	Amenities   *Amenities
	Terms       *Terms

	labels Labeler
}

// T resolves a static label in the page language.
func (p Page) T(key string) string { return p.labels.T(p.Lang, key) }

// Tf resolves and formats a static label in the page language.
func (p Page) Tf(key string, args ...any) string { return p.labels.Tf(p.Lang, key, args...) }

// IsActive reports whether id is the visible page.
func (p Page) IsActive(id string) bool { return p.Active == id }

// ModalOpen reports whether the named overlay is shown.
func (p Page) ModalOpen(id string) bool { return p.Modals[id] }

// EmergencyButton reports whether the floating emergency control is shown. It is
// hidden on the emergency page itself.
func (p Page) EmergencyButton() bool { return p.Active != nav.Emergency }

// Failed reports whether the error screen replaces the main view.
func (p Page) Failed() bool { return p.LoadError != "" }

// Build projects the document and session state into the page view model. Each
// section builder runs in isolation: a panic in one is logged and leaves only that
// section unrendered.
func Build(snap *guide.Snapshot, st State, labels Labeler, logger *zap.Logger) Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	active := st.Page
	if !nav.Valid(active) {
		active = nav.Home
	}
	p := Page{
		Lang:   st.Lang,
		Active: active,
		Nav:    nav.Build(active),
		Tiles:  nav.Tiles(),
		Modals: copyModals(st.Modals),
		labels: labels,
	}
	if st.LoadErr != nil {
		p.LoadError = st.LoadErr.Error()
		return p
	}
	if snap == nil || snap.Doc == nil {
		return p
	}
	doc := snap.Doc
	lang := st.Lang

	p.WiFi = guard(logger, "wifi", func() *WiFi { return BuildWiFi(doc) })
	p.Facilities = guard(logger, "facilities", func() *Facilities { return BuildFacilities(doc, lang, labels) })
	p.Bicycle = guard(logger, "bicycle", func() *Bicycle { return BuildBicycle(doc, lang) })
	p.Drinks = guard(logger, "drinks", func() *Drinks { return BuildDrinks(doc, lang, st.Accordion) })
	p.Bath = guard(logger, "bath", func() *Bath { return BuildBath(doc, lang) })
	p.Seasonal = guard(logger, "seasonal", func() *Seasonal { return BuildSeasonal(doc, lang, labels) })
	if spots := guard(logger, "sightseeing", func() *[]Spot {
		s := BuildSightseeing(doc, lang)
		return &s
	}); spots != nil {
		p.Sightseeing = *spots
	}
	p.Emergency = guard(logger, "emergency", func() *Emergency { return BuildEmergency(doc, lang) })
	p.Breakfast = guard(logger, "breakfast", func() *Breakfast { return BuildBreakfast(doc, lang, st.PremiumBreakfast) })
	p.Amenities = guard(logger, "amenities", func() *Amenities { return BuildAmenities(doc, lang) })
	p.Terms = guard(logger, "terms", func() *Terms { return BuildTerms(doc, lang) })
	return p
}

func guard[T any](logger *zap.Logger, section string, build func() *T) (out *T) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("section render failed",
				zap.String("section", section),
				zap.String("panic", fmt.Sprint(rec)),
			)
			out = nil
		}
	}()
	return build()
}

func copyModals(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}
