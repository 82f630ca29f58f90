package view

import (
	"html/template"

	"finitefield.org/inn-kiosk/internal/guide"
)

// Labeler resolves static labels by (label id, language).
type Labeler interface {
	T(lang, key string) string
	Tf(lang, key string, args ...any) string
}

type WiFi struct {
	NetworkName string
	Password    string
}

// BuildWiFi projects the wifi section. Network credentials are not translated.
func BuildWiFi(doc *guide.Document) *WiFi {
	if doc == nil || doc.WiFi == nil {
		return nil
	}
	return &WiFi{NetworkName: doc.WiFi.NetworkName, Password: doc.WiFi.Password}
}

type Facilities struct {
	IceMachine string
	Coffee     *Coffee
}

type Coffee struct {
	Location string
	Steps    []Rich
}

func BuildFacilities(doc *guide.Document, lang string, labels Labeler) *Facilities {
	if doc == nil || doc.Facilities == nil {
		return nil
	}
	f := doc.Facilities
	out := &Facilities{}
	if !f.IceMachine.IsZero() {
		out.IceMachine = labels.Tf(lang, "facilities.ice_machine.location", f.IceMachine.In(lang))
	}
	if cm := f.CoffeeMaker; cm != nil {
		out.Coffee = &Coffee{Steps: resolveAll(cm.Steps, lang)}
		if !cm.Location.IsZero() {
			out.Coffee.Location = labels.Tf(lang, "facilities.coffee.location", cm.Location.In(lang))
		}
	}
	return out
}

type Bicycle struct {
	Location string
	Hours    string
	Price    string
}

// BuildBicycle returns nil when the document leaves bicycle rental to static markup.
func BuildBicycle(doc *guide.Document, lang string) *Bicycle {
	if doc == nil || doc.Bicycle == nil {
		return nil
	}
	b := doc.Bicycle
	return &Bicycle{Location: b.Location.In(lang), Hours: b.Hours.In(lang), Price: b.Price.In(lang)}
}

type Drinks struct {
	Lead      Rich
	LastOrder string
	Sections  []DrinkSection
}

// DrinkSection is one accordion panel. Class and Glyph both derive from Open.
type DrinkSection struct {
	Index       int
	Title       string
	Subtitle    string
	Description Rich
	Items       []Rich
	Open        bool
}

func (s DrinkSection) Class() string {
	if s.Open {
		return "accordion open"
	}
	return "accordion"
}

func (s DrinkSection) Glyph() string {
	if s.Open {
		return "−"
	}
	return "+"
}

// Accordion holds per-panel overrides of the default (first open, rest closed).
type Accordion map[int]bool

// IsOpen reports the effective state of panel i.
func (a Accordion) IsOpen(i int) bool {
	if open, ok := a[i]; ok {
		return open
	}
	return i == 0
}

// Toggle flips panel i and returns the new state.
func (a Accordion) Toggle(i int) bool {
	open := !a.IsOpen(i)
	a[i] = open
	return open
}

func BuildDrinks(doc *guide.Document, lang string, acc Accordion) *Drinks {
	if doc == nil || doc.Drinks == nil {
		return nil
	}
	d := doc.Drinks
	out := &Drinks{
		Lead:      resolve(d.Intro(), lang),
		LastOrder: d.LastOrder.In(lang),
	}
	for i, s := range d.Sections {
		out.Sections = append(out.Sections, DrinkSection{
			Index:       i,
			Title:       s.Title.In(lang),
			Subtitle:    s.Subtitle.In(lang),
			Description: resolve(s.Description, lang),
			Items:       resolveAll(s.Items, lang),
			Open:        acc.IsOpen(i),
		})
	}
	return out
}

type Bath struct {
	Name    string
	Evening string
	Morning string
	Notes   []Rich
	Private *Rich
}

func BuildBath(doc *guide.Document, lang string) *Bath {
	if doc == nil || doc.Bath == nil {
		return nil
	}
	b := doc.Bath
	out := &Bath{
		Name:    b.Name.In(lang),
		Evening: b.Hours.Evening.In(lang),
		Morning: b.Hours.Morning.In(lang),
		Notes:   resolveAll(b.Notes, lang),
	}
	if b.PrivateBath != nil && b.PrivateBath.Available {
		info := resolve(b.PrivateBath.Info, lang)
		out.Private = &info
	}
	return out
}

type Seasonal struct {
	// Empty is set when the document carries an empty event list; templates render
	// the "no events" placeholder instead of nothing.
	Empty  bool
	Events []Event
}

type Event struct {
	Title       string
	Period      string
	Description Rich
	// Src is the configured image; empty when the event has none.
	Src string
	// Placeholder replaces Src when it is missing or fails to load.
	Placeholder template.URL
}

func BuildSeasonal(doc *guide.Document, lang string, labels Labeler) *Seasonal {
	if doc == nil || doc.Seasonal == nil {
		return nil
	}
	if len(doc.Seasonal) == 0 {
		return &Seasonal{Empty: true}
	}
	placeholder := Placeholder(labels.T(lang, "seasonal.no_image"))
	out := &Seasonal{}
	for _, ev := range doc.Seasonal {
		out.Events = append(out.Events, Event{
			Title:       ev.Title.In(lang),
			Period:      ev.Period.In(lang),
			Description: resolve(ev.Description, lang),
			Src:         ev.Image,
			Placeholder: placeholder,
		})
	}
	return out
}

type Spot struct {
	Name     string
	Distance string
	Comment  Rich
}

func BuildSightseeing(doc *guide.Document, lang string) []Spot {
	if doc == nil || doc.Sightseeing == nil {
		return nil
	}
	out := make([]Spot, 0, len(doc.Sightseeing))
	for _, s := range doc.Sightseeing {
		out = append(out, Spot{
			Name:     s.Name.In(lang),
			Distance: s.Distance.In(lang),
			Comment:  resolve(s.Comment, lang),
		})
	}
	return out
}

type Emergency struct {
	Fire       []Rich
	Earthquake []Rich
	Illness    []Rich
}

func BuildEmergency(doc *guide.Document, lang string) *Emergency {
	if doc == nil || doc.Emergency == nil {
		return nil
	}
	e := doc.Emergency
	return &Emergency{
		Fire:       resolveAll(e.Fire, lang),
		Earthquake: resolveAll(e.Earthquake, lang),
		Illness:    resolveAll(e.Illness, lang),
	}
}

type Breakfast struct {
	Venue   string
	Hours   string
	Lead    Rich
	Menu    []Rich
	Premium *Premium
	// ShowPremium is only ever true when Premium is set.
	ShowPremium bool
}

type Premium struct {
	Title       string
	Price       string
	Description Rich
	Items       []Rich
}

func BuildBreakfast(doc *guide.Document, lang string, showPremium bool) *Breakfast {
	if doc == nil || doc.Breakfast == nil {
		return nil
	}
	b := doc.Breakfast
	out := &Breakfast{
		Venue: b.Venue.In(lang),
		Hours: b.Hours.In(lang),
		Lead:  resolve(b.Lead, lang),
		Menu:  resolveAll(b.Menu, lang),
	}
	if p := b.Premium; p != nil {
		out.Premium = &Premium{
			Title:       p.Title.In(lang),
			Price:       p.Price.In(lang),
			Description: resolve(p.Description, lang),
			Items:       resolveAll(p.Items, lang),
		}
		out.ShowPremium = showPremium
	}
	return out
}

type Amenities struct {
	Items []Rich
}

func BuildAmenities(doc *guide.Document, lang string) *Amenities {
	if doc == nil || doc.Amenities == nil {
		return nil
	}
	return &Amenities{Items: resolveAll(doc.Amenities.Items, lang)}
}

type Terms struct {
	Body template.HTML
}

func BuildTerms(doc *guide.Document, lang string) *Terms {
	if doc == nil || doc.Terms == nil || doc.Terms.Body.IsZero() {
		return nil
	}
	return &Terms{Body: Markdown(doc.Terms.Body.In(lang))}
}
