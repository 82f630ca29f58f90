package nav

// Item represents one page of the kiosk.
type Item struct {
	ID       string
	LabelKey string // i18n key, e.g. "nav.wifi"
	Icon     string
	// Tile reports whether the page is offered on the home menu.
	Tile bool
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	ID       string
	LabelKey string
	Icon     string
	Active   bool
}

const (
	Home        = "home"
	WiFi        = "wifi"
	Facilities  = "facilities"
	Bicycle     = "bicycle"
	Drinks      = "drinks"
	Bath        = "bath"
	Seasonal    = "seasonal"
	Sightseeing = "sightseeing"
	Emergency   = "emergency"
	Breakfast   = "breakfast"
)

// Pages is the fixed page set, in menu order.
var Pages = []Item{
	{ID: Home, LabelKey: "nav.home", Icon: "🏠"},
	{ID: WiFi, LabelKey: "nav.wifi", Icon: "📶", Tile: true},
	{ID: Facilities, LabelKey: "nav.facilities", Icon: "🧊", Tile: true},
	{ID: Bicycle, LabelKey: "nav.bicycle", Icon: "🚲", Tile: true},
	{ID: Drinks, LabelKey: "nav.drinks", Icon: "🍶", Tile: true},
	{ID: Bath, LabelKey: "nav.bath", Icon: "♨", Tile: true},
	{ID: Breakfast, LabelKey: "nav.breakfast", Icon: "🍚", Tile: true},
	{ID: Seasonal, LabelKey: "nav.seasonal", Icon: "🌸", Tile: true},
	{ID: Sightseeing, LabelKey: "nav.sightseeing", Icon: "🗾", Tile: true},
	{ID: Emergency, LabelKey: "nav.emergency", Icon: "🚨"},
}

// Modal identifiers.
const (
	ModalAmenities = "amenities"
	ModalTerms     = "terms"
	ModalMore      = "more"
)

// Modals lists the overlay dialogs in display order.
var Modals = []Item{
	{ID: ModalAmenities, LabelKey: "nav.amenities"},
	{ID: ModalTerms, LabelKey: "nav.terms"},
	{ID: ModalMore, LabelKey: "nav.more"},
}

// Valid reports whether id names a page.
func Valid(id string) bool {
	return find(Pages, id)
}

// ValidModal reports whether id names a modal.
func ValidModal(id string) bool {
	return find(Modals, id)
}

// Build renders the page list with exactly one active item. An unknown current id
// falls back to Home.
func Build(current string) []RenderedItem {
	if !Valid(current) {
		current = Home
	}
	items := make([]RenderedItem, 0, len(Pages))
	for _, it := range Pages {
		items = append(items, RenderedItem{
			ID:       it.ID,
			LabelKey: it.LabelKey,
			Icon:     it.Icon,
			Active:   it.ID == current,
		})
	}
	return items
}

// Tiles returns the home menu entries.
func Tiles() []Item {
	out := make([]Item, 0, len(Pages))
	for _, it := range Pages {
		if it.Tile {
			out = append(out, it)
		}
	}
	return out
}

func find(items []Item, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}
