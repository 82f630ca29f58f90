package guide

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Document is the decoded configuration document. Every section is optional; a nil
// section means the document did not carry it (or carried it malformed).
type Document struct {
	WiFi        *WiFi
	Facilities  *Facilities
	Bicycle     *Bicycle
	Drinks      *Drinks
	Bath        *Bath
	Seasonal    []SeasonalEvent
	Sightseeing []Spot
	Emergency   *Emergency
	Breakfast   *Breakfast
	Amenities   *Amenities
	Terms       *Terms
}

type WiFi struct {
	NetworkName string `json:"networkName"`
	Password    string `json:"password"`
}

type Facilities struct {
	IceMachine  Text        `json:"iceMachine"`
	CoffeeMaker *CoffeeMaker `json:"coffeeMaker"`
}

// CoffeeMaker.Steps may be dropped by later documents; renderers treat nil as "no steps".
type CoffeeMaker struct {
	Location Text   `json:"location"`
	Steps    []Text `json:"steps"`
}

type Bicycle struct {
	Location Text `json:"location"`
	Hours    Text `json:"hours"`
	Price    Text `json:"price"`
}

type Drinks struct {
	Lead      Text           `json:"lead"`
	LastOrder Text           `json:"lastOrder"`
	Sections  []DrinkSection `json:"sections"`

	// Description is the legacy name of Lead.
	Description Text `json:"description"`
}

// Intro returns the lead text, preferring the current field name over the legacy one.
func (d *Drinks) Intro() Text {
	if !d.Lead.IsZero() {
		return d.Lead
	}
	return d.Description
}

type DrinkSection struct {
	Title       Text   `json:"title"`
	Subtitle    Text   `json:"subtitle"`
	Description Text   `json:"description"`
	Items       []Text `json:"items"`
}

type Bath struct {
	Name        Text         `json:"name"`
	Hours       BathHours    `json:"hours"`
	Notes       []Text       `json:"notes"`
	PrivateBath *PrivateBath `json:"privateBath"`
}

type BathHours struct {
	Evening Text `json:"evening"`
	Morning Text `json:"morning"`
}

type PrivateBath struct {
	Available bool `json:"available"`
	Info      Text `json:"info"`
}

type SeasonalEvent struct {
	Title       Text   `json:"title"`
	Period      Text   `json:"period"`
	Description Text   `json:"description"`
	Image       string `json:"image"`
}

type Spot struct {
	Name     Text `json:"name"`
	Distance Text `json:"distance"`
	Comment  Text `json:"comment"`
}

type Emergency struct {
	Fire       []Text `json:"fire"`
	Earthquake []Text `json:"earthquake"`
	Illness    []Text `json:"illness"`
}

type Breakfast struct {
	Venue   Text              `json:"venue"`
	Hours   Text              `json:"hours"`
	Lead    Text              `json:"lead"`
	Menu    []Text            `json:"menu"`
	Premium *PremiumBreakfast `json:"premium"`
}

type PremiumBreakfast struct {
	Title       Text   `json:"title"`
	Price       Text   `json:"price"`
	Description Text   `json:"description"`
	Items       []Text `json:"items"`
}

type Amenities struct {
	Items []Text `json:"items"`
}

// Terms.Body is markdown.
type Terms struct {
	Body Text `json:"body"`
}

// SectionIssue records a section that was present but could not be decoded.
type SectionIssue struct {
	Section string
	Err     error
}

// Snapshot is one successfully loaded configuration document. It is immutable once
// built; replacing content means building a new Snapshot.
type Snapshot struct {
	Doc       *Document
	Issues    []SectionIssue
	FetchedAt time.Time
	Source    string

	tree any
}

// ErrNotObject indicates the payload parsed as JSON but is not a document object.
var ErrNotObject = errors.New("guide: document is not a JSON object")

// Parse decodes a configuration payload. Only a payload that is not a JSON object is
// an error; malformed sections are reported in Snapshot.Issues and left nil.
func Parse(data []byte) (*Snapshot, error) {
	tree, err := decodeTree(data)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.(map[string]any); !ok {
		return nil, ErrNotObject
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}

	doc := &Document{}
	snap := &Snapshot{Doc: doc, tree: tree}
	for _, s := range sectionDecoders(doc) {
		msg, ok := raw[s.name]
		if !ok || isNull(msg) {
			continue
		}
		if err := s.decode(msg); err != nil {
			snap.Issues = append(snap.Issues, SectionIssue{Section: s.name, Err: err})
			s.clear()
		}
	}
	return snap, nil
}

// Equal reports deep structural equality of the two documents as received,
// independent of key order. Any field change, cosmetic or not, makes them unequal.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return reflect.DeepEqual(s.tree, other.tree)
}

type sectionDecoder struct {
	name   string
	decode func(json.RawMessage) error
	clear  func()
}

func sectionDecoders(doc *Document) []sectionDecoder {
	return []sectionDecoder{
		section("wifi", &doc.WiFi),
		section("facilities", &doc.Facilities),
		section("bicycle", &doc.Bicycle),
		section("drinks", &doc.Drinks),
		section("bath", &doc.Bath),
		section("seasonal", &doc.Seasonal),
		section("sightseeing", &doc.Sightseeing),
		section("emergency", &doc.Emergency),
		section("breakfast", &doc.Breakfast),
		section("amenities", &doc.Amenities),
		section("terms", &doc.Terms),
	}
}

func section[T any](name string, dst *T) sectionDecoder {
	return sectionDecoder{
		name: name,
		decode: func(msg json.RawMessage) error {
			var v T
			if err := json.Unmarshal(msg, &v); err != nil {
				return err
			}
			*dst = v
			return nil
		},
		clear: func() {
			var zero T
			*dst = zero
		},
	}
}

func decodeTree(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode document: trailing data after document")
	}
	return tree, nil
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}
