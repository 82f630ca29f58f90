package view

import (
	"strings"

	"finitefield.org/inn-kiosk/internal/guide"
)

// NoteMarker introduces a supplementary note inside a catalogue string.
const NoteMarker = "※"

// Rich is a text field split at the first note marker. Templates render Main and
// Note as two sibling runs separated by a line break; Note is empty when the text
// has no marker.
type Rich struct {
	Main string
	Note string
}

// HasNote reports whether the text carried a note marker.
func (r Rich) HasNote() bool { return r.Note != "" }

// IsZero reports whether there is nothing to render.
func (r Rich) IsZero() bool { return r.Main == "" && r.Note == "" }

// Split splits s at the first NoteMarker. The note keeps the marker.
func Split(s string) Rich {
	i := strings.Index(s, NoteMarker)
	if i < 0 {
		return Rich{Main: s}
	}
	return Rich{
		Main: strings.TrimSpace(s[:i]),
		Note: strings.TrimSpace(s[i:]),
	}
}

// resolve normalises a polymorphic entry for lang and splits it.
func resolve(t guide.Text, lang string) Rich {
	return Split(t.In(lang))
}

func resolveAll(items []guide.Text, lang string) []Rich {
	if len(items) == 0 {
		return nil
	}
	out := make([]Rich, 0, len(items))
	for _, it := range items {
		out = append(out, resolve(it, lang))
	}
	return out
}
