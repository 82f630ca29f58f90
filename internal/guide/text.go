package guide

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PrimaryLang is the language every catalogue string must provide.
const PrimaryLang = "ja"

// Text is a human-readable catalogue entry. The document may carry it either as a
// plain string (legacy, primary language only) or as a per-language record such as
// {"ja": "...", "en": "..."}.
type Text struct {
	values map[string]string
	plain  bool
}

// Plain builds a legacy single-language Text.
func Plain(s string) Text {
	return Text{values: map[string]string{PrimaryLang: s}, plain: true}
}

// Localized builds a Text from per-language values.
func Localized(values map[string]string) Text {
	copied := make(map[string]string, len(values))
	for lang, v := range values {
		copied[strings.ToLower(lang)] = v
	}
	return Text{values: copied}
}

// In returns the value for lang, falling back to the primary language when the
// requested language is missing or blank.
func (t Text) In(lang string) string {
	if v := t.values[lang]; strings.TrimSpace(v) != "" {
		return v
	}
	return t.values[PrimaryLang]
}

// IsZero reports whether no language carries a value.
func (t Text) IsZero() bool {
	for _, v := range t.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Text{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Plain(s)
		return nil
	case '{':
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("text record: %w", err)
		}
		*t = Localized(m)
		return nil
	default:
		return fmt.Errorf("text: expected string or language record, got %s", truncate(data, 32))
	}
}

func (t Text) MarshalJSON() ([]byte, error) {
	if t.plain {
		return json.Marshal(t.values[PrimaryLang])
	}
	if t.values == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.values)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
