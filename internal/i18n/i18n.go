package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var embedded embed.FS

const (
	Primary   = "ja"
	Secondary = "en"
)

// Bundle is a (label id, language) lookup table for the static labels of the kiosk.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
}

// Default loads the embedded label table with ja as fallback and en as the
// secondary language.
func Default() (*Bundle, error) {
	return Load(embedded, "labels.yaml", Primary, []string{Primary, Secondary})
}

// MustDefault is Default for package-level wiring; the embedded table is static.
func MustDefault() *Bundle {
	b, err := Default()
	if err != nil {
		panic(err)
	}
	return b
}

// Load reads a YAML table shaped as label id -> language -> text.
func Load(fsys fs.FS, path string, fallback string, supported []string) (*Bundle, error) {
	if len(supported) == 0 {
		supported = []string{Primary, Secondary}
	}
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("load labels %s: %w", path, err)
	}
	var table map[string]map[string]string
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("unmarshal labels %s: %w", path, err)
	}

	b := &Bundle{
		dict:      map[string]map[string]string{},
		fallback:  fallback,
		supported: append([]string(nil), supported...),
	}
	for _, l := range supported {
		b.dict[l] = map[string]string{}
	}
	for key, byLang := range table {
		for l, text := range byLang {
			l = strings.ToLower(strings.TrimSpace(l))
			if m, ok := b.dict[l]; ok {
				m[key] = text
			}
		}
	}
	if len(b.dict[fallback]) == 0 {
		return nil, fmt.Errorf("fallback locale %s has no labels", fallback)
	}
	return b, nil
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

func (b *Bundle) isSupported(lang string) bool {
	for _, l := range b.supported {
		if l == lang {
			return true
		}
	}
	return false
}

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if lang != "" {
		if m, ok := b.dict[lang]; ok {
			if v, ok := m[key]; ok {
				return v
			}
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Tf is T followed by fmt.Sprintf with args.
func (b *Bundle) Tf(lang, key string, args ...any) string {
	return fmt.Sprintf(b.T(lang, key), args...)
}

// Toggle returns the partner of lang in the binary primary/secondary switch.
func (b *Bundle) Toggle(lang string) string {
	if b.Normalize(lang) == b.fallback {
		for _, l := range b.supported {
			if l != b.fallback {
				return l
			}
		}
		return b.fallback
	}
	return b.fallback
}

// Normalize maps a BCP-47 tag such as "en-US" to a supported base language.
// Unknown or malformed tags yield the fallback.
func (b *Bundle) Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return b.fallback
	}
	t, err := language.Parse(tag)
	if err != nil {
		return b.fallback
	}
	base, _ := t.Base()
	if l := base.String(); b.isSupported(l) {
		return l
	}
	return b.fallback
}
