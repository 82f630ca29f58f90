package view

import (
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 300 400">` +
	`<rect fill="#E8E6E1" width="300" height="400"/>` +
	`<text x="50%%" y="50%%" text-anchor="middle" dy=".3em" fill="#999" font-size="20">%s</text>` +
	`</svg>`

// Placeholder returns an inline SVG image carrying label, usable wherever an image
// is missing or fails to load. It needs no network round trip.
func Placeholder(label string) template.URL {
	svg := fmt.Sprintf(placeholderSVG, html.EscapeString(label))
	return template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg)))
}
