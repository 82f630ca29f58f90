package public

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var static embed.FS

//go:embed templates/*.tmpl
var templates embed.FS

func StaticFS() (fs.FS, error) {
	return fs.Sub(static, "static")
}

// TemplatesFS holds the page templates compiled into the binary.
func TemplatesFS() (fs.FS, error) {
	return fs.Sub(templates, "templates")
}
