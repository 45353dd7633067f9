// Package web holds the page templates and stylesheet compiled into the
// kharcha binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS

// Static returns the assets under static/ with that prefix removed.
func Static() fs.FS {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
