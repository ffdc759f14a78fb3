// Package static embeds the browser kiosk served next to the API.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed all:dist/*
var distFS embed.FS

// GetFileSystem returns an http.FileSystem for the embedded dist directory.
func GetFileSystem() http.FileSystem {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}

// HasIndex reports whether the embedded build contains an index page.
func HasIndex() bool {
	_, err := fs.Stat(distFS, "dist/index.html")
	return err == nil
}
