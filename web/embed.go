// Package web holds the dashboard's HTML templates and static assets,
// embedded into the binary for release builds.
package web

import "embed"

// EmbeddedFS contains the templates/ and static/ directories.
//
//go:embed templates static
var EmbeddedFS embed.FS
