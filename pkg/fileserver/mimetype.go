package fileserver

import (
	"mime"
	"path/filepath"
	"strings"
)

// mimeTypeFor infers the content type of a file from its extension.
// The platform mime table is consulted first; extensions it does not
// know get explicit overrides, and everything else defaults to text/html.
// Parameters such as charset are stripped so callers can compare types.
func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	// Pinned regardless of the platform table: cache-bust eligibility
	// compares against this exact type.
	if ext == ".js" || ext == ".mjs" {
		return "text/javascript"
	}

	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}

	switch ext {
	case ".wasm":
		return "application/wasm"
	case ".woff2":
		return "font/woff2"
	case ".map":
		return "application/json"
	case ".zip":
		return "application/zip"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	}
	return "text/html"
}
