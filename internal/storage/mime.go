// internal/storage/mime.go
//
// Static extension → MIME table.
//
// The stdlib mime.TypeByExtension consults platform files such as
// /etc/mime.types, which makes Content-Type output vary across hosts.  A
// fixed table keeps responses deterministic.  Matching is case-insensitive
// and uses the last dot segment, so "app.min.js" resolves via ".js".
package storage

import (
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

var mimeByExt = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".mjs":  "text/javascript; charset=utf-8",
	".json": "application/json",
	".xml":  "application/xml",
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".avif": "image/avif",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".wasm": "application/wasm",
	".map":  "application/json",
	".woff": "font/woff",
	".woff2": "font/woff2",
	".ttf":  "font/ttf",
	".otf":  "font/otf",
	".eot":  "application/vnd.ms-fontobject",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".zip":  "application/zip",
	".gz":   "application/gzip",
}

// ContentTypeFor maps a file path to a MIME type.  Unknown or missing
// extensions yield application/octet-stream.
func ContentTypeFor(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ct, ok := mimeByExt[ext]; ok {
		return ct
	}
	return defaultContentType
}
