// internal/static/resolver.go
//
// URL path → stored object resolution.
//
// Context
// -------
// Inside a deployment, a request path maps to at most three candidate
// object keys, tried in order:
//
//	1. the normalized path itself,
//	2. `{path}.html`            – clean URLs ("/about" → about.html),
//	3. `{path}/index.html`      – directory without trailing slash.
//
// Normalization strips one leading slash and appends index.html to empty
// or directory-style paths, so "/" and "" serve index.html and
// "/docs/" serves docs/index.html.  When all three candidates miss, the
// caller falls back to the site's custom 404.html, then to a generic
// JSON 404.

package static

import (
	"context"
	"errors"
	"strings"

	"github.com/yanizio/strata/internal/storage"
)

// File is a resolved object ready for the HTTP layer.
type File struct {
	Body        []byte
	ContentType string
	Key         string // object key that answered, for logging
}

// Resolver reads deployment files from the object store.
type Resolver struct {
	store storage.ObjectStore
}

// NewResolver wires the resolver to its object store.
func NewResolver(store storage.ObjectStore) *Resolver {
	return &Resolver{store: store}
}

// Normalize converts a request path into a storage-relative path.
func Normalize(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	return p
}

// Serve resolves urlPath inside the given deployment.  It returns
// storage.ErrNotFound when every candidate misses.
func (r *Resolver) Serve(ctx context.Context, siteID uint64, deploymentID, urlPath string) (*File, error) {
	rel := Normalize(urlPath)

	candidates := []string{rel}
	if !strings.HasSuffix(rel, "/index.html") {
		candidates = append(candidates, rel+".html", rel+"/index.html")
	}

	for _, c := range candidates {
		key := storage.ObjectKey(siteID, deploymentID, c)
		obj, err := r.store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return toFile(key, c, obj), nil
	}
	return nil, storage.ErrNotFound
}

// NotFoundPage fetches the deployment's custom 404.html, if any.
func (r *Resolver) NotFoundPage(ctx context.Context, siteID uint64, deploymentID string) (*File, error) {
	key := storage.ObjectKey(siteID, deploymentID, "404.html")
	obj, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return toFile(key, "404.html", obj), nil
}

// toFile fills the Content-Type from stored metadata, falling back to
// the extension table.
func toFile(key, rel string, obj *storage.Object) *File {
	ct := obj.ContentType
	if ct == "" {
		ct = storage.ContentTypeFor(rel)
	}
	return &File{Body: obj.Body, ContentType: ct, Key: key}
}
