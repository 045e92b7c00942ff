// internal/storage/store.go
//
// Object-store contract and deployment key scheme.
//
// Context
// -------
// Every uploaded file lives in an S3-compatible bucket under an immutable
// per-deployment prefix.  The key scheme is load-bearing: the static
// resolver, the upload path, and the GitHub ingest pipeline must all
// produce byte-identical keys, so they go through the builders below
// rather than formatting strings ad hoc.
//
// Key scheme
// ----------
//	sites/{siteId}/deployments/{deploymentId}/{normalizedRelativePath}
//
// No leading slash, POSIX separators.
package storage

import (
	"context"
	"errors"
	"io"
	"strconv"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("storage: object not found")

// Object is a stored file read back for serving.  ContentType is the
// stored metadata value and may be empty when the uploader supplied none;
// callers fall back to ContentTypeFor.
type Object struct {
	Body        []byte
	ContentType string
	Size        int64
}

// ObjectStore is the minimal contract the platform needs from a blob
// backend.  Implemented by S3 (production) and Memory (tests).
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// DeploymentPrefix returns the storage prefix owning every file of one
// deployment, trailing slash included.
func DeploymentPrefix(siteID uint64, deploymentID string) string {
	return "sites/" + strconv.FormatUint(siteID, 10) + "/deployments/" + deploymentID + "/"
}

// ObjectKey joins a deployment prefix with a normalized relative path.
// relPath must already be normalized (no leading slash).
func ObjectKey(siteID uint64, deploymentID, relPath string) string {
	return DeploymentPrefix(siteID, deploymentID) + relPath
}
