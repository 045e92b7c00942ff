// internal/github/webhook.go
//
// Push-webhook parsing and signature verification.
//
// GitHub signs the raw request body with HMAC-SHA256 over the per-site
// webhook secret and sends the result as `X-Hub-Signature-256:
// sha256=<hex>`.  A mismatch is a security event: reject with no side
// effects, never retry.

package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// SignatureHeader carries the HMAC of the raw body.
const SignatureHeader = "X-Hub-Signature-256"

// ErrBadSignature is returned for a missing, malformed, or mismatched
// webhook signature.
var ErrBadSignature = errors.New("webhook signature mismatch")

// VerifySignature recomputes the body HMAC under secret and compares it
// against the header value in constant time.
func VerifySignature(secret string, body []byte, header string) error {
	want, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	got := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal, not ==: a timing oracle on the comparison would let an
	// attacker recover the expected digest byte by byte.
	if !hmac.Equal([]byte(got), []byte(want)) {
		return ErrBadSignature
	}
	return nil
}

//
// Push payload
//

// Push is the subset of the GitHub push event the pipeline consumes.
type Push struct {
	Ref        string `json:"ref"`   // "refs/heads/main"
	After      string `json:"after"` // head commit SHA
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	HeadCommit *struct {
		Message string `json:"message"`
	} `json:"head_commit"`
}

// ParsePush decodes a push payload.
func ParsePush(body []byte) (*Push, error) {
	var p Push
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Branch extracts the branch name from the ref.
func (p *Push) Branch() string {
	return strings.TrimPrefix(p.Ref, "refs/heads/")
}

// CommitMessage returns the head-commit message, empty when GitHub
// omitted the block (e.g., branch deletion pushes).
func (p *Push) CommitMessage() string {
	if p.HeadCommit == nil {
		return ""
	}
	return p.HeadCommit.Message
}
