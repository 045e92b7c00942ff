// internal/github/webhook_test.go

package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	good := sign("s3cret", body)

	if err := VerifySignature("s3cret", body, good); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifySignature("wrong", body, good); err != ErrBadSignature {
		t.Fatalf("wrong secret: err = %v", err)
	}
	if err := VerifySignature("s3cret", []byte("tampered"), good); err != ErrBadSignature {
		t.Fatalf("tampered body: err = %v", err)
	}
	if err := VerifySignature("s3cret", body, ""); err != ErrBadSignature {
		t.Fatalf("missing header: err = %v", err)
	}
	if err := VerifySignature("s3cret", body, "sha1=deadbeef"); err != ErrBadSignature {
		t.Fatalf("wrong scheme: err = %v", err)
	}
}

// Flipping any single hex digit of a valid signature must fail
// verification.
func TestVerifySignature_SingleDigitMutation(t *testing.T) {
	body := []byte("payload")
	good := sign("k", body)

	for i := len("sha256="); i < len(good); i++ {
		mutated := []byte(good)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if string(mutated) == good {
			continue
		}
		if err := VerifySignature("k", body, string(mutated)); err != ErrBadSignature {
			t.Fatalf("mutation at %d accepted", i)
		}
	}
}

func TestParsePush(t *testing.T) {
	body := []byte(`{
		"ref": "refs/heads/main",
		"after": "abc123",
		"repository": {"full_name": "octo/site"},
		"head_commit": {"message": "fix typo"}
	}`)
	p, err := ParsePush(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Branch() != "main" || p.After != "abc123" {
		t.Fatalf("branch %q after %q", p.Branch(), p.After)
	}
	if p.Repository.FullName != "octo/site" || p.CommitMessage() != "fix typo" {
		t.Fatalf("repo %q message %q", p.Repository.FullName, p.CommitMessage())
	}
}

func TestParsePush_NoHeadCommit(t *testing.T) {
	p, err := ParsePush([]byte(`{"ref":"refs/heads/gone","after":"0000"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.CommitMessage() != "" {
		t.Fatalf("message = %q, want empty", p.CommitMessage())
	}
}
