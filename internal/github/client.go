// internal/github/client.go
//
// Minimal GitHub REST client for the ingest pipeline: recursive tree
// listing and blob fetch.  Transport is go-retryablehttp, so transient
// 5xx responses and connection resets retry with backoff before they
// surface as an upstream error.

package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultAPIBaseURL is the public GitHub REST endpoint.
const DefaultAPIBaseURL = "https://api.github.com"

// Client calls the GitHub REST API.  Zero value is unusable; construct
// with NewClient.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
}

// NewClient builds a Client.  baseURL is overridable for tests and
// GitHub Enterprise; empty selects the public API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	cli := retryablehttp.NewClient()
	cli.RetryMax = 3
	cli.Logger = nil // zap handles logging at the call sites
	return &Client{
		http:    cli,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// TreeEntry is one node of a repository tree.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// Tree fetches the recursive tree at the given commit or tree SHA.
func (c *Client) Tree(ctx context.Context, token, repo, sha string) ([]TreeEntry, error) {
	url := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=1", c.baseURL, repo, sha)

	var out struct {
		Tree      []TreeEntry `json:"tree"`
		Truncated bool        `json:"truncated"`
	}
	if err := c.getJSON(ctx, token, url, &out); err != nil {
		return nil, err
	}
	if out.Truncated {
		return nil, fmt.Errorf("github: tree for %s@%s is truncated; repository too large", repo, sha)
	}
	return out.Tree, nil
}

// Blob fetches and decodes one blob's content.
func (c *Client) Blob(ctx context.Context, token, repo, sha string) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/git/blobs/%s", c.baseURL, repo, sha)

	var out struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.getJSON(ctx, token, url, &out); err != nil {
		return nil, err
	}

	switch out.Encoding {
	case "base64":
		// GitHub line-wraps the payload; the decoder rejects raw newlines.
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	case "utf-8":
		return []byte(out.Content), nil
	default:
		return nil, fmt.Errorf("github: unsupported blob encoding %q", out.Encoding)
	}
}

func (c *Client) getJSON(ctx context.Context, token, url string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github: %s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
