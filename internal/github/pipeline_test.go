// internal/github/pipeline_test.go
//
// Pipeline tests against a stub GitHub API and the in-memory object
// store.  The fake deployment store records lifecycle calls so the
// all-or-nothing contract is observable without a database.

package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/deployment"
	"github.com/yanizio/strata/internal/site"
	"github.com/yanizio/strata/internal/storage"
)

type fakeDeployments struct {
	created   *deployment.Deployment
	finalized bool
	failed    bool
	failFinal bool
}

func (f *fakeDeployments) Create(_ context.Context, siteID uint64, status deployment.Status, hash, msg *string) (*deployment.Deployment, error) {
	f.created = &deployment.Deployment{
		ID:            "dep-1",
		SiteID:        siteID,
		Status:        status,
		CommitHash:    hash,
		CommitMessage: msg,
		CreatedAt:     time.Now().UTC(),
	}
	return f.created, nil
}

func (f *fakeDeployments) FinalizeIngest(_ context.Context, d *deployment.Deployment, files int, size int64, commit string) error {
	if f.failFinal {
		return errors.New("finalize refused")
	}
	f.finalized = true
	d.Status = deployment.StatusLive
	d.FileCount = files
	d.TotalSize = size
	return nil
}

func (f *fakeDeployments) MarkFailed(context.Context, string) error {
	f.failed = true
	return nil
}

// stubAPI serves git/trees and git/blobs for a fixed file set.
func stubAPI(t *testing.T, repo, commit string, files map[string]string, failBlob string) *httptest.Server {
	t.Helper()

	shas := make(map[string]string) // sha → content
	var entries []map[string]any
	i := 0
	for path, content := range files {
		sha := fmt.Sprintf("blob-%d", i)
		i++
		shas[sha] = content
		entries = append(entries, map[string]any{
			"path": path, "type": "blob", "sha": sha, "size": len(content),
		})
		if path == failBlob {
			shas[sha] = "" // flagged below
			delete(shas, sha)
		}
	}
	entries = append(entries, map[string]any{"path": "dist", "type": "tree", "sha": "t-1"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/"+repo+"/git/trees/"+commit, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"tree": entries, "truncated": false})
	})
	mux.HandleFunc("GET /repos/"+repo+"/git/blobs/{sha}", func(w http.ResponseWriter, r *http.Request) {
		content, ok := shas[r.PathValue("sha")]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			"encoding": "base64",
		})
	})
	return httptest.NewServer(mux)
}

func testConfig(outputDir string) *site.GithubConfig {
	return &site.GithubConfig{
		SiteID:     42,
		Repo:       "octo/site",
		Branch:     "main",
		OutputDir:  outputDir,
		AutoDeploy: true,
	}
}

func testPush() *Push {
	p, _ := ParsePush([]byte(`{
		"ref": "refs/heads/main",
		"after": "c0ffee",
		"repository": {"full_name": "octo/site"},
		"head_commit": {"message": "release"}
	}`))
	return p
}

func TestPipeline_IngestsOutputDir(t *testing.T) {
	api := stubAPI(t, "octo/site", "c0ffee", map[string]string{
		"README.md":           "ignored",
		"dist/index.html":     "<html>v2</html>",
		"dist/assets/app.css": "body{}",
	}, "")
	defer api.Close()

	deps := &fakeDeployments{}
	store := storage.NewMemory()
	p := NewPipeline(deps, store, NewClient(api.URL), cache.Nop{})

	d, err := p.Run(context.Background(), testConfig("dist"), testPush())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !deps.finalized || deps.failed {
		t.Fatalf("finalized=%v failed=%v", deps.finalized, deps.failed)
	}
	if d.Status != deployment.StatusLive || d.FileCount != 2 {
		t.Fatalf("status %s files %d", d.Status, d.FileCount)
	}
	if *d.CommitHash != "c0ffee" || *d.CommitMessage != "release" {
		t.Fatalf("commit %v msg %v", d.CommitHash, d.CommitMessage)
	}

	// Output-dir prefix is stripped: dist/index.html serves at the root.
	obj, err := store.Get(context.Background(), "sites/42/deployments/dep-1/index.html")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if string(obj.Body) != "<html>v2</html>" {
		t.Fatalf("index body = %q", obj.Body)
	}
	if _, err := store.Get(context.Background(), "sites/42/deployments/dep-1/assets/app.css"); err != nil {
		t.Fatalf("nested asset: %v", err)
	}
	if _, err := store.Get(context.Background(), "sites/42/deployments/dep-1/README.md"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("file outside output dir ingested")
	}
}

func TestPipeline_OutputDirFallsBackToWholeTree(t *testing.T) {
	api := stubAPI(t, "octo/site", "c0ffee", map[string]string{
		"index.html": "<html>prebuilt</html>",
	}, "")
	defer api.Close()

	deps := &fakeDeployments{}
	store := storage.NewMemory()
	p := NewPipeline(deps, store, NewClient(api.URL), cache.Nop{})

	if _, err := p.Run(context.Background(), testConfig("dist"), testPush()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := store.Get(context.Background(), "sites/42/deployments/dep-1/index.html"); err != nil {
		t.Fatalf("root file not ingested: %v", err)
	}
}

func TestPipeline_BlobFailureMarksFailed(t *testing.T) {
	api := stubAPI(t, "octo/site", "c0ffee", map[string]string{
		"dist/index.html": "<html></html>",
		"dist/app.js":     "boom",
	}, "dist/app.js")
	defer api.Close()

	deps := &fakeDeployments{}
	p := NewPipeline(deps, storage.NewMemory(), NewClient(api.URL), cache.Nop{})

	d, err := p.Run(context.Background(), testConfig("dist"), testPush())
	if err == nil {
		t.Fatal("expected error")
	}
	if !deps.failed || deps.finalized {
		t.Fatalf("failed=%v finalized=%v", deps.failed, deps.finalized)
	}
	if d == nil || d.ID != "dep-1" {
		t.Fatalf("deployment not returned for inspection: %v", d)
	}
}

func TestPipeline_FinalizeFailureMarksFailed(t *testing.T) {
	api := stubAPI(t, "octo/site", "c0ffee", map[string]string{
		"dist/index.html": "ok",
	}, "")
	defer api.Close()

	deps := &fakeDeployments{failFinal: true}
	p := NewPipeline(deps, storage.NewMemory(), NewClient(api.URL), cache.Nop{})

	if _, err := p.Run(context.Background(), testConfig("dist"), testPush()); err == nil {
		t.Fatal("expected error")
	}
	if !deps.failed {
		t.Fatal("deployment not marked failed")
	}
}

func TestPipeline_EmptyTreeFails(t *testing.T) {
	api := stubAPI(t, "octo/site", "c0ffee", map[string]string{}, "")
	defer api.Close()

	deps := &fakeDeployments{}
	p := NewPipeline(deps, storage.NewMemory(), NewClient(api.URL), cache.Nop{})

	if _, err := p.Run(context.Background(), testConfig(""), testPush()); err == nil {
		t.Fatal("expected error for empty tree")
	}
	if !deps.failed {
		t.Fatal("deployment not marked failed")
	}
}
