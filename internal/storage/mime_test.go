// internal/storage/mime_test.go

package storage

import "testing"

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"index.html", "text/html; charset=utf-8"},
		{"assets/app.min.js", "text/javascript; charset=utf-8"}, // last segment wins
		{"LOGO.PNG", "image/png"},                               // case-insensitive
		{"archive.tar.gz", "application/gzip"},
		{"Makefile", "application/octet-stream"}, // no extension
		{"data.unknownext", "application/octet-stream"},
	}
	for _, c := range cases {
		if got := ContentTypeFor(c.path); got != c.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestObjectKeyScheme(t *testing.T) {
	got := ObjectKey(12, "d-abc", "assets/site.css")
	want := "sites/12/deployments/d-abc/assets/site.css"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
	if DeploymentPrefix(12, "d-abc") != "sites/12/deployments/d-abc/" {
		t.Fatalf("prefix = %q", DeploymentPrefix(12, "d-abc"))
	}
}
