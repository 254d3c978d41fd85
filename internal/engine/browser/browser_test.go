package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/alucardeht/crawl-worker/internal/engine"
)

func findChrome(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no chrome binary available")
	return ""
}

func TestAllocatorOptions(t *testing.T) {
	base := len(allocatorOptions(Config{}))
	if got := len(allocatorOptions(Config{ChromePath: "/bin/chrome", UserAgent: "ua", Headful: true})); got != base+3 {
		t.Errorf("expected %d options, got %d", base+3, got)
	}
}

func TestBrowserFetch(t *testing.T) {
	chrome := findChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Rendered</title></head><body>
<div id="app"></div>
<script>document.getElementById("app").innerHTML = '<h1>Hello</h1><a href="/next">next</a>';</script>
</body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	e, err := New(ctx, Config{ChromePath: chrome})
	if err != nil {
		t.Skipf("browser unavailable: %v", err)
	}
	defer e.Close()

	res, err := e.Fetch(ctx, srv.URL, engine.RunConfig{Headless: true, WaitUntil: engine.WaitLoad, PageTimeout: 20 * time.Second})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.ErrorMessage)
	}
	if res.Title() != "Rendered" {
		t.Errorf("expected title Rendered, got %q", res.Title())
	}
	if !strings.Contains(res.HTML, "<h1>Hello</h1>") {
		t.Errorf("expected script output in html")
	}
	if len(res.Links.Internal) != 1 || res.Links.Internal[0].Href != srv.URL+"/next" {
		t.Errorf("unexpected internal links %+v", res.Links.Internal)
	}

	res, err = e.Fetch(ctx, srv.URL+"/missing", engine.RunConfig{PageTimeout: 20 * time.Second})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Success || res.ErrorMessage != "HTTP 404" {
		t.Errorf("expected HTTP 404 failure, got %+v", res)
	}
}

func TestBrowserClosed(t *testing.T) {
	chrome := findChrome(t)

	e, err := New(context.Background(), Config{ChromePath: chrome})
	if err != nil {
		t.Skipf("browser unavailable: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := e.Fetch(context.Background(), "http://example.com", engine.RunConfig{}); err != engine.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
