package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alucardeht/crawl-worker/internal/config"
	"github.com/alucardeht/crawl-worker/internal/journal"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.Kind = config.EngineDirect
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	cfg.Watch.Enabled = false
	return cfg
}

func serve(t *testing.T, w *Worker, lines ...string) []map[string]json.RawMessage {
	t.Helper()
	var out bytes.Buffer
	if err := w.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	var responses []map[string]json.RawMessage
	dec := json.NewDecoder(&out)
	for dec.More() {
		var m map[string]json.RawMessage
		if err := dec.Decode(&m); err != nil {
			t.Fatal(err)
		}
		responses = append(responses, m)
	}
	return responses
}

func TestNewRegistryMethods(t *testing.T) {
	w, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	got := strings.Join(w.Server().Registry().Names(), ",")
	if got != "crawl,fetch_headless,parse_python" {
		t.Errorf("unexpected methods %s", got)
	}
}

func TestWorkerServesAndJournals(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.DenyPatterns = []string{"blocked.example"}
	w, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	responses := serve(t, w,
		`{"jsonrpc":"2.0","id":1,"method":"parse_python","params":{"code":"def main():\n    run()\n"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"crawl","params":{"url":"https://blocked.example/page"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"not_a_method"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if !strings.Contains(string(responses[0]["result"]), `"calls":["run"]`) {
		t.Errorf("unexpected parse result %s", responses[0]["result"])
	}
	if !strings.Contains(string(responses[1]["error"]), "failed to crawl https://blocked.example/page: url not allowed") {
		t.Errorf("unexpected crawl error %s", responses[1]["error"])
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(entries))
	}
	if entries[0].Method != "crawl" || entries[0].ErrorKind != "engine" || entries[0].Target != "https://blocked.example/page" {
		t.Errorf("unexpected crawl entry %+v", entries[0])
	}
}

func TestWorkerReloadSwapsPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.yaml")
	write := func(content string) {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("engine:\n  kind: direct\njournal:\n  enabled: false\nwatch:\n  enabled: true\n  debounce: 20ms\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.watcher.Start(ctx); err != nil {
		t.Fatalf("watcher start failed: %v", err)
	}

	if err := w.Adapter().Policy().Check("https://wiki.corp/"); err != nil {
		t.Fatalf("unexpected denial before reload: %v", err)
	}
	write("engine:\n  kind: direct\n  deny_patterns: [\"*.corp\"]\njournal:\n  enabled: false\nwatch:\n  enabled: true\n  debounce: 20ms\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := w.Adapter().Policy().Check("https://wiki.corp/"); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("policy was not reloaded")
}

func TestApplyRejectsBadPattern(t *testing.T) {
	w, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	bad := testConfig(t)
	bad.Engine.DenyPatterns = []string{"[unclosed"}
	if err := w.apply(bad); err == nil {
		t.Error("expected invalid pattern to be rejected")
	}
}

func TestBrowserConfigFromEngineConfig(t *testing.T) {
	cfg := config.Default().Engine
	cfg.ChromePath = "/opt/chrome"
	cfg.Headful = true

	bc := browserConfig(cfg)
	if !bc.Headful || bc.ChromePath != "/opt/chrome" || bc.UserAgent != cfg.UserAgent {
		t.Errorf("unexpected browser config %+v", bc)
	}
}
