package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewErrorKeepsNullID(t *testing.T) {
	data, err := json.Marshal(NewError(nil, "parse error"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"jsonrpc":"2.0","id":null,"error":{"code":-1,"message":"parse error"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestNewResultEchoesRawID(t *testing.T) {
	ids := []string{`7`, `"abc"`, `1.5e3`, `null`}
	for _, id := range ids {
		data, err := json.Marshal(NewResult(json.RawMessage(id), map[string]int{"n": 1}))
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if !strings.Contains(string(data), `"id":`+id+`,`) {
			t.Errorf("id %s not echoed verbatim: %s", id, data)
		}
	}
}

func TestFlushWriterOneLinePerResponse(t *testing.T) {
	var out bytes.Buffer
	w := NewFlushWriter(&out)

	if err := w.WriteJSON(NewResult(json.RawMessage(`1`), map[string]string{"html": "<p>a&b</p>"})); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if out.Len() == 0 {
		t.Fatal("response was not flushed")
	}
	if err := w.WriteJSON(NewError(json.RawMessage(`2`), "boom")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "<p>a&b</p>") {
		t.Errorf("html should not be escaped: %s", lines[0])
	}
}

func TestIDString(t *testing.T) {
	if got := IDString(nil); got != "null" {
		t.Errorf("expected null, got %s", got)
	}
	if got := IDString(json.RawMessage(`"x"`)); got != `"x"` {
		t.Errorf("expected \"x\", got %s", got)
	}
}

func TestNewResultNilIsNull(t *testing.T) {
	data, _ := json.Marshal(NewResult(json.RawMessage(`3`), nil))
	if want := `{"jsonrpc":"2.0","id":3,"result":null}`; string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
