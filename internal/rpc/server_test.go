package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/alucardeht/crawl-worker/internal/tools"
	"github.com/alucardeht/crawl-worker/internal/tools/parse"
)

type echoTool struct{}

func (echoTool) Name() string                     { return "echo" }
func (echoTool) Description() string              { return "echo params" }
func (echoTool) Schema() json.RawMessage          { return json.RawMessage(`{}`) }
func (echoTool) Target(in json.RawMessage) string { return "echo-target" }
func (echoTool) Execute(_ context.Context, in json.RawMessage) (interface{}, error) {
	var v interface{}
	json.Unmarshal(in, &v)
	return v, nil
}

type panicTool struct{}

func (panicTool) Name() string            { return "explode" }
func (panicTool) Description() string     { return "panics" }
func (panicTool) Schema() json.RawMessage { return json.RawMessage(`{}`) }
func (panicTool) Execute(context.Context, json.RawMessage) (interface{}, error) {
	panic("kaboom")
}

type nanTool struct{}

func (nanTool) Name() string            { return "nan" }
func (nanTool) Description() string     { return "returns NaN" }
func (nanTool) Schema() json.RawMessage { return json.RawMessage(`{}`) }
func (nanTool) Execute(context.Context, json.RawMessage) (interface{}, error) {
	return math.NaN(), nil
}

type recordingObserver struct {
	calls []Call
}

func (r *recordingObserver) Observe(_ context.Context, c Call) {
	r.calls = append(r.calls, c)
}

func newTestServer(t *testing.T, observers ...Observer) *Server {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{echoTool{}, panicTool{}, nanTool{}, parse.NewPythonTool()} {
		if err := registry.Register(tool); err != nil {
			t.Fatal(err)
		}
	}
	return NewServer(registry, observers...)
}

func run(t *testing.T, s *Server, input string) []map[string]json.RawMessage {
	t.Helper()
	var out bytes.Buffer
	if err := s.ProcessStream(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("ProcessStream failed: %v", err)
	}
	var responses []map[string]json.RawMessage
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid response line %q: %v", line, err)
		}
		responses = append(responses, m)
	}
	return responses
}

func errorMessage(t *testing.T, resp map[string]json.RawMessage) string {
	t.Helper()
	var e struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp["error"], &e); err != nil {
		t.Fatalf("response has no error: %v", resp)
	}
	if e.Code != -1 {
		t.Errorf("expected code -1, got %d", e.Code)
	}
	return e.Message
}

func TestUnknownMethodWritesNothing(t *testing.T) {
	s := newTestServer(t)
	var out bytes.Buffer
	err := s.ProcessStream(context.Background(), strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"unknown_op","params":{}}`+"\n"), &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestMalformedLineThenValidLine(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s, "{not json\n"+`{"jsonrpc":"2.0","id":7,"method":"echo","params":{"a":1}}`+"\n")

	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if string(responses[0]["id"]) != "null" {
		t.Errorf("expected null id, got %s", responses[0]["id"])
	}
	if msg := errorMessage(t, responses[0]); !strings.HasPrefix(msg, "parse error: ") {
		t.Errorf("unexpected message %q", msg)
	}
	if string(responses[1]["id"]) != "7" || string(responses[1]["result"]) != `{"a":1}` {
		t.Errorf("unexpected second response %v", responses[1])
	}
}

func TestNonObjectLinesAreParseErrors(t *testing.T) {
	s := newTestServer(t)
	input := strings.Join([]string{
		`null`,
		`42`,
		`"crawl"`,
		`[{"jsonrpc":"2.0","id":1,"method":"echo"}]`,
		`{"jsonrpc":"2.0","id":8,"method":"echo","params":true}`,
	}, "\n")

	responses := run(t, s, input)
	if len(responses) != 5 {
		t.Fatalf("expected 5 responses, got %d", len(responses))
	}
	for _, r := range responses[:4] {
		if string(r["id"]) != "null" {
			t.Errorf("expected null id, got %s", r["id"])
		}
		if msg := errorMessage(t, r); !strings.HasPrefix(msg, "parse error: ") {
			t.Errorf("unexpected message %q", msg)
		}
	}
	if string(responses[4]["id"]) != "8" || string(responses[4]["result"]) != "true" {
		t.Errorf("unexpected last response %v", responses[4])
	}
}

func TestResponsesKeepRequestOrder(t *testing.T) {
	s := newTestServer(t)
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":"a","method":"echo","params":1}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"nope"}`,
		`{"jsonrpc":"2.0","id":{"k":[1,2]},"method":"echo","params":2}`,
		`{"jsonrpc":"2.0","method":"echo","params":3}`,
	}, "\n")

	responses := run(t, s, input)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	wantIDs := []string{`"a"`, `{"k":[1,2]}`, `null`}
	for i, want := range wantIDs {
		if got := string(responses[i]["id"]); got != want {
			t.Errorf("response %d: expected id %s, got %s", i, want, got)
		}
		if got := string(responses[i]["result"]); got != string(rune('1'+i)) {
			t.Errorf("response %d: unexpected result %s", i, got)
		}
	}
}

func TestMissingCodeEchoesID(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s, `{"jsonrpc":"2.0","id":42,"method":"parse_python","params":{}}`+"\n")

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if string(responses[0]["id"]) != "42" {
		t.Errorf("expected id 42, got %s", responses[0]["id"])
	}
	if _, ok := responses[0]["result"]; ok {
		t.Error("error response must not carry a result")
	}
	if msg := errorMessage(t, responses[0]); !strings.Contains(msg, "required") {
		t.Errorf("expected 'required' in %q", msg)
	}
}

func TestSyntaxErrorMentionsLine(t *testing.T) {
	s := newTestServer(t)
	req, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "parse_python",
		"params": map[string]string{"code": "def f(:\n  pass\n"},
	})
	responses := run(t, s, string(req)+"\n")
	if msg := errorMessage(t, responses[0]); !strings.Contains(msg, "line 1") {
		t.Errorf("expected line number in %q", msg)
	}
}

func TestPanicBecomesErrorResponse(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s, `{"jsonrpc":"2.0","id":1,"method":"explode"}`+"\n"+`{"jsonrpc":"2.0","id":2,"method":"echo","params":true}`+"\n")

	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if msg := errorMessage(t, responses[0]); msg != "internal error: kaboom" {
		t.Errorf("unexpected message %q", msg)
	}
	if string(responses[1]["result"]) != "true" {
		t.Errorf("worker should keep serving after a panic")
	}
}

func TestUnencodableResultBecomesError(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s, `{"jsonrpc":"2.0","id":5,"method":"nan"}`+"\n")

	if len(responses) != 1 || string(responses[0]["id"]) != "5" {
		t.Fatalf("unexpected responses %v", responses)
	}
	if msg := errorMessage(t, responses[0]); !strings.HasPrefix(msg, "internal error: ") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestLastLineWithoutNewline(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s, `{"jsonrpc":"2.0","id":1,"method":"echo","params":"x"}`)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
}

func TestLongLinesAreAccepted(t *testing.T) {
	s := newTestServer(t)
	payload := strings.Repeat("x", 1<<20)
	responses := run(t, s, `{"jsonrpc":"2.0","id":1,"method":"echo","params":"`+payload+`"}`+"\n")
	if len(responses) != 1 || len(responses[0]["result"]) != len(payload)+2 {
		t.Fatalf("long line was not echoed")
	}
}

func TestObserverSeesAnsweredRequests(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestServer(t, obs)
	run(t, s, strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"echo","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"unknown"}`,
		`{"jsonrpc":"2.0","id":3,"method":"parse_python","params":{}}`,
	}, "\n"))

	if len(obs.calls) != 2 {
		t.Fatalf("expected 2 observed calls, got %d", len(obs.calls))
	}
	if obs.calls[0].Method != "echo" || obs.calls[0].Target != "echo-target" || obs.calls[0].Err != nil {
		t.Errorf("unexpected first call %+v", obs.calls[0])
	}
	if tools.KindOf(obs.calls[1].Err) != tools.KindValidation {
		t.Errorf("expected validation failure, got %v", obs.calls[1].Err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestWriteFailureStopsStream(t *testing.T) {
	s := newTestServer(t)
	err := s.ProcessStream(context.Background(), strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"echo"}`+"\n"), failingWriter{})
	if err == nil || !strings.Contains(err.Error(), "pipe closed") {
		t.Errorf("expected write error, got %v", err)
	}
}
