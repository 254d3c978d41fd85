package parse

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alucardeht/crawl-worker/internal/extract"
	"github.com/alucardeht/crawl-worker/internal/tools"
)

func TestPythonToolRequiresCode(t *testing.T) {
	tool := NewPythonTool()

	for _, input := range []string{`{}`, `{"code":""}`, ``, `null`} {
		_, err := tool.Execute(context.Background(), json.RawMessage(input))
		if err == nil {
			t.Fatalf("expected error for %q", input)
		}
		if !strings.Contains(err.Error(), "required") {
			t.Errorf("expected 'required' in %q", err.Error())
		}
		if tools.KindOf(err) != tools.KindValidation {
			t.Errorf("expected validation kind, got %s", tools.KindOf(err))
		}
	}
}

func TestPythonToolExtracts(t *testing.T) {
	tool := NewPythonTool()
	input, _ := json.Marshal(PythonRequest{Code: "import os\n\ndef main():\n    os.getcwd()\n"})

	out, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	res, ok := out.(*extract.Result)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if len(res.Nodes) != 1 || len(res.Imports) != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPythonToolSyntaxErrorNamesFile(t *testing.T) {
	tool := NewPythonTool()
	input, _ := json.Marshal(PythonRequest{Code: "def broken(:\n    pass\n", FilePath: "pkg/mod.py"})

	_, err := tool.Execute(context.Background(), input)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !strings.HasPrefix(err.Error(), "pkg/mod.py: syntax error at line 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if tools.KindOf(err) != tools.KindSyntax {
		t.Errorf("expected syntax kind, got %s", tools.KindOf(err))
	}
	if got := tool.Target(input); got != "pkg/mod.py" {
		t.Errorf("unexpected target %q", got)
	}
}
