package format

import (
	"bytes"
	"strings"
	"testing"
)

func strptr(s string) *string { return &s }

func TestTableNoResults(t *testing.T) {
	got := Table(nil, "widgets")
	want := strings.Join([]string{
		`## Search Results for "widgets"`,
		``,
		`No results found for "widgets"`,
		``,
		`Try:`,
		`- Broadening your search terms`,
		`- Checking if the relevant stores are indexed`,
		`- Using /bluera-knowledge:stores to see available stores`,
	}, "\n")
	if got != want {
		t.Errorf("expected\n%s\ngot\n%s", want, got)
	}
}

func TestTableRows(t *testing.T) {
	results := []Result{
		{Score: 0.9876, Summary: Summary{
			StoreName: strptr("docs"),
			Location:  "/repo/src/app/main.py",
			RepoRoot:  "/repo",
			Purpose:   "Entry point\nfor the app  ",
		}},
		{Score: 12, Summary: Summary{
			Location: "/elsewhere/a/very/long/path/that/keeps/going/and/going/file.py",
			RepoRoot: "/repo",
		}},
	}
	got := Table(results, "main")
	lines := strings.Split(got, "\n")

	if len(lines) != 8 {
		t.Fatalf("expected 8 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != `## Search Results for "main"` || lines[1] != "" {
		t.Errorf("unexpected header %q", lines[:2])
	}

	wantHeader := "|  Score | Store        | File                                          | Purpose                                          |"
	if lines[2] != wantHeader {
		t.Errorf("header\nwant %q\ngot  %q", wantHeader, lines[2])
	}
	wantSep := "|-------:|--------------|" + strings.Repeat("-", 47) + "|" + strings.Repeat("-", 50) + "|"
	if lines[3] != wantSep {
		t.Errorf("separator\nwant %q\ngot  %q", wantSep, lines[3])
	}

	wantRow := "|   0.99 | docs         | " + padRight("src/app/main.py", 45) + " | " + padRight("Entry point for the app", 48) + " |"
	if lines[4] != wantRow {
		t.Errorf("row\nwant %q\ngot  %q", wantRow, lines[4])
	}

	if !strings.HasPrefix(lines[5], "|  12.00 | unknown      | /elsewhere/a/very/long/path/that/keeps/goi... |") {
		t.Errorf("unexpected second row %q", lines[5])
	}
	for i := 2; i <= 5; i++ {
		if n := len([]rune(lines[i])); n != len([]rune(wantHeader)) {
			t.Errorf("line %d has width %d", i, n)
		}
	}

	if lines[6] != "" || lines[7] != "**Found**: 2 results" {
		t.Errorf("unexpected footer %q", lines[6:])
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	if got := Truncate("résumé-store-x", 12); got != "résumé-st..." {
		t.Errorf("unexpected %q", got)
	}
	if got := Truncate("short", 12); got != "short" {
		t.Errorf("unexpected %q", got)
	}
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		location, root, want string
	}{
		{"/repo/a.py", "/repo", "a.py"},
		{"/repo//a.py", "/repo", "a.py"},
		{"/other/a.py", "/repo", "/other/a.py"},
		{"a.py", "", "a.py"},
	}
	for _, tt := range tests {
		if got := RelativePath(tt.location, tt.root); got != tt.want {
			t.Errorf("RelativePath(%q, %q) = %q, want %q", tt.location, tt.root, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	tests := map[float64]string{0: "  0.00", 1: "  1.00", 0.456: "  0.46", 123.456: "123.46", 1234.5: "1234.50"}
	for in, want := range tests {
		if got := Score(in); got != want {
			t.Errorf("Score(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRunIgnoresOtherTools(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(strings.NewReader(`{"tool_name":"Read","tool_input":{},"tool_result":{}}`), &stdout, &stderr)
	if code != 0 || stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("expected silent exit 0, got %d %q %q", code, stdout.String(), stderr.String())
	}
}

func TestRunFormatsSearch(t *testing.T) {
	input := `{"tool_name":"mcp__bluera-knowledge__search","tool_input":{"query":"auth"},
		"tool_result":{"results":[{"score":0.5,"summary":{"storeName":"code","location":"/r/x.go","repoRoot":"/r","purpose":"auth"}}]}}`
	var stdout, stderr bytes.Buffer
	if code := Run(strings.NewReader(input), &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.HasSuffix(stdout.String(), "\n\n**Found**: 1 results\n") {
		t.Errorf("unexpected output %q", stdout.String())
	}
}

func TestRunParseError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(strings.NewReader(`{broken`), &stdout, &stderr)
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.HasPrefix(stderr.String(), "Error parsing hook input: ") {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestRunFormattingError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(strings.NewReader(`{"tool_name":"mcp__bluera-knowledge__search","tool_result":{"results":"nope"}}`), &stdout, &stderr)
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.HasPrefix(stderr.String(), "Error formatting results: ") {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestRunRejectsNullFields(t *testing.T) {
	for _, summary := range []string{
		`{"storeName":null,"location":"/r/x.go","repoRoot":"/r","purpose":"auth"}`,
		`{"storeName":"code","location":null,"repoRoot":"/r","purpose":"auth"}`,
		`{"storeName":"code","location":"/r/x.go","repoRoot":"/r","purpose":null}`,
		`null`,
	} {
		input := `{"tool_name":"mcp__bluera-knowledge__search","tool_input":{"query":"auth"},
			"tool_result":{"results":[{"score":0.5,"summary":` + summary + `}]}}`
		var stdout, stderr bytes.Buffer
		if code := Run(strings.NewReader(input), &stdout, &stderr); code != 1 {
			t.Errorf("%s: expected exit 1, got %d", summary, code)
		}
		if stdout.Len() != 0 || !strings.HasPrefix(stderr.String(), "Error formatting results: ") {
			t.Errorf("%s: unexpected output %q %q", summary, stdout.String(), stderr.String())
		}
	}
}

func TestRunMissingStoreNameAndNullRepoRoot(t *testing.T) {
	input := `{"tool_name":"mcp__bluera-knowledge__search","tool_input":{"query":"auth"},
		"tool_result":{"results":[{"score":0.5,"summary":{"location":"/r/x.go","repoRoot":null,"purpose":"auth"}}]}}`
	var stdout, stderr bytes.Buffer
	if code := Run(strings.NewReader(input), &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "| unknown      | /r/x.go ") {
		t.Errorf("unexpected output %q", stdout.String())
	}
}
