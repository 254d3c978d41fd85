package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// HookInput is the payload a PostToolUse hook receives on stdin.
type HookInput struct {
	ToolName   string          `json:"tool_name"`
	ToolInput  json.RawMessage `json:"tool_input"`
	ToolResult json.RawMessage `json:"tool_result"`
}

type searchInput struct {
	Query string `json:"query"`
}

type searchResult struct {
	Results []Result `json:"results"`
}

// ParseError means the hook input was not JSON at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Render reads hook input from r and returns the table to print. The
// boolean is false when the hook is for another tool and nothing should be
// printed.
func Render(r io.Reader) (string, bool, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return "", false, &ParseError{Err: err}
	}

	var in HookInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return "", false, fmt.Errorf("hook input: %w", err)
	}
	if in.ToolName != SearchTool {
		return "", false, nil
	}

	var query searchInput
	if err := unmarshalObject(in.ToolInput, &query); err != nil {
		return "", false, fmt.Errorf("tool_input: %w", err)
	}
	var result searchResult
	if err := unmarshalObject(in.ToolResult, &result); err != nil {
		return "", false, fmt.Errorf("tool_result: %w", err)
	}
	if err := checkNulls(in.ToolResult); err != nil {
		return "", false, fmt.Errorf("tool_result: %w", err)
	}

	return Table(result.Results, query.Query), true, nil
}

// unmarshalObject treats a missing or null value as an empty object.
func unmarshalObject(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// checkNulls rejects results holding an explicit null where a value is
// rendered. A missing key falls back to its default; a null does not. Only
// repoRoot may be null.
func checkNulls(data json.RawMessage) error {
	var raw struct {
		Results []map[string]json.RawMessage `json:"results"`
	}
	if err := unmarshalObject(data, &raw); err != nil {
		return err
	}
	for i, r := range raw.Results {
		if r == nil {
			return fmt.Errorf("result %d is null", i)
		}
		if isNull(r["score"]) {
			return fmt.Errorf("result %d: score is null", i)
		}
		summary, ok := r["summary"]
		if !ok {
			continue
		}
		if isNull(summary) {
			return fmt.Errorf("result %d: summary is null", i)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(summary, &fields); err != nil {
			return err
		}
		for _, key := range []string{"storeName", "location", "purpose"} {
			if isNull(fields[key]) {
				return fmt.Errorf("result %d: %s is null", i, key)
			}
		}
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// Run is the hook entry point. It returns the process exit code.
func Run(stdin io.Reader, stdout, stderr io.Writer) int {
	table, ok, err := Render(stdin)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			fmt.Fprintf(stderr, "Error parsing hook input: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "Error formatting results: %v\n", err)
		}
		return 1
	}
	if ok {
		fmt.Fprintln(stdout, table)
	}
	return 0
}
