package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type stubTool struct{ name string }

func (s *stubTool) Name() string            { return s.name }
func (s *stubTool) Description() string     { return "stub" }
func (s *stubTool) Schema() json.RawMessage { return json.RawMessage(`{}`) }
func (s *stubTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	return nil, nil
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "parse_python"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&stubTool{name: "crawl"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Lookup("crawl"); !ok {
		t.Error("crawl should be registered")
	}
	if _, ok := r.Lookup("unknown_op"); ok {
		t.Error("unknown_op should not be registered")
	}
	if err := r.Register(&stubTool{name: "crawl"}); err == nil {
		t.Error("duplicate registration should fail")
	}
	if names := r.Names(); !reflect.DeepEqual(names, []string{"crawl", "parse_python"}) {
		t.Errorf("unexpected names %v", names)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{NewValidationError("code"), KindValidation},
		{fmt.Errorf("wrapped: %w", NewEngineError("boom", nil)), KindEngine},
		{errors.New("plain"), KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	if msg := NewValidationError("code").Error(); msg != "code parameter is required" {
		t.Errorf("unexpected message %q", msg)
	}
}
