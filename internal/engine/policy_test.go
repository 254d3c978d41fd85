package engine

import (
	"errors"
	"testing"
)

func TestPolicyCheck(t *testing.T) {
	p, err := NewPolicy([]string{"localhost", "*.internal", "example.com/admin/**", " "})
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}

	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://example.com/docs", true},
		{"https://example.com/admin/users", false},
		{"http://localhost:8080/", false},
		{"https://db.internal/", false},
		{"https://internal.example.org/", true},
		{"ftp://example.com/file", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		err := p.Check(tt.url)
		if (err == nil) != tt.allowed {
			t.Errorf("Check(%q) = %v, want allowed=%v", tt.url, err, tt.allowed)
		}
		var denied *DeniedError
		if err != nil && !errors.As(err, &denied) {
			t.Errorf("expected *DeniedError, got %T", err)
		}
	}
}

func TestNewPolicyRejectsBadPattern(t *testing.T) {
	if _, err := NewPolicy([]string{"[unclosed"}); err == nil {
		t.Error("expected invalid pattern error")
	}
}
