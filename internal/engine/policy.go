package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DeniedError reports a URL rejected by the policy.
type DeniedError struct {
	URL    string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("url not allowed: %s", e.URL)
}

// Policy decides which URLs may be fetched. Patterns are doublestar globs
// matched against the lower-cased host and against host+path, so "*.internal"
// denies a whole domain and "example.com/admin/**" a subtree.
type Policy struct {
	patterns []string
}

func NewPolicy(patterns []string) (*Policy, error) {
	p := &Policy{}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid deny pattern %q", pattern)
		}
		p.patterns = append(p.patterns, pattern)
	}
	return p, nil
}

func (p *Policy) Patterns() []string {
	return append([]string(nil), p.patterns...)
}

func (p *Policy) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &DeniedError{URL: rawURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &DeniedError{URL: rawURL, Reason: "unsupported scheme " + u.Scheme}
	}
	if u.Hostname() == "" {
		return &DeniedError{URL: rawURL, Reason: "missing host"}
	}
	if p == nil {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	target := host + u.EscapedPath()
	for _, pattern := range p.patterns {
		if doublestar.MatchUnvalidated(pattern, host) || doublestar.MatchUnvalidated(pattern, target) {
			return &DeniedError{URL: rawURL, Reason: "matches " + pattern}
		}
	}
	return nil
}
