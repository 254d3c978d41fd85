package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// HeadlessPageTimeout bounds a fetch_headless page load.
const HeadlessPageTimeout = 30 * time.Second

const (
	WaitLoad             = "load"
	WaitDOMContentLoaded = "domcontentloaded"
)

var ErrClosed = errors.New("engine closed")

// Engine renders pages. Implementations hold one long-lived session that is
// released by Close.
type Engine interface {
	Name() string
	Fetch(ctx context.Context, url string, cfg RunConfig) (*Result, error)
	Close() error
}

type RunConfig struct {
	Headless    bool          `json:"headless"`
	WaitUntil   string        `json:"waitUntil,omitempty"`
	PageTimeout time.Duration `json:"-"`
}

// Result is what an engine reports for one page. Success=false carries the
// engine's own explanation in ErrorMessage.
type Result struct {
	Success      bool           `json:"success"`
	HTML         string         `json:"html"`
	Markdown     string         `json:"markdown,omitempty"`
	CleanedHTML  string         `json:"cleanedHtml,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Links        LinkSet        `json:"links"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

type LinkSet struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
}

type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// UnmarshalJSON accepts a bare URL string or an object with href (or url)
// and text.
func (l *Link) UnmarshalJSON(data []byte) error {
	var href string
	if err := json.Unmarshal(data, &href); err == nil {
		*l = Link{Href: href}
		return nil
	}

	var obj struct {
		Href string `json:"href"`
		URL  string `json:"url"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Href = obj.Href
	if l.Href == "" {
		l.Href = obj.URL
	}
	l.Text = obj.Text
	return nil
}

// Title returns the metadata title when the engine supplied a string one.
func (r *Result) Title() string {
	if r.Metadata == nil {
		return ""
	}
	title, _ := r.Metadata["title"].(string)
	return title
}

// Content prefers markdown, then cleaned HTML.
func (r *Result) Content() string {
	if r.Markdown != "" {
		return r.Markdown
	}
	return r.CleanedHTML
}

func hrefs(dst []string, links []Link) []string {
	for _, l := range links {
		if l.Href != "" {
			dst = append(dst, l.Href)
		}
	}
	return dst
}
