package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alucardeht/crawl-worker/internal/logger"
)

var log = logger.ForComponent("engine")

// Adapter turns engine results into the crawl and fetch_headless response
// shapes. It never retries: a failed fetch is reported once.
type Adapter struct {
	engine         Engine
	defaultTimeout time.Duration
	policy         atomic.Pointer[Policy]
}

func NewAdapter(engine Engine, defaultTimeout time.Duration) *Adapter {
	a := &Adapter{engine: engine, defaultTimeout: defaultTimeout}
	a.policy.Store(&Policy{})
	return a
}

// SetPolicy swaps the URL policy. Safe to call while requests are running.
func (a *Adapter) SetPolicy(p *Policy) {
	if p == nil {
		p = &Policy{}
	}
	a.policy.Store(p)
}

func (a *Adapter) Policy() *Policy {
	return a.policy.Load()
}

func (a *Adapter) Engine() Engine {
	return a.engine
}

// FetchError is an engine failure for one URL.
type FetchError struct {
	URL     string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (a *Adapter) Crawl(ctx context.Context, url string) (*CrawlResult, error) {
	res, err := a.fetch(ctx, url, RunConfig{PageTimeout: a.defaultTimeout})
	if err != nil {
		return nil, &FetchError{URL: url, Message: fmt.Sprintf("failed to crawl %s: %s", url, err.Error()), Err: err}
	}

	links := hrefs(make([]string, 0, len(res.Links.Internal)+len(res.Links.External)), res.Links.Internal)
	links = hrefs(links, res.Links.External)

	page := Page{
		URL:     url,
		Title:   res.Title(),
		Content: res.Content(),
		HTML:    res.HTML,
		Links:   links,
	}
	return &CrawlResult{Pages: []Page{page}}, nil
}

func (a *Adapter) FetchHeadless(ctx context.Context, url string) (*HeadlessResult, error) {
	cfg := RunConfig{
		Headless:    true,
		WaitUntil:   WaitLoad,
		PageTimeout: HeadlessPageTimeout,
	}
	res, err := a.fetch(ctx, url, cfg)
	if err != nil {
		return nil, &FetchError{URL: url, Message: err.Error(), Err: err}
	}

	return &HeadlessResult{
		HTML:     res.HTML,
		Markdown: res.Markdown,
		Links:    hrefs([]string{}, res.Links.Internal),
	}, nil
}

func (a *Adapter) fetch(ctx context.Context, url string, cfg RunConfig) (*Result, error) {
	if err := a.policy.Load().Check(url); err != nil {
		return nil, err
	}

	if cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PageTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := a.engine.Fetch(ctx, url, cfg)
	log.Debug("engine fetch", "engine", a.engine.Name(), "url", url, "duration_ms", time.Since(start).Milliseconds(), "error", err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s", cfg.PageTimeout)
		}
		return nil, err
	}
	if res == nil {
		return nil, errors.New("engine returned no result")
	}
	if !res.Success {
		msg := res.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return nil, errors.New(msg)
	}
	return res, nil
}
