// Package direct renders pages with a plain HTTP GET. It does not run
// scripts, so it suits static sites and hosts without a browser.
package direct

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/logger"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	DefaultMaxPageBytes = 10 << 20
)

var log = logger.ForComponent("direct")

type Config struct {
	UserAgent    string
	MaxPageBytes int64
	Client       *http.Client
}

type Engine struct {
	cfg    Config
	client *http.Client
	closed atomic.Bool
}

func New(cfg Config) *Engine {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = DefaultMaxPageBytes
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Engine{cfg: cfg, client: client}
}

func (e *Engine) Name() string { return "direct" }

// Fetch reports HTTP failures as an unsuccessful Result. Only transport
// problems and cancellation come back as errors.
func (e *Engine) Fetch(ctx context.Context, url string, cfg engine.RunConfig) (*engine.Result, error) {
	if e.closed.Load() {
		return nil, engine.ErrClosed
	}
	if cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PageTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &engine.Result{Success: false, ErrorMessage: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	res := &engine.Result{
		Success: true,
		HTML:    engine.DecodeHTML(body, resp.Header.Get("Content-Type")),
	}
	if err := engine.Enrich(finalURL, res); err != nil {
		log.Warn("page analysis failed", "url", finalURL, "error", err)
	}

	log.Debug("fetched page", "url", url, "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))
	return res, nil
}

func (e *Engine) Close() error {
	e.closed.Store(true)
	e.client.CloseIdleConnections()
	return nil
}
