// Package browser renders pages in a shared headless Chrome session driven
// by chromedp. One browser process serves the whole worker; each request
// gets its own tab.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/logger"
)

var log = logger.ForComponent("browser")

type Config struct {
	ChromePath string
	UserAgent  string
	// Headful shows the browser window. Only useful when debugging locally.
	Headful bool
}

type Engine struct {
	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// New starts the browser. The caller owns the returned engine and must
// Close it.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg)...)

	// chromedp reports protocol noise through these; keep it off the
	// default log level.
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(debugf("log")),
		chromedp.WithErrorf(debugf("error")),
		chromedp.WithDebugf(debugf("debug")),
	)

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	log.Info("browser started", "headless", !cfg.Headful, "chrome_path", cfg.ChromePath)
	return &Engine{
		allocCtx:      allocCtx,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

func debugf(source string) func(string, ...any) {
	return func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...), "source", source)
	}
}

func (e *Engine) Name() string { return "browser" }

// Fetch opens a tab, navigates and captures the rendered document. A non-2xx
// document status is an unsuccessful Result.
func (e *Engine) Fetch(ctx context.Context, url string, cfg engine.RunConfig) (*engine.Result, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, engine.ErrClosed
	}
	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	e.mu.Unlock()
	defer cancelTab()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, cfg.PageTimeout)
		defer cancel()
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if tabCtx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return &engine.Result{Success: false, ErrorMessage: err.Error()}, nil
	}
	if resp != nil && (resp.Status < 200 || resp.Status >= 300) {
		return &engine.Result{Success: false, ErrorMessage: fmt.Sprintf("HTTP %d", resp.Status)}, nil
	}

	var title, html, location string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if tabCtx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("capture page: %w", err)
	}

	res := &engine.Result{Success: true, HTML: html}
	if title != "" {
		res.Metadata = map[string]any{"title": title}
	}
	if location == "" {
		location = url
	}
	if err := engine.Enrich(location, res); err != nil {
		log.Warn("page analysis failed", "url", location, "error", err)
	}
	return res, nil
}

// Close shuts the browser down. Further fetches fail with engine.ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	err := chromedp.Cancel(e.browserCtx)
	e.cancelBrowser()
	e.cancelAlloc()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
