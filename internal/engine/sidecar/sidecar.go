// Package sidecar renders pages through an external renderer process. The
// worker starts the renderer once, sends "initialize", then one "render"
// call per page, and "shutdown" followed by "exit" when it stops. Messages
// use JSON-RPC 2.0 with Content-Length framing over the child's stdio.
package sidecar

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/logger"
)

var log = logger.ForComponent("sidecar")

type Engine struct {
	proc    *Process
	breaker *Breaker
	closed  atomic.Bool
}

func New(cfg ProcessConfig) *Engine {
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = 30 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	return &Engine{
		proc:    NewProcess(cfg),
		breaker: NewBreaker(5, 30*time.Second),
	}
}

// Start launches the renderer ahead of the first request.
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.proc.Client(ctx)
	return err
}

func (e *Engine) Name() string { return "sidecar" }

func (e *Engine) Fetch(ctx context.Context, url string, cfg engine.RunConfig) (*engine.Result, error) {
	if e.closed.Load() {
		return nil, engine.ErrClosed
	}
	if err := e.breaker.Allow(); err != nil {
		return nil, err
	}

	res, err := e.render(ctx, url, cfg)
	if err != nil && ctx.Err() == nil {
		e.breaker.Record(err)
	} else {
		e.breaker.Record(nil)
	}
	if err != nil {
		return nil, err
	}

	if err := engine.Enrich(url, res); err != nil {
		log.Warn("page analysis failed", "url", url, "error", err)
	}
	return res, nil
}

func (e *Engine) render(ctx context.Context, url string, cfg engine.RunConfig) (*engine.Result, error) {
	client, err := e.proc.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("renderer unavailable: %w", err)
	}

	res, err := client.Render(ctx, RenderParams{
		URL:       url,
		Headless:  cfg.Headless,
		WaitUntil: cfg.WaitUntil,
		TimeoutMs: cfg.PageTimeout.Milliseconds(),
	})

	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return &engine.Result{Success: false, ErrorMessage: rpcErr.Message}, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.proc.drop(client)
		return nil, fmt.Errorf("render call failed: %w", err)
	}
	return res, nil
}

func (e *Engine) Stats() Stats {
	state, restarts, lastErr := e.proc.stats()
	s := Stats{State: state, Circuit: e.breaker.State(), Restarts: restarts, LastError: lastErr}
	if c := e.proc.current(); c != nil {
		s.RequestCount = c.requestCount.Load()
		s.ErrorCount = c.errorCount.Load()
	}
	return s
}

func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.proc.Stop(context.Background())
}
