// Package worker assembles a crawl worker from its configuration: the
// rendering engine, the method registry, the request journal and the
// config watcher.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/alucardeht/crawl-worker/internal/config"
	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/journal"
	"github.com/alucardeht/crawl-worker/internal/logger"
	"github.com/alucardeht/crawl-worker/internal/rpc"
	"github.com/alucardeht/crawl-worker/internal/watcher"
)

var log = logger.ForComponent("worker")

type Worker struct {
	cfg     *config.Config
	engine  engine.Engine
	adapter *engine.Adapter
	server  *rpc.Server
	journal *journal.Store
	watcher *watcher.Watcher

	closeOnce sync.Once
}

// New starts the engine and opens the journal. The engine session lives
// until Close.
func New(ctx context.Context, cfg *config.Config) (*Worker, error) {
	policy, err := engine.NewPolicy(cfg.Engine.DenyPatterns)
	if err != nil {
		return nil, err
	}

	eng, err := NewEngine(ctx, cfg.Engine)
	if err != nil {
		return nil, err
	}

	w := &Worker{cfg: cfg, engine: eng}
	w.adapter = engine.NewAdapter(eng, cfg.Engine.DefaultTimeout)
	w.adapter.SetPolicy(policy)

	var observers []rpc.Observer
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Warn("journal unavailable, continuing without it", "path", cfg.Journal.Path, "error", err)
		} else {
			w.journal = store
			if cfg.Journal.MaxAge > 0 {
				if n, err := store.Prune(ctx, cfg.Journal.MaxAge); err != nil {
					log.Warn("journal prune failed", "error", err)
				} else if n > 0 {
					log.Debug("pruned journal", "entries", n)
				}
			}
			recorder := journal.NewRecorder(store)
			observers = append(observers, recorder)
			log.Debug("journal open", "path", cfg.Journal.Path, "session", recorder.Session())
		}
	}

	registry, err := NewRegistry(w.adapter)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.server = rpc.NewServer(registry, observers...)

	if cfg.Watch.Enabled && cfg.Path != "" {
		wt, err := watcher.New(cfg.Path, cfg.Watch.Debounce, w.reload)
		if err != nil {
			log.Warn("config watch disabled", "path", cfg.Path, "error", err)
		} else {
			w.watcher = wt
		}
	}

	log.Info("worker ready", "engine", eng.Name(), "methods", registry.Names())
	return w, nil
}

// Serve answers requests from r on out until r is exhausted.
func (w *Worker) Serve(ctx context.Context, r io.Reader, out io.Writer) error {
	if w.watcher != nil {
		if err := w.watcher.Start(ctx); err != nil {
			log.Warn("config watch failed to start", "error", err)
		}
	}
	return w.server.ProcessStream(ctx, r, out)
}

func (w *Worker) Server() *rpc.Server {
	return w.server
}

func (w *Worker) Adapter() *engine.Adapter {
	return w.adapter
}

// reload re-reads the config file and applies the settings that can change
// without a restart: log level and URL deny patterns.
func (w *Worker) reload(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("config reload failed, keeping current settings", "path", path, "error", err)
		return
	}
	if err := w.apply(cfg); err != nil {
		log.Warn("config reload rejected", "path", path, "error", err)
		return
	}
	log.Info("config reloaded", "path", path, "deny_patterns", len(cfg.Engine.DenyPatterns))
}

func (w *Worker) apply(cfg *config.Config) error {
	policy, err := engine.NewPolicy(cfg.Engine.DenyPatterns)
	if err != nil {
		return err
	}
	w.adapter.SetPolicy(policy)
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	if cfg.Engine.Kind != w.cfg.Engine.Kind {
		log.Warn("engine kind changes need a restart", "running", w.cfg.Engine.Kind, "configured", cfg.Engine.Kind)
	}
	return nil
}

// Close stops the watcher, the engine and the journal.
func (w *Worker) Close() error {
	var errs []error
	w.closeOnce.Do(func() {
		if w.watcher != nil {
			w.watcher.Stop()
		}
		if err := w.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
		if w.journal != nil {
			if err := w.journal.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close journal: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
