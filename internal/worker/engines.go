package worker

import (
	"context"
	"fmt"

	"github.com/alucardeht/crawl-worker/internal/config"
	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/engine/browser"
	"github.com/alucardeht/crawl-worker/internal/engine/direct"
	"github.com/alucardeht/crawl-worker/internal/engine/sidecar"
	"github.com/alucardeht/crawl-worker/pkg/version"
)

// NewEngine builds and starts the engine named by cfg.Kind.
func NewEngine(ctx context.Context, cfg config.EngineConfig) (engine.Engine, error) {
	switch cfg.Kind {
	case config.EngineBrowser:
		return browser.New(ctx, browserConfig(cfg))

	case config.EngineDirect:
		return direct.New(direct.Config{
			UserAgent:    cfg.UserAgent,
			MaxPageBytes: cfg.MaxPageBytes,
		}), nil

	case config.EngineSidecar:
		e := sidecar.New(sidecar.ProcessConfig{
			Command:        cfg.Sidecar.Command,
			Args:           cfg.Sidecar.Args,
			InitTimeout:    cfg.Sidecar.InitTimeout,
			RequestTimeout: cfg.Sidecar.RequestTimeout,
			MaxRestarts:    cfg.Sidecar.MaxRestarts,
			ClientName:     version.Name,
			ClientVersion:  version.Version,
		})
		if err := e.Start(ctx); err != nil {
			e.Close()
			return nil, fmt.Errorf("start sidecar: %w", err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown engine kind %q", cfg.Kind)
}

func browserConfig(cfg config.EngineConfig) browser.Config {
	return browser.Config{
		ChromePath: cfg.ChromePath,
		UserAgent:  cfg.UserAgent,
		Headful:    cfg.Headful,
	}
}
