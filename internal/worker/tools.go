package worker

import (
	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/tools"
	"github.com/alucardeht/crawl-worker/internal/tools/crawl"
	"github.com/alucardeht/crawl-worker/internal/tools/parse"
)

// NewRegistry registers every method the worker answers.
func NewRegistry(adapter *engine.Adapter) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		crawl.NewCrawlTool(adapter),
		crawl.NewFetchHeadlessTool(adapter),
		parse.NewPythonTool(),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
