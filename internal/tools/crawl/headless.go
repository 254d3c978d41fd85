package crawl

import (
	"context"
	"encoding/json"

	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/tools"
)

type HeadlessFetcher interface {
	FetchHeadless(ctx context.Context, url string) (*engine.HeadlessResult, error)
}

type FetchHeadlessTool struct {
	fetcher HeadlessFetcher
}

func NewFetchHeadlessTool(fetcher HeadlessFetcher) *FetchHeadlessTool {
	return &FetchHeadlessTool{fetcher: fetcher}
}

func (t *FetchHeadlessTool) Name() string {
	return "fetch_headless"
}

func (t *FetchHeadlessTool) Description() string {
	return "Load a page in a headless browser, waiting for the load event, and return html, markdown and same-site links"
}

func (t *FetchHeadlessTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "Absolute http or https URL"
			}
		},
		"required": ["url"]
	}`)
}

func (t *FetchHeadlessTool) Annotations() map[string]bool {
	return tools.OpenWorldAnnotations()
}

func (t *FetchHeadlessTool) Target(input json.RawMessage) string {
	return urlTarget(input)
}

func (t *FetchHeadlessTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	req, err := decodeURL(input)
	if err != nil {
		return nil, err
	}
	if req.URL == "" {
		return nil, tools.NewValidationError("url")
	}

	result, err := t.fetcher.FetchHeadless(ctx, req.URL)
	if err != nil {
		return nil, tools.NewEngineError(err.Error(), err)
	}
	return result, nil
}
