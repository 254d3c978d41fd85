package crawl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/tools"
)

type Crawler interface {
	Crawl(ctx context.Context, url string) (*engine.CrawlResult, error)
}

type URLRequest struct {
	URL string `json:"url"`
}

func decodeURL(input json.RawMessage) (URLRequest, error) {
	var req URLRequest
	if len(input) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return req, &tools.ToolError{Kind: tools.KindValidation, Message: fmt.Sprintf("invalid params: %v", err), Err: err}
	}
	return req, nil
}

func urlTarget(input json.RawMessage) string {
	var req URLRequest
	if json.Unmarshal(input, &req) != nil {
		return ""
	}
	return req.URL
}

type CrawlTool struct {
	crawler Crawler
}

func NewCrawlTool(crawler Crawler) *CrawlTool {
	return &CrawlTool{crawler: crawler}
}

func (t *CrawlTool) Name() string {
	return "crawl"
}

func (t *CrawlTool) Description() string {
	return "Render one page and return its title, content, html and links"
}

func (t *CrawlTool) Schema() json.RawMessage {
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

func (t *CrawlTool) Annotations() map[string]bool {
	return tools.OpenWorldAnnotations()
}

func (t *CrawlTool) Target(input json.RawMessage) string {
	return urlTarget(input)
}

func (t *CrawlTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	req, err := decodeURL(input)
	if err != nil {
		return nil, err
	}
	if req.URL == "" {
		return nil, tools.NewValidationError("URL")
	}

	result, err := t.crawler.Crawl(ctx, req.URL)
	if err != nil {
		return nil, tools.NewEngineError(err.Error(), err)
	}
	return result, nil
}
