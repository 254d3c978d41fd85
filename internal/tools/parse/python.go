package parse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alucardeht/crawl-worker/internal/extract"
	"github.com/alucardeht/crawl-worker/internal/tools"
)

type PythonRequest struct {
	Code     string `json:"code"`
	FilePath string `json:"filePath,omitempty"`
}

type PythonTool struct{}

func NewPythonTool() *PythonTool {
	return &PythonTool{}
}

func (t *PythonTool) Name() string {
	return "parse_python"
}

func (t *PythonTool) Description() string {
	return "Extract top-level functions, classes, methods, calls and imports from Python source"
}

func (t *PythonTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"code": {
				"type": "string",
				"description": "Python source text"
			},
			"filePath": {
				"type": "string",
				"description": "File the code came from, used in error messages"
			}
		},
		"required": ["code"]
	}`)
}

func (t *PythonTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *PythonTool) Target(input json.RawMessage) string {
	var req PythonRequest
	if json.Unmarshal(input, &req) != nil {
		return ""
	}
	return req.FilePath
}

func (t *PythonTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var req PythonRequest
	if len(input) > 0 {
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, &tools.ToolError{Kind: tools.KindValidation, Message: fmt.Sprintf("invalid params: %v", err), Err: err}
		}
	}

	if req.Code == "" {
		return nil, tools.NewValidationError("code")
	}

	result, err := extract.Extract(req.Code)
	if err != nil {
		var se *extract.SyntaxError
		if !errors.As(err, &se) {
			return nil, tools.NewInternalError(err)
		}
		if req.FilePath != "" {
			return nil, tools.NewSyntaxError(fmt.Errorf("%s: %w", req.FilePath, err))
		}
		return nil, tools.NewSyntaxError(err)
	}
	return result, nil
}
