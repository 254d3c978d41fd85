package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/alucardeht/crawl-worker/internal/logger"
	"github.com/alucardeht/crawl-worker/internal/tools"
	"github.com/alucardeht/crawl-worker/pkg/protocol"
)

var log = logger.ForComponent("rpc")

// Call describes one answered request.
type Call struct {
	Method   string
	ID       json.RawMessage
	Target   string
	Started  time.Time
	Duration time.Duration
	Result   interface{}
	Err      error
}

// Observer is told about every request that got a response. It runs on the
// request path, so implementations should be quick.
type Observer interface {
	Observe(ctx context.Context, call Call)
}

type Handler struct {
	registry  *tools.Registry
	observers []Observer
}

func NewHandler(registry *tools.Registry, observers ...Observer) *Handler {
	return &Handler{registry: registry, observers: observers}
}

// Handle runs one request. The second result is false when the method is
// unknown; such requests get no response at all.
func (h *Handler) Handle(ctx context.Context, req *protocol.Request) (*protocol.Response, bool) {
	tool, ok := h.registry.Lookup(req.Method)
	if !ok {
		log.Debug("dropping request for unknown method", "method", req.Method, "id", protocol.IDString(req.ID))
		return nil, false
	}

	call := Call{Method: req.Method, ID: req.ID, Started: time.Now()}
	if targeted, ok := tool.(tools.Targeted); ok {
		call.Target = targeted.Target(req.Params)
	}

	call.Result, call.Err = h.execute(ctx, tool, req.Params)
	call.Duration = time.Since(call.Started)

	attrs := []any{"method", call.Method, "id", protocol.IDString(call.ID), "latency_ms", call.Duration.Milliseconds()}
	if call.Target != "" {
		attrs = append(attrs, "target", call.Target)
	}
	if call.Err != nil {
		log.Warn("request failed", append(attrs, "kind", tools.KindOf(call.Err), "error", call.Err)...)
	} else {
		log.Info("request completed", attrs...)
	}

	for _, o := range h.observers {
		o.Observe(ctx, call)
	}

	if call.Err != nil {
		return protocol.NewError(req.ID, call.Err.Error()), true
	}
	return protocol.NewResult(req.ID, call.Result), true
}

func (h *Handler) execute(ctx context.Context, tool tools.Tool, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = tools.NewInternalError(fmt.Errorf("%v", r))
			log.Error("tool panic recovered",
				"tool", tool.Name(),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	return tool.Execute(ctx, params)
}
