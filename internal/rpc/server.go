// Package rpc serves line-delimited JSON-RPC 2.0 over a pair of streams.
// Requests are handled one at a time, in arrival order, and every response
// is flushed before the next line is read.
package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alucardeht/crawl-worker/internal/tools"
	"github.com/alucardeht/crawl-worker/pkg/protocol"
)

type Server struct {
	registry *tools.Registry
	handler  *Handler
}

func NewServer(registry *tools.Registry, observers ...Observer) *Server {
	return &Server{
		registry: registry,
		handler:  NewHandler(registry, observers...),
	}
}

func (s *Server) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, bool) {
	return s.handler.Handle(ctx, req)
}

// ProcessStream reads requests until EOF or until ctx is done. It returns
// nil at EOF and an error when reading or writing fails.
func (s *Server) ProcessStream(ctx context.Context, reader io.Reader, writer io.Writer) error {
	in := bufio.NewReader(reader)
	out := protocol.NewFlushWriter(writer)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := in.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read request: %w", readErr)
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			if err := s.processLine(ctx, line, out); err != nil {
				return err
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

func (s *Server) processLine(ctx context.Context, line []byte, out *protocol.FlushWriter) error {
	if line[0] != '{' {
		log.Debug("request line is not an object", "bytes", len(line))
		return out.WriteJSON(protocol.NewError(nil, "parse error: request must be a JSON object"))
	}

	var req protocol.Request
	if err := json.Unmarshal(line, &req); err != nil {
		log.Debug("malformed request line", "error", err, "bytes", len(line))
		return out.WriteJSON(protocol.NewError(nil, fmt.Sprintf("parse error: %v", err)))
	}

	resp, ok := s.HandleRequest(ctx, &req)
	if !ok {
		return nil
	}
	return s.write(out, resp)
}

// write sends resp. A result that cannot be encoded is replaced by an error
// for the same id.
func (s *Server) write(out *protocol.FlushWriter, resp *protocol.Response) error {
	err := out.WriteJSON(resp)

	var unsupportedType *json.UnsupportedTypeError
	var unsupportedValue *json.UnsupportedValueError
	var marshaler *json.MarshalerError
	if errors.As(err, &unsupportedType) || errors.As(err, &unsupportedValue) || errors.As(err, &marshaler) {
		log.Error("response encoding failed", "id", protocol.IDString(resp.ID), "error", err)
		return out.WriteJSON(protocol.NewError(resp.ID, tools.NewInternalError(err).Error()))
	}
	if err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (s *Server) Registry() *tools.Registry {
	return s.registry
}
