package sidecar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/crawl-worker/internal/engine"
)

var (
	ErrNotInitialized = errors.New("renderer not initialized")
	ErrAlreadyClosed  = errors.New("renderer connection already closed")
)

// Client speaks JSON-RPC with Content-Length framing to a renderer over its
// stdio pipes.
type Client struct {
	conn   *jsonrpc2.Conn
	cfg    ClientConfig
	state  atomic.Value
	server ClientInfo

	requestCount atomic.Int64
	errorCount   atomic.Int64

	closeOnce sync.Once
}

type ClientConfig struct {
	Name           string
	Version        string
	InitTimeout    time.Duration
	RequestTimeout time.Duration
}

type stdio struct {
	io.ReadCloser
	w io.WriteCloser
}

func (s stdio) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s stdio) Close() error {
	return errors.Join(s.w.Close(), s.ReadCloser.Close())
}

func NewClient(ctx context.Context, stdin io.WriteCloser, stdout io.ReadCloser, cfg ClientConfig) *Client {
	c := &Client{cfg: cfg}
	c.state.Store(StateStarting)

	stream := jsonrpc2.NewBufferedStream(stdio{ReadCloser: stdout, w: stdin}, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(c.handle).SuppressErrClosed(),
		jsonrpc2.SetLogger(connLogger{}))
	return c
}

// connLogger routes jsonrpc2's own diagnostics to the debug log.
type connLogger struct{}

func (connLogger) Printf(format string, v ...any) {
	log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "jsonrpc2")
}

// handle accepts the renderer's "log" notifications. Renderers never call
// the worker otherwise.
func (c *Client) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if req.Method != "log" || req.Params == nil {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}
	var p LogParams
	if err := json.Unmarshal(*req.Params, &p); err != nil {
		return nil, nil
	}
	switch p.Level {
	case "error":
		log.Warn(p.Message, "source", "renderer")
	default:
		log.Debug(p.Message, "source", "renderer", "level", p.Level)
	}
	return nil, nil
}

func (c *Client) Initialize(ctx context.Context) error {
	if s := c.State(); s != StateStarting {
		return fmt.Errorf("cannot initialize: client in state %s", s)
	}
	c.state.Store(StateInitializing)

	initCtx, cancel := context.WithTimeout(ctx, c.cfg.InitTimeout)
	defer cancel()

	params := InitializeParams{
		ProcessID:  os.Getpid(),
		ClientInfo: ClientInfo{Name: c.cfg.Name, Version: c.cfg.Version},
	}
	var result InitializeResult
	if err := c.conn.Call(initCtx, "initialize", params, &result); err != nil {
		c.state.Store(StateError)
		return fmt.Errorf("initialize failed: %w", err)
	}
	c.server = result.ServerInfo

	if err := c.conn.Notify(initCtx, "initialized", struct{}{}); err != nil {
		c.state.Store(StateError)
		return fmt.Errorf("initialized notification failed: %w", err)
	}

	c.state.Store(StateReady)
	return nil
}

// Render asks for one page. A renderer-side failure to load the page is a
// Result with Success=false; errors are protocol or transport failures.
func (c *Client) Render(ctx context.Context, params RenderParams) (*engine.Result, error) {
	if !c.IsReady() {
		return nil, ErrNotInitialized
	}
	c.requestCount.Add(1)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var res engine.Result
	if err := c.conn.Call(callCtx, "render", params, &res); err != nil {
		c.errorCount.Add(1)
		return nil, err
	}
	return &res, nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	if !c.IsReady() {
		return ErrNotInitialized
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	if err := c.conn.Call(callCtx, "shutdown", nil, nil); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := c.conn.Notify(ctx, "exit", nil); err != nil {
		return fmt.Errorf("exit notification failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	err := ErrAlreadyClosed
	c.closeOnce.Do(func() {
		c.state.Store(StateStopped)
		err = c.conn.Close()
	})
	return err
}

// Disconnected is closed when the connection to the renderer ends.
func (c *Client) Disconnected() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

func (c *Client) IsReady() bool {
	return c.State() == StateReady
}

func (c *Client) State() State {
	return c.state.Load().(State)
}

func (c *Client) Server() ClientInfo {
	return c.server
}
