package sidecar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

var (
	ErrNotInstalled = errors.New("renderer not installed")
	ErrMaxRestarts  = errors.New("max restart attempts exceeded")
)

type ProcessConfig struct {
	Command        string
	Args           []string
	Env            []string
	InitTimeout    time.Duration
	RequestTimeout time.Duration
	MaxRestarts    int
	ClientName     string
	ClientVersion  string
}

// Process owns one renderer child process and its client. A dead renderer
// is started again on the next call, up to MaxRestarts times.
type Process struct {
	cfg ProcessConfig

	mu        sync.Mutex
	cmd       *exec.Cmd
	client    *Client
	starts    int
	lastError error
}

func NewProcess(cfg ProcessConfig) *Process {
	return &Process{cfg: cfg}
}

// Client returns a ready client, starting the renderer if needed.
func (p *Process) Client(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		select {
		case <-p.client.Disconnected():
			log.Warn("renderer connection lost, restarting", "command", p.cfg.Command)
			p.reapLocked()
		default:
			if p.client.IsReady() {
				return p.client, nil
			}
			p.reapLocked()
		}
	}

	if p.starts > p.cfg.MaxRestarts {
		return nil, ErrMaxRestarts
	}
	if err := p.startLocked(ctx); err != nil {
		p.lastError = err
		return nil, err
	}
	return p.client, nil
}

func (p *Process) startLocked(ctx context.Context) error {
	path, err := exec.LookPath(p.cfg.Command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotInstalled, p.cfg.Command)
	}
	p.starts++

	cmd := exec.Command(path, p.cfg.Args...)
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("failed to start %s: %w", p.cfg.Command, err)
	}

	client := NewClient(context.WithoutCancel(ctx), stdin, stdout, ClientConfig{
		Name:           p.cfg.ClientName,
		Version:        p.cfg.ClientVersion,
		InitTimeout:    p.cfg.InitTimeout,
		RequestTimeout: p.cfg.RequestTimeout,
	})
	p.cmd = cmd
	p.client = client

	if err := client.Initialize(ctx); err != nil {
		p.reapLocked()
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	log.Info("renderer started", "command", p.cfg.Command, "pid", cmd.Process.Pid, "server", client.Server().Name, "start", p.starts)
	return nil
}

// Stop runs the shutdown handshake and waits for the child to exit.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.client != nil && p.client.IsReady() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.client.Shutdown(shutdownCtx)
		cancel()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			p.cmd.Process.Kill()
			<-done
		}
	}
	if p.client != nil {
		p.client.Close()
	}
	p.cmd = nil
	p.client = nil
	return err
}

// reapLocked kills the child without the shutdown handshake.
func (p *Process) reapLocked() {
	if p.client != nil {
		p.client.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
	p.cmd = nil
	p.client = nil
}

func (p *Process) stats() (State, int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := StateStopped
	if p.client != nil {
		state = p.client.State()
	}
	var lastErr string
	if p.lastError != nil {
		lastErr = p.lastError.Error()
	}
	return state, max(p.starts-1, 0), lastErr
}

func (p *Process) current() *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// drop discards client after a transport failure so the next call starts a
// fresh renderer.
func (p *Process) drop(client *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == client {
		p.reapLocked()
	}
}
