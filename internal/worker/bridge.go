// Package worker runs aggregation out-of-process. The bridge side spawns
// a worker, sends one JSON request on stdin, and reads one JSON response
// from stdout under a wall-clock timeout and a combined output ceiling.
// The serve side is the worker's dispatch loop.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultTimeout bounds one aggregation call end to end.
	DefaultTimeout = 300 * time.Second
	// DefaultMaxOutputBytes caps stdout+stderr combined. Exceeding it is
	// the only backpressure against a runaway worker.
	DefaultMaxOutputBytes = 100 * 1024 * 1024

	// killGrace is how long a worker gets between SIGTERM and SIGKILL.
	killGrace = 500 * time.Millisecond
)

var (
	// ErrTimeout means the worker exceeded its wall-clock budget.
	ErrTimeout = errors.New("worker timed out")
	// ErrOutputLimit means the worker wrote past the output ceiling.
	ErrOutputLimit = errors.New("worker output limit exceeded")
)

// Request is the single message the bridge writes to a worker's stdin.
type Request struct {
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
}

type workerError struct {
	Error string `json:"error"`
}

// Bridge spawns worker processes and speaks the request/response
// protocol with them. The zero value is not usable; use NewBridge.
type Bridge struct {
	binPath        string
	args           []string
	timeout        time.Duration
	maxOutputBytes int64
}

// BridgeOption adjusts a Bridge at construction.
type BridgeOption func(*Bridge)

// WithTimeout overrides the wall-clock budget per call.
func WithTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.timeout = d }
}

// WithMaxOutputBytes overrides the combined output ceiling.
func WithMaxOutputBytes(n int64) BridgeOption {
	return func(b *Bridge) { b.maxOutputBytes = n }
}

// NewBridge creates a bridge that spawns binPath with args per call.
func NewBridge(binPath string, args []string, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		binPath:        binPath,
		args:           args,
		timeout:        DefaultTimeout,
		maxOutputBytes: DefaultMaxOutputBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Call runs one operation in a fresh worker process and decodes its
// response into result. Every exit path waits for the process to fully
// terminate before returning; no worker outlives its call.
func (b *Bridge) Call(ctx context.Context, method string, args any, result any) error {
	argData, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode %s args: %w", method, err)
	}
	reqData, err := json.Marshal(Request{Method: method, Args: []json.RawMessage{argData}})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, b.binPath, b.args...)
	cmd.Stdin = bytes.NewReader(reqData)
	// graceful stop first, forced kill after the grace window
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	budget := &outputBudget{remaining: b.maxOutputBytes, abort: cancel}
	cmd.Stdout = &meteredWriter{buf: &stdout, budget: budget}
	cmd.Stderr = &meteredWriter{buf: &stderr, budget: budget}

	runErr := cmd.Run()

	switch {
	case budget.overLimit():
		return fmt.Errorf("%s: %w (limit %d bytes)", method, ErrOutputLimit, b.maxOutputBytes)
	case callCtx.Err() == context.DeadlineExceeded:
		return fmt.Errorf("%s: %w after %s", method, ErrTimeout, b.timeout)
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return fmt.Errorf("%s: %s", method, workerFailure(stderr.Bytes()))
		}
		return fmt.Errorf("spawn worker for %s: %w", method, runErr)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(stdout.Bytes(), result); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// workerFailure extracts the failure message from a worker's stderr,
// preferring the structured form over raw text.
func workerFailure(stderr []byte) string {
	var structured workerError
	if err := json.Unmarshal(bytes.TrimSpace(stderr), &structured); err == nil && structured.Error != "" {
		return structured.Error
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	return "worker exited with an error and no message"
}

// outputBudget tracks the combined byte allowance across both streams.
// When it runs out the abort function tears the worker down.
type outputBudget struct {
	mu        sync.Mutex
	remaining int64
	exceeded  bool
	abort     context.CancelFunc
}

func (b *outputBudget) consume(n int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exceeded {
		return false
	}
	b.remaining -= n
	if b.remaining < 0 {
		b.exceeded = true
		b.abort()
		return false
	}
	return true
}

func (b *outputBudget) overLimit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exceeded
}

// meteredWriter buffers a stream while charging the shared budget.
// Writes after the budget is blown are discarded, not failed, so the
// pipe drains until the process dies.
type meteredWriter struct {
	buf    *bytes.Buffer
	budget *outputBudget
}

func (w *meteredWriter) Write(p []byte) (int, error) {
	if w.budget.consume(int64(len(p))) {
		w.buf.Write(p)
	}
	return len(p), nil
}

// Handle lazily resolves a bridge for the current executable's hidden
// worker mode. Owned by the composition root; the first use wins and the
// outcome is memoized for the process lifetime.
type Handle struct {
	once   sync.Once
	opts   []BridgeOption
	bridge *Bridge
	err    error
}

// NewSelfHandle prepares a handle that re-invokes this binary as the
// worker process.
func NewSelfHandle(opts ...BridgeOption) *Handle {
	return &Handle{opts: opts}
}

// Bridge resolves the executable path once and returns the shared bridge.
func (h *Handle) Bridge() (*Bridge, error) {
	h.once.Do(func() {
		exe, err := os.Executable()
		if err != nil {
			h.err = fmt.Errorf("resolve worker executable: %w", err)
			return
		}
		h.bridge = NewBridge(exe, []string{"worker"}, h.opts...)
	})
	return h.bridge, h.err
}
