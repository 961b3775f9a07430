package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Handler implements one worker operation. Args is the first element of
// the request's args array, still encoded.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Server is the worker-process side of the protocol: it reads one
// request from stdin, dispatches it, and writes the result to stdout.
// Failures go to stderr as {"error": ...} with a nonzero exit code.
type Server struct {
	handlers map[string]Handler
}

// NewServer creates an empty dispatch table.
func NewServer() *Server {
	return &Server{handlers: make(map[string]Handler)}
}

// Handle registers the handler for a method name.
func (s *Server) Handle(method string, h Handler) {
	s.handlers[method] = h
}

// Run serves exactly one request and returns the process exit code.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) int {
	var req Request
	if err := json.NewDecoder(stdin).Decode(&req); err != nil {
		return fail(stderr, fmt.Sprintf("decode request: %v", err))
	}

	handler, ok := s.handlers[req.Method]
	if !ok {
		return fail(stderr, fmt.Sprintf("unknown method %q", req.Method))
	}

	var args json.RawMessage
	if len(req.Args) > 0 {
		args = req.Args[0]
	}

	result, err := handler(ctx, args)
	if err != nil {
		return fail(stderr, err.Error())
	}

	if err := json.NewEncoder(stdout).Encode(result); err != nil {
		return fail(stderr, fmt.Sprintf("encode response: %v", err))
	}
	return 0
}

func fail(stderr io.Writer, msg string) int {
	json.NewEncoder(stderr).Encode(workerError{Error: msg})
	return 1
}
