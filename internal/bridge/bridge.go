package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/illarion/seedvault/internal/core"
	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/vault"
	"github.com/rs/zerolog"
)

// MaxLineSize bounds a single request line
const MaxLineSize = 1024 * 1024

// Request is one call: {"id":1,"method":"sign","params":{...}}
type Request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request with the same id and either result or error
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error carries the error kind as code
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type handler func(ctx context.Context, params json.RawMessage) (any, error)

// Server dispatches bridge calls to a Manager and a Store, one at a time
type Server struct {
	mu       sync.Mutex
	mgr      *core.Manager
	store    *core.Store
	log      zerolog.Logger
	handlers map[string]handler
}

// New creates a Server
func New(mgr *core.Manager, store *core.Store, log zerolog.Logger) *Server {
	s := &Server{
		mgr:   mgr,
		store: store,
		log:   log.With().Str("component", "bridge").Logger(),
	}
	s.handlers = map[string]handler{
		"unlock":                s.unlock,
		"sign":                  s.sign,
		"addresses":             s.addresses,
		"clearSession":          s.clearSession,
		"sessionStatus":         s.sessionStatus,
		"setItem":               s.setItem,
		"getItem":               s.getItem,
		"hasItem":               s.hasItem,
		"removeItem":            s.removeItem,
		"authenticate":          s.authenticate,
		"clearBiometricSession": s.clearBiometricSession,
		"isAvailable":           s.isAvailable,
	}
	return s
}

// Serve reads one request per line from r and writes one response per line
// to w until r is exhausted or ctx is done. Calls run strictly in order.
// Serve owns r: if it is an io.Closer it is closed on return, which also
// releases the reading goroutine when it is blocked on input.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	lines := make(chan []byte)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), MaxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-done:
				crypto.ClearBytes(line)
				return
			}
		}
		errc <- scanner.Err()
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return ctx.Err()
				}
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			resp := s.handleLine(ctx, line)
			crypto.ClearBytes(line)
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, fmt.Errorf("%w: malformed request", core.ErrInvalidRequest))
	}
	return s.Dispatch(ctx, &req)
}

// Dispatch runs a single request. Concurrent callers are serialized.
func (s *Server) Dispatch(ctx context.Context, req *Request) *Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handlers[req.Method]
	if !ok {
		return errorResponse(req.ID, fmt.Errorf("%w: unknown method %q", core.ErrInvalidRequest, req.Method))
	}

	result, err := h(ctx, req.Params)
	if err != nil {
		s.log.Debug().Str("method", req.Method).Str("kind", core.KindOf(err).String()).Msg("Call failed")
		return errorResponse(req.ID, err)
	}
	s.log.Debug().Str("method", req.Method).Msg("Call succeeded")
	return &Response{ID: req.ID, Result: result}
}

func errorResponse(id json.RawMessage, err error) *Response {
	msg := err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = "canceled"
	}
	return &Response{
		ID: id,
		Error: &Error{
			Code:    core.KindOf(err).String(),
			Message: msg,
		},
	}
}

func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: bad params: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

func decodeVault(raw json.RawMessage) (*vault.Envelope, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: vault required", core.ErrInvalidRequest)
	}
	return vault.DecodeEnvelope(raw)
}
