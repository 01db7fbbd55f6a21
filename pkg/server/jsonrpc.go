package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/flowlibre/pkg/plugin"
	"github.com/dasmlab/flowlibre/pkg/query"
)

const (
	jsonrpcVersion = "2.0"

	methodInitialize    = "initialize"
	methodQuery         = "query"
	methodAccept        = "accept"
	methodCancelRequest = "$/cancelRequest"
	methodChangeQuery   = "ChangeQuery"

	// maxMessageSize bounds a single line read from the host.
	maxMessageSize = 1 << 20
)

// JSON-RPC error codes
const (
	codeParseError       = -32700
	codeInvalidRequest   = -32600
	codeMethodNotFound   = -32601
	codeInvalidParams    = -32602
	codeInternalError    = -32603
	codeNotInitialized   = -32002
	codeRequestCancelled = -32800
)

// Service is what the bridge drives: the plugin lifecycle plus accept actions.
type Service interface {
	plugin.Plugin
	Accept(ctx context.Context, action query.Action) (bool, error)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *rpcRequest) isNotification() bool {
	return len(r.ID) == 0 || bytes.Equal(r.ID, []byte("null"))
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type initializeParams struct {
	ActionKeyword string `json:"actionKeyword"`
}

type queryParams struct {
	Search string `json:"search"`
}

type cancelParams struct {
	ID json.RawMessage `json:"id"`
}

type changeQueryParams struct {
	Query   string `json:"query"`
	Requery bool   `json:"requery"`
}

// wireResult is a result as the launcher expects it.
type wireResult struct {
	Title         string      `json:"Title"`
	SubTitle      string      `json:"SubTitle"`
	IcoPath       string      `json:"IcoPath,omitempty"`
	Score         int         `json:"Score"`
	JSONRPCAction *wireAction `json:"JsonRPCAction,omitempty"`
}

type wireAction struct {
	Method     string   `json:"method"`
	Parameters []string `json:"parameters"`
}

type acceptResult struct {
	Hide bool `json:"hide"`
}

// RPCServer bridges a launcher host speaking line-delimited JSON-RPC 2.0 to a
// Service. Every request runs in its own goroutine; responses may therefore be
// written out of order.
type RPCServer struct {
	svc    Service
	in     io.Reader
	out    io.Writer
	logger *logrus.Logger

	writeMu sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc

	wg sync.WaitGroup
}

// NewRPCServer creates a bridge reading requests from in and writing to out.
func NewRPCServer(svc Service, in io.Reader, out io.Writer, logger *logrus.Logger) *RPCServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &RPCServer{
		svc:      svc,
		in:       in,
		out:      out,
		logger:   logger,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Serve reads requests until the input ends or ctx is cancelled. At end of
// input outstanding requests are allowed to finish; on cancellation they are
// cancelled. Serve always waits for them before returning.
func (s *RPCServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 64<<10), maxMessageSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	s.logger.Info("JSON-RPC bridge listening on stdio")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				s.logger.WithError(err).Error("Failed to read from host")
				return fmt.Errorf("read host input: %w", err)
			}
			s.logger.Info("Host closed input, stopping bridge")
			// Let requests already received finish before tearing down
			s.wg.Wait()
			return nil
		case line := <-lines:
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			s.dispatch(ctx, line)
		}
	}
}

// ChangeQuery implements plugin.Host by notifying the launcher.
func (s *RPCServer) ChangeQuery(_ context.Context, text string, requery bool) error {
	return s.write(rpcNotification{
		JSONRPC: jsonrpcVersion,
		Method:  methodChangeQuery,
		Params:  changeQueryParams{Query: text, Requery: requery},
	})
}

func (s *RPCServer) dispatch(ctx context.Context, line []byte) {
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.WithError(err).Warn("Received malformed JSON-RPC message")
		s.reply(json.RawMessage("null"), nil, &rpcError{Code: codeParseError, Message: "parse error"})
		return
	}
	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		if !req.isNotification() {
			s.reply(req.ID, nil, &rpcError{Code: codeInvalidRequest, Message: "invalid request"})
		}
		return
	}

	switch req.Method {
	case methodCancelRequest:
		s.cancel(req.Params)
	case methodInitialize, methodQuery, methodAccept:
		s.spawn(ctx, req)
	default:
		if req.isNotification() {
			s.logger.WithField("method", req.Method).Debug("Ignoring unknown notification")
			return
		}
		s.reply(req.ID, nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method})
	}
}

// spawn runs req in its own goroutine with a context the host can cancel.
func (s *RPCServer) spawn(ctx context.Context, req rpcRequest) {
	reqCtx, cancel := context.WithCancel(ctx)
	key := string(req.ID)

	if !req.isNotification() {
		s.inflightMu.Lock()
		s.inflight[key] = cancel
		s.inflightMu.Unlock()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			cancel()
			if !req.isNotification() {
				s.inflightMu.Lock()
				delete(s.inflight, key)
				s.inflightMu.Unlock()
			}
		}()

		log := s.logger.WithFields(logrus.Fields{
			"trace_id": uuid.NewString(),
			"method":   req.Method,
		})
		start := time.Now()

		result, rpcErr := s.handle(reqCtx, req, log)

		log.WithFields(logrus.Fields{
			"duration_ms": time.Since(start).Milliseconds(),
			"failed":      rpcErr != nil,
		}).Debug("Handled request")

		if req.isNotification() {
			return
		}
		s.reply(req.ID, result, rpcErr)
	}()
}

func (s *RPCServer) handle(ctx context.Context, req rpcRequest, log *logrus.Entry) (any, *rpcError) {
	switch req.Method {
	case methodInitialize:
		var params initializeParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		if err := s.svc.Initialize(ctx, plugin.Metadata{ActionKeyword: params.ActionKeyword}); err != nil {
			log.WithError(err).Error("Plugin initialization failed")
			return nil, &rpcError{Code: codeInternalError, Message: err.Error()}
		}
		return struct{}{}, nil

	case methodQuery:
		var params queryParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		results, err := s.svc.Query(ctx, params.Search)
		switch {
		case err == nil:
			return toWire(results), nil
		case query.IsCancelled(err):
			log.Debug("Query cancelled")
			return nil, &rpcError{Code: codeRequestCancelled, Message: "request cancelled"}
		case errors.Is(err, plugin.ErrNotInitialized):
			return nil, &rpcError{Code: codeNotInitialized, Message: err.Error()}
		default:
			log.WithError(err).WithField("search", params.Search).Error("Query failed")
			return nil, &rpcError{Code: codeInternalError, Message: err.Error()}
		}

	case methodAccept:
		var params []string
		if err := decodeParams(req.Params, &params); err != nil || len(params) != 1 {
			return nil, &rpcError{Code: codeInvalidParams, Message: "accept expects one query parameter"}
		}
		hide, err := s.svc.Accept(ctx, query.Action{Query: params[0]})
		if err != nil {
			log.WithError(err).Error("Accept action failed")
			return nil, &rpcError{Code: codeInternalError, Message: err.Error()}
		}
		return acceptResult{Hide: hide}, nil
	}

	return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
}

func (s *RPCServer) cancel(raw json.RawMessage) {
	var params cancelParams
	if err := decodeParams(raw, &params); err != nil || len(params.ID) == 0 {
		s.logger.WithError(err).Warn("Ignoring malformed cancel request")
		return
	}

	s.inflightMu.Lock()
	cancel, ok := s.inflight[string(params.ID)]
	s.inflightMu.Unlock()

	if ok {
		cancel()
	}
}

func (s *RPCServer) reply(id json.RawMessage, result any, rpcErr *rpcError) {
	resp := rpcResponse{JSONRPC: jsonrpcVersion, ID: id, Error: rpcErr}
	if rpcErr == nil {
		resp.Result = result
	}
	if err := s.write(resp); err != nil {
		s.logger.WithError(err).Error("Failed to write response to host")
	}
}

func (s *RPCServer) write(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func toWire(results []query.Result) []wireResult {
	out := make([]wireResult, 0, len(results))
	for _, r := range results {
		w := wireResult{
			Title:    r.Title,
			SubTitle: r.SubTitle,
			IcoPath:  r.IcoPath,
			Score:    r.Score,
		}
		if r.Action != nil {
			w.JSONRPCAction = &wireAction{Method: methodAccept, Parameters: []string{r.Action.Query}}
		}
		out = append(out, w)
	}
	return out
}
