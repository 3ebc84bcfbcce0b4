// ABOUTME: Stdio protocol gateway reading line-delimited JSON-RPC requests.
// ABOUTME: Routes methods, runs tool calls concurrently, and writes exactly one response per request.

package protocol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/2389/kforge/internal/audit"
	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/dispatch"
	"github.com/2389/kforge/internal/prompt"
	"github.com/2389/kforge/internal/resource"
)

// protocolVersion is the protocol revision advertised in initialize
// responses.
const protocolVersion = "2024-11-05"

// MaxMessageSize caps a single request line (1MB).
const MaxMessageSize = 1 << 20

// Config holds the gateway's collaborators.
type Config struct {
	Executor      *dispatch.Executor
	Registry      *capability.Registry
	Resources     *resource.FS
	Prompts       *prompt.Catalog
	Hook          *audit.Hook
	Logger        *slog.Logger
	ServerName    string
	ServerVersion string
	ProjectRoot   string
}

// Gateway is the protocol front door. It is stateless between requests
// apart from ambient server configuration and the table of in-flight
// cancellable calls.
type Gateway struct {
	executor      *dispatch.Executor
	registry      *capability.Registry
	resources     *resource.FS
	prompts       *prompt.Catalog
	hook          *audit.Hook
	logger        *slog.Logger
	serverName    string
	serverVersion string
	projectRoot   string

	out     io.Writer
	writeMu sync.Mutex

	// inflight keys by request id; each id maps to every call still running
	// under it, so a client reusing an id cannot orphan an earlier call's
	// cancel func. Tokens tell a call's own cleanup from its twins'.
	inflightMu sync.Mutex
	inflight   map[string][]inflightCall
	nextToken  uint64

	wg sync.WaitGroup
}

type inflightCall struct {
	token  uint64
	cancel context.CancelFunc
}

// NewGateway creates a gateway writing responses to out.
func NewGateway(cfg Config, out io.Writer) (*Gateway, error) {
	if cfg.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Resources == nil {
		return nil, errors.New("resource fs is required")
	}
	if cfg.Prompts == nil {
		return nil, errors.New("prompt catalog is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.ServerName
	if name == "" {
		name = "kforge"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}
	return &Gateway{
		executor:      cfg.Executor,
		registry:      cfg.Registry,
		resources:     cfg.Resources,
		prompts:       cfg.Prompts,
		hook:          cfg.Hook,
		logger:        logger.With("component", "gateway"),
		serverName:    name,
		serverVersion: version,
		projectRoot:   cfg.ProjectRoot,
		out:           out,
		inflight:      make(map[string][]inflightCall),
	}, nil
}

// errLineTooLong marks a request line over MaxMessageSize. The line is
// consumed and answered with a parse error; the stream keeps going.
var errLineTooLong = errors.New("request line exceeds maximum message size")

// Run reads requests from in until EOF or ctx cancellation. Clean EOF
// drains in-flight calls and returns nil. An oversized line gets a
// parse-error response and the loop continues: a single bad request must
// never take down the long-lived process.
func (g *Gateway) Run(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReaderSize(in, 64*1024)

	var readErr error
	for readErr == nil {
		if ctx.Err() != nil {
			break
		}
		var line []byte
		line, readErr = readLine(reader)
		if errors.Is(readErr, errLineTooLong) {
			g.logger.Warn("dropping oversized request line")
			g.writeError(nil, CodeParseError, "parse error: message exceeds maximum size", nil)
			readErr = nil
			continue
		}
		if len(line) > 0 {
			g.handleMessage(ctx, line)
		}
	}

	g.wg.Wait()

	if readErr != nil && !errors.Is(readErr, io.EOF) && ctx.Err() == nil {
		return fmt.Errorf("reading protocol stream: %w", readErr)
	}
	g.logger.Info("protocol stream closed")
	return nil
}

// readLine reads one newline-terminated line, enforcing MaxMessageSize.
// The final line before EOF may lack a newline; it is returned alongside
// io.EOF. An over-long line is drained to its end and reported as
// errLineTooLong so the caller can answer it and move on.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)

		if len(line) > MaxMessageSize {
			switch {
			case err == nil, errors.Is(err, io.EOF):
				return nil, errLineTooLong
			case errors.Is(err, bufio.ErrBufferFull):
				if derr := discardLine(r); derr != nil && !errors.Is(derr, io.EOF) {
					return nil, derr
				}
				return nil, errLineTooLong
			}
		}

		switch {
		case err == nil:
			line = bytes.TrimSuffix(line, []byte("\n"))
			return bytes.TrimSuffix(line, []byte("\r")), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return line, err
		}
	}
}

// discardLine consumes input up to and including the next newline.
func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if err == nil || !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// handleMessage parses and routes one request. It never lets an error
// escape: every failure path ends in a response (or, for notifications, a
// log line).
func (g *Gateway) handleMessage(ctx context.Context, msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic while handling request", "panic", r)
			g.writeError(nil, CodeInternalError, "internal error", nil)
		}
	}()

	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		g.writeError(nil, CodeParseError, "parse error", nil)
		return
	}
	if req.JSONRPC != "2.0" {
		g.writeError(req.ID, CodeInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}
	if req.Method == "" {
		g.writeError(req.ID, CodeInvalidParams, "method is required", nil)
		return
	}

	g.logger.Debug("request", "method", req.Method, "id", string(req.ID))

	if req.IsNotification() {
		g.handleNotification(req)
		return
	}

	switch req.Method {
	case "initialize":
		g.handleInitialize(req)
	case "ping":
		g.writeResult(req.ID, map[string]any{})
	case "tools/list":
		g.handleToolsList(req)
	case "tools/call":
		g.handleToolsCall(ctx, req)
	case "resources/list":
		g.handleResourcesList(req)
	case "resources/read":
		g.handleResourcesRead(ctx, req)
	case "roots/list":
		g.writeResult(req.ID, map[string]any{"roots": g.resources.Roots()})
	case "prompts/list":
		g.handlePromptsList(req)
	case "prompts/get":
		g.handlePromptsGet(req)
	default:
		g.writeError(req.ID, CodeMethodNotFound, "method not found", nil)
	}
}

// handleNotification processes id-less requests. Only cancellation is
// acted on; anything else is accepted and dropped.
func (g *Gateway) handleNotification(req Request) {
	if req.Method != "notifications/cancelled" {
		g.logger.Debug("dropped notification", "method", req.Method)
		return
	}

	var params cancelledParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params.RequestID) == 0 {
		g.logger.Warn("malformed cancellation notification")
		return
	}

	g.inflightMu.Lock()
	calls := g.inflight[string(params.RequestID)]
	g.inflightMu.Unlock()

	if len(calls) == 0 {
		// Already finished, or never existed. Either way a no-op: late
		// cancellation must not corrupt anything.
		g.logger.Debug("cancellation for unknown request", "request_id", string(params.RequestID))
		return
	}
	g.logger.Info("cancelling in-flight call", "request_id", string(params.RequestID), "reason", params.Reason)
	for _, c := range calls {
		c.cancel()
	}
}

func (g *Gateway) handleInitialize(req Request) {
	g.writeResult(req.ID, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
			"resources": map[string]any{
				"subscribe":   false,
				"listChanged": false,
			},
			"prompts": map[string]any{},
			"logging": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    g.serverName,
			"version": g.serverVersion,
		},
	})
}

func (g *Gateway) handleToolsList(req Request) {
	descriptors := g.registry.List()
	tools := make([]toolInfo, len(descriptors))
	for i, d := range descriptors {
		var schema any = d.InputSchema
		if d.InputSchema == nil {
			schema = map[string]any{"type": "object"}
		}
		tools[i] = toolInfo{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		}
	}
	g.writeResult(req.ID, map[string]any{"tools": tools})
}

// handleToolsCall runs the invocation as its own goroutine so a
// long-running build never blocks the read loop. The request id is
// registered for cooperative cancellation until the response is written.
func (g *Gateway) handleToolsCall(ctx context.Context, req Request) {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			g.writeError(req.ID, CodeInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.Name == "" {
		g.writeError(req.ID, CodeInvalidParams, "tool name is required", nil)
		return
	}

	callCtx, cancel := context.WithCancel(ctx)
	key := string(req.ID)
	g.inflightMu.Lock()
	g.nextToken++
	token := g.nextToken
	g.inflight[key] = append(g.inflight[key], inflightCall{token: token, cancel: cancel})
	g.inflightMu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			g.removeInflight(key, token)
			cancel()

			if r := recover(); r != nil {
				g.logger.Error("panic in tool call", "tool", params.Name, "panic", r)
				g.writeError(req.ID, CodeInternalError, "internal error", nil)
			}
		}()

		inv := capability.Invocation{
			ProjectRoot:    g.projectRoot,
			CurrentFile:    params.CurrentFile,
			SelectionStart: params.SelectionStart,
			SelectionEnd:   params.SelectionEnd,
			UserIntent:     params.UserIntent,
		}

		env, err := g.executor.Execute(callCtx, params.Name, params.Arguments, inv)
		if err != nil {
			switch {
			case errors.Is(err, capability.ErrNotFound):
				g.writeError(req.ID, CodeInvalidParams, err.Error(), nil)
			case errors.Is(err, capability.ErrInvalidArguments):
				g.writeError(req.ID, CodeInvalidParams, err.Error(), nil)
			default:
				g.writeError(req.ID, CodeInternalError, "tool execution failed", nil)
			}
			return
		}
		g.writeResult(req.ID, env)
	}()
}

// removeInflight drops one finished call from the cancellation table,
// leaving any other calls registered under the same id intact.
func (g *Gateway) removeInflight(key string, token uint64) {
	g.inflightMu.Lock()
	defer g.inflightMu.Unlock()

	calls := g.inflight[key]
	for i, c := range calls {
		if c.token == token {
			calls = append(calls[:i], calls[i+1:]...)
			break
		}
	}
	if len(calls) == 0 {
		delete(g.inflight, key)
		return
	}
	g.inflight[key] = calls
}

func (g *Gateway) handleResourcesList(req Request) {
	infos := g.resources.List()
	if infos == nil {
		infos = []resource.Info{}
	}
	g.writeResult(req.ID, map[string]any{"resources": infos})
}

func (g *Gateway) handleResourcesRead(ctx context.Context, req Request) {
	var params readResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		g.writeError(req.ID, CodeInvalidParams, "uri is required", nil)
		return
	}

	contents, err := g.resources.ReadURI(params.URI)
	if err != nil {
		switch {
		case errors.Is(err, resource.ErrPermission):
			if g.hook != nil {
				g.hook.SecurityViolation(ctx, "resources/read outside allowed roots: "+params.URI)
			}
			g.writeError(req.ID, CodePermissionDenied, "permission denied", nil)
		case errors.Is(err, resource.ErrUnsupportedScheme):
			g.writeError(req.ID, CodeInvalidParams, err.Error(), nil)
		case errors.Is(err, resource.ErrNotFound):
			g.writeError(req.ID, CodeResourceNotFound, "resource not found", nil)
		default:
			g.writeError(req.ID, CodeInternalError, "could not read resource", nil)
		}
		return
	}

	if g.hook != nil {
		g.hook.FileAccess(ctx, contents.URI)
	}
	g.writeResult(req.ID, map[string]any{"contents": []resource.Contents{*contents}})
}

func (g *Gateway) handlePromptsList(req Request) {
	g.writeResult(req.ID, map[string]any{"prompts": g.prompts.List()})
}

func (g *Gateway) handlePromptsGet(req Request) {
	var params getPromptParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		g.writeError(req.ID, CodeInvalidParams, "prompt name is required", nil)
		return
	}

	msgs, err := g.prompts.Get(params.Name, params.Arguments)
	if err != nil {
		g.writeError(req.ID, CodeInvalidParams, err.Error(), nil)
		return
	}
	g.writeResult(req.ID, map[string]any{"messages": msgs})
}

// writeResult emits a successful response for id.
func (g *Gateway) writeResult(id json.RawMessage, result any) {
	g.write(Response{JSONRPC: "2.0", ID: normalizeID(id), Result: result})
}

// writeError emits an error response. A nil id serializes as null, per the
// parse-error convention.
func (g *Gateway) writeError(id json.RawMessage, code int, message string, data any) {
	g.write(Response{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error:   &Error{Code: code, Message: message, Data: data},
	})
}

// write serializes one response as a single line. The mutex keeps
// concurrent tool-call responses from interleaving on the stream.
func (g *Gateway) write(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		g.logger.Error("could not encode response", "error", err)
		return
	}
	data = append(data, '\n')

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if _, err := g.out.Write(data); err != nil {
		g.logger.Warn("could not write response", "error", err)
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
