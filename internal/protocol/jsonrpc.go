// ABOUTME: JSON-RPC 2.0 message types and error codes for the stdio gateway.
// ABOUTME: Requests and responses are line-delimited JSON objects correlated by id.

package protocol

import "encoding/json"

// Standard JSON-RPC error codes, plus server-namespaced codes in the
// -32000..-32099 range.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeResourceNotFound = -32001
	CodePermissionDenied = -32002
)

// Request is a JSON-RPC 2.0 request. A request without an id is a
// notification and receives no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error is
// set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// callToolParams are the params of a tools/call request.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`

	// Optional editor context forwarded into the invocation.
	CurrentFile    string `json:"currentFile,omitempty"`
	SelectionStart int    `json:"selectionStart,omitempty"`
	SelectionEnd   int    `json:"selectionEnd,omitempty"`
	UserIntent     string `json:"userIntent,omitempty"`
}

// readResourceParams are the params of a resources/read request.
type readResourceParams struct {
	URI string `json:"uri"`
}

// getPromptParams are the params of a prompts/get request.
type getPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// cancelledParams are the params of a notifications/cancelled notification.
type cancelledParams struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}

// toolInfo is one entry in a tools/list result.
type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}
