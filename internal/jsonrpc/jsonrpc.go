// Package jsonrpc defines the JSON-RPC 2.0 envelope types shared by every
// transport adapter.
//
// JSON-RPC 2.0 Spec: https://www.jsonrpc.org/specification
//
// DESIGN: The router produces one Response per Request regardless of which
// transport carried it; the types here are the only wire contract between
// the two layers.
package jsonrpc

import "encoding/json"

// Version is the only protocol version we speak.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one inbound JSON-RPC message.
// ID may be a string, a number, or absent (notification).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no ID and therefore
// must not be answered.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is one outbound JSON-RPC message. Exactly one of Result or Error
// is set.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResult builds a success response bound to the originating request ID.
func NewResult(id any, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error response bound to the originating request ID.
func NewError(id any, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

// Encode marshals the response. Marshal failures are converted into a bare
// internal error frame so a transport always has bytes to send.
func (r *Response) Encode() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		fallback := &Response{
			JSONRPC: Version,
			ID:      r.ID,
			Error:   &Error{Code: CodeInternalError, Message: "internal error"},
		}
		data, _ = json.Marshal(fallback)
	}
	return data
}
