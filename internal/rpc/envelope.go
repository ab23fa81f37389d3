package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is stamped on every envelope exchanged over the wire.
const Version = "2.0"

// Reserved error codes.
const (
	// CodeParseError reports a line that could not be parsed as a request;
	// the response id is null because no id could be read.
	CodeParseError = -32700
	// CodeMethodNotFound reports an unrecognized method name.
	CodeMethodNotFound = -32601
	// CodeInvalidParams reports a params payload the handler could not decode.
	CodeInvalidParams = -32602
	// CodeHandlerError reports an uncaught error from a handler or user callable.
	CodeHandlerError = -32000
)

// Request is one inbound envelope. Params stays raw so each handler can
// decode its own shape.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is one outbound envelope. Exactly one of Result and Error is set;
// ID echoes the request id unchanged, including null.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is a coded protocol error payload. It satisfies the error interface
// so handlers can return it directly.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds a coded protocol error.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Success builds a result envelope echoing id.
func Success(id, result any) Response {
	return Response{JSONRPC: Version, ID: id, Result: result}
}

// Failure builds an error envelope echoing id.
func Failure(id any, code int, message string) Response {
	return Response{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message}}
}
