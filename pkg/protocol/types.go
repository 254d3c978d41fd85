package protocol

import "encoding/json"

const (
	Version = "2.0"

	// CodeFailure is the only error code the worker puts on the wire.
	// Failures are told apart by message text.
	CodeFailure = -1
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response always carries an id; a nil ID encodes as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewResult builds a success response. A nil result is sent as null.
func NewResult(id json.RawMessage, result interface{}) *Response {
	if result == nil {
		result = json.RawMessage("null")
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}
}

func NewError(id json.RawMessage, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error: &Error{
			Code:    CodeFailure,
			Message: message,
		},
	}
}

// IDString renders a raw id for logs and the journal. Absent ids render as "null".
func IDString(id json.RawMessage) string {
	if len(id) == 0 {
		return "null"
	}
	return string(id)
}
