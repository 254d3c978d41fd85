package tools

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindParse      Kind = "parse"
	KindValidation Kind = "validation"
	KindSyntax     Kind = "syntax"
	KindEngine     Kind = "engine"
	KindInternal   Kind = "internal"
)

// ToolError is a failure of one request. Every kind reaches the wire with
// the same code; Kind only feeds logs and the journal.
type ToolError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func NewValidationError(param string) *ToolError {
	return &ToolError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("%s parameter is required", param),
	}
}

func NewSyntaxError(err error) *ToolError {
	return &ToolError{Kind: KindSyntax, Message: err.Error(), Err: err}
}

func NewEngineError(message string, err error) *ToolError {
	return &ToolError{Kind: KindEngine, Message: message, Err: err}
}

func NewInternalError(err error) *ToolError {
	return &ToolError{
		Kind:    KindInternal,
		Message: fmt.Sprintf("internal error: %v", err),
		Err:     err,
	}
}

// KindOf classifies err. Errors that are not a *ToolError count as internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}
