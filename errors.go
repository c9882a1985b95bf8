// Package flowgraph builds and runs dataflow graphs of blocks connected by
// typed sample streams and asynchronous message ports.
package flowgraph

import (
	"errors"
	"fmt"
)

// Error is a structured flowgraph error: the operation that failed, the
// block and port it concerns (when applicable), and a high-level code for
// programmatic matching via IsCode.
type Error struct {
	Op      string // operation that failed, e.g. "connect", "work", "validate"
	Block   string // block name (empty if not applicable)
	Port    string // port name (empty if not applicable)
	Code    ErrorCode
	Msg     string
	Inner   error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Block != "" {
		parts = append(parts, fmt.Sprintf("block=%s", e.Block))
	}
	if e.Port != "" {
		parts = append(parts, fmt.Sprintf("port=%s", e.Port))
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("flowgraph: %s", msg)
	}
	return fmt.Sprintf("flowgraph: %s (%s)", msg, parts[0])
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is a high-level error category.
type ErrorCode string

const (
	ErrCodeInvalidTopology ErrorCode = "invalid topology"
	ErrCodePortNotFound    ErrorCode = "port not found"
	ErrCodeTypeMismatch    ErrorCode = "stream type mismatch"
	ErrCodeDuplicateEdge   ErrorCode = "duplicate edge"
	ErrCodeBufferAlloc     ErrorCode = "buffer allocation failed"
	ErrCodeBlockFailed     ErrorCode = "block failed"
	ErrCodeAlreadyStarted  ErrorCode = "flowgraph already started"
	ErrCodeNotRunning      ErrorCode = "flowgraph not running"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewBlockError creates an error scoped to a block.
func NewBlockError(op, block string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Block: block, Code: code, Msg: msg}
}

// NewPortError creates an error scoped to a block port.
func NewPortError(op, block, port string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Block: block, Port: port, Code: code, Msg: msg}
}

// WrapError wraps err with flowgraph context, preserving an existing
// structured error's fields if err already is one.
func WrapError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return &Error{Op: op, Block: fe.Block, Port: fe.Port, Code: fe.Code, Msg: fe.Msg, Inner: fe.Inner}
	}
	return &Error{Op: op, Code: ErrCodeBlockFailed, Msg: err.Error(), Inner: err}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}
