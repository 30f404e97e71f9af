// Package errcode provides layered error codes.
// Code format: MMBBBB (MM = 2-digit module code, BBBB = 4-digit business code).
package errcode

import (
	"fmt"
	"maps"
)

// LayeredError is an error carrying a module-scoped numeric code,
// a message key, context data and an optional cause.
type LayeredError struct {
	module string
	code   int // MMBBBB, e.g. 600001
	msgKey string
	msg    string
	data   map[string]any
	cause  error
}

// New creates a layered error.
// moduleCode is 10-99, businessCode 1-9999.
func New(moduleCode, businessCode int, module, msgKey, msg string) *LayeredError {
	return &LayeredError{
		module: module,
		code:   moduleCode*10000 + businessCode,
		msgKey: msgKey,
		msg:    msg,
		data:   make(map[string]any),
	}
}

func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *LayeredError) Code() int {
	return e.code
}

func (e *LayeredError) Module() string {
	return e.module
}

func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

func (e *LayeredError) Message() string {
	return e.msg
}

func (e *LayeredError) Data() map[string]any {
	return e.data
}

func (e *LayeredError) Cause() error {
	return e.cause
}

func (e *LayeredError) Unwrap() error {
	return e.cause
}

// WithMsgf returns a copy with a formatted message.
func (e *LayeredError) WithMsgf(format string, args ...any) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// WithData returns a copy carrying one more context value.
func (e *LayeredError) WithData(key string, value any) *LayeredError {
	clone := *e
	clone.data = maps.Clone(e.data)
	if clone.data == nil {
		clone.data = make(map[string]any, 1)
	}
	clone.data[key] = value
	return &clone
}

// Wrap returns a copy with cause attached. A nil cause returns e unchanged.
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Wrapf wraps cause and replaces the message.
func (e *LayeredError) Wrapf(cause error, format string, args ...any) *LayeredError {
	clone := e.WithMsgf(format, args...)
	clone.cause = cause
	return clone
}

// Is matches any LayeredError with the same code, so errors.Is works
// against the package-level sentinels after WithMsgf or Wrap.
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *LayeredError) String() string {
	if e.cause != nil {
		return fmt.Sprintf("LayeredError{code:%d, module:%s, msg:%s, cause:%v}", e.code, e.module, e.msg, e.cause)
	}
	return fmt.Sprintf("LayeredError{code:%d, module:%s, msg:%s}", e.code, e.module, e.msg)
}
