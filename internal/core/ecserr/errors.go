// Package ecserr defines the error taxonomy shared by the store packages.
package ecserr

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/zeusync/kindstore/pkg/bitset"
	"github.com/zeusync/kindstore/pkg/compact"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrTypeMismatch    = errors.New("component type mismatch")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEntityExists    = errors.New("entity already registered")
	ErrNoFactory       = errors.New("no entity factory configured")

	// ErrOutOfRange is the range error of the container packages; both
	// compact and bitset failures match it through errors.Is.
	ErrOutOfRange = compact.ErrOutOfRange
)

// Code classifies an Error.
type Code int

const (
	CodeUnknown Code = iota
	CodeNotFound
	CodeTypeMismatch
	CodeInvalidArgument
	CodeOutOfRange
	CodeEntityExists
	CodeNoFactory
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeTypeMismatch:
		return "type_mismatch"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeOutOfRange:
		return "out_of_range"
	case CodeEntityExists:
		return "entity_exists"
	case CodeNoFactory:
		return "no_factory"
	default:
		return "unknown"
	}
}

var sentinels = map[Code]error{
	CodeNotFound:        ErrNotFound,
	CodeTypeMismatch:    ErrTypeMismatch,
	CodeInvalidArgument: ErrInvalidArgument,
	CodeOutOfRange:      ErrOutOfRange,
	CodeEntityExists:    ErrEntityExists,
	CodeNoFactory:       ErrNoFactory,
}

// Error carries a Code, a message and optional key/value context.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

// New returns an Error whose cause is the sentinel for code.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   sentinels[code],
		Context: make(map[string]any),
	}
}

// Wrap returns an Error with an explicit cause.
func Wrap(code Code, message string, cause error) *Error {
	e := New(code, message)
	if cause != nil {
		e.Cause = cause
	}
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of e's code even when Cause is something else.
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Code]; ok && s == target {
		return true
	}
	return e.Code == CodeOutOfRange && target == bitset.ErrOutOfRange
}

// WithContext attaches a key/value pair and returns e.
func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// Fields returns a copy of the attached context.
func (e *Error) Fields() map[string]any {
	return maps.Clone(e.Context)
}

// GetCode extracts the Code of err, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for code, s := range sentinels {
		if errors.Is(err, s) {
			return code
		}
	}
	if errors.Is(err, bitset.ErrOutOfRange) {
		return CodeOutOfRange
	}
	return CodeUnknown
}

// NotFound reports a missing entity, component, type binding or query.
func NotFound(what string, key any) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s %v", what, key)).WithContext(what, key)
}

// TypeMismatch reports a kind bound to a different Go type than requested.
func TypeMismatch(kind any, bound, requested fmt.Stringer) *Error {
	return New(CodeTypeMismatch, fmt.Sprintf("kind %v is bound to %v, not %v", kind, bound, requested)).
		WithContext("kind", kind).
		WithContext("bound", bound.String()).
		WithContext("requested", requested.String())
}

// InvalidArgument reports a rejected argument.
func InvalidArgument(format string, args ...any) *Error {
	return New(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

// OutOfRange reports an index, length or capacity outside its valid range.
func OutOfRange(format string, args ...any) *Error {
	return New(CodeOutOfRange, fmt.Sprintf(format, args...))
}
