// Package errs holds the error taxonomy shared by the rendering core.
package errs

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

type Kind int

const (
	General Kind = iota
	NullPointer
	NotInitialized
	IndexOutOfBounds
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case General:
		return "general"
	case NullPointer:
		return "null pointer"
	case NotInitialized:
		return "not initialized"
	case IndexOutOfBounds:
		return "index out of bounds"
	case OutOfMemory:
		return "out of memory"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrGeneral          = &Error{Kind: General}
	ErrNullPointer      = &Error{Kind: NullPointer}
	ErrNotInitialized   = &Error{Kind: NotInitialized}
	ErrIndexOutOfBounds = &Error{Kind: IndexOutOfBounds}
	ErrOutOfMemory      = &Error{Kind: OutOfMemory}
)

func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// MarshalLogObject lets the logger record the structured fields.
func (e *Error) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", e.Kind.String())
	if e.Op != "" {
		enc.AddString("op", e.Op)
	}
	if e.Msg != "" {
		enc.AddString("msg", e.Msg)
	}
	if e.Err != nil {
		enc.AddString("cause", e.Err.Error())
	}
	return nil
}

// KindOf reports the kind of the first *Error in err's chain, General otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return General
}
