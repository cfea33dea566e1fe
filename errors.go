package mermaid

import "strings"

// ErrorKind classifies facade errors.
type ErrorKind int

const (
	// KindInit: the script engine or its environment could not be set up.
	KindInit ErrorKind = iota + 1
	// KindRender: script, layout, SVG or raster failure for one render.
	KindRender
	// KindInvalidFormat: an output format token was not recognized.
	KindInvalidFormat
	// KindIO: writing output failed.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindInit:
		return "init error"
	case KindRender:
		return "render error"
	case KindInvalidFormat:
		return "invalid format"
	case KindIO:
		return "io error"
	}
	return "unknown error"
}

// Error is returned by every facade operation.
type Error struct {
	Kind ErrorKind
	Op   string // operation, e.g. "render"
	Msg  string // human-readable detail
	Err  error  // underlying cause, may be nil
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInit          = &Error{Kind: KindInit}
	ErrRender        = &Error{Kind: KindRender}
	ErrInvalidFormat = &Error{Kind: KindInvalidFormat}
	ErrIO            = &Error{Kind: KindIO}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("mermaid: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind ErrorKind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}
