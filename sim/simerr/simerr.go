// Package simerr defines the typed failure outcomes shared by the session core,
// the graph builder and the PIM descriptor parser.
//
// Every structural inconsistency in a command script, network graph or
// descriptor stream is reported as an *Error carrying a Kind. Hosts decide
// whether to abort or log; the library never terminates the process.
package simerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	MalformedCommand
	UnknownOperator
	UnknownAttribute
	DuplicateBinding
	DuplicateEdge
	ParameterMismatch
	CapacityExceeded
	MissingKernel
	UnboundTensor
	ShapeMismatch
	MalformedGraph
	MalformedDescriptor
	UndefinedMarker
	Stalled
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	MalformedCommand:    "malformed command",
	UnknownOperator:     "unknown operator",
	UnknownAttribute:    "unknown attribute",
	DuplicateBinding:    "duplicate binding",
	DuplicateEdge:       "duplicate edge",
	ParameterMismatch:   "parameter mismatch",
	CapacityExceeded:    "capacity exceeded",
	MissingKernel:       "missing kernel",
	UnboundTensor:       "unbound tensor",
	ShapeMismatch:       "shape mismatch",
	MalformedGraph:      "malformed graph",
	MalformedDescriptor: "malformed descriptor",
	UndefinedMarker:     "undefined marker",
	Stalled:             "stalled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Op names the operation that failed
// (e.g. "graph.Build", "pim.Parse"), Msg carries the detail.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Msg == "":
		return e.Kind.String()
	case e.Op == "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Is reports whether target is the sentinel for e's Kind, so callers can write
// errors.Is(err, simerr.ErrDuplicateEdge).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Kind == e.Kind
}

// New builds a classified error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUnknown, false
}

// Sentinels for errors.Is.
var (
	ErrMalformedCommand    = &Error{Kind: MalformedCommand}
	ErrUnknownOperator     = &Error{Kind: UnknownOperator}
	ErrUnknownAttribute    = &Error{Kind: UnknownAttribute}
	ErrDuplicateBinding    = &Error{Kind: DuplicateBinding}
	ErrDuplicateEdge       = &Error{Kind: DuplicateEdge}
	ErrParameterMismatch   = &Error{Kind: ParameterMismatch}
	ErrCapacityExceeded    = &Error{Kind: CapacityExceeded}
	ErrMissingKernel       = &Error{Kind: MissingKernel}
	ErrUnboundTensor       = &Error{Kind: UnboundTensor}
	ErrShapeMismatch       = &Error{Kind: ShapeMismatch}
	ErrMalformedGraph      = &Error{Kind: MalformedGraph}
	ErrMalformedDescriptor = &Error{Kind: MalformedDescriptor}
	ErrUndefinedMarker     = &Error{Kind: UndefinedMarker}
	ErrStalled             = &Error{Kind: Stalled}
)
