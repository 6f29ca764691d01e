package sim

import "github.com/accel-pim/pimsim/sim/simerr"

// Error is the classified failure returned by session operations.
type Error = simerr.Error

// Sentinels for errors.Is, shared with sim/graph and sim/pim.
var (
	ErrMalformedCommand    = simerr.ErrMalformedCommand
	ErrUnknownOperator     = simerr.ErrUnknownOperator
	ErrUnknownAttribute    = simerr.ErrUnknownAttribute
	ErrDuplicateBinding    = simerr.ErrDuplicateBinding
	ErrDuplicateEdge       = simerr.ErrDuplicateEdge
	ErrParameterMismatch   = simerr.ErrParameterMismatch
	ErrCapacityExceeded    = simerr.ErrCapacityExceeded
	ErrMissingKernel       = simerr.ErrMissingKernel
	ErrUnboundTensor       = simerr.ErrUnboundTensor
	ErrShapeMismatch       = simerr.ErrShapeMismatch
	ErrMalformedGraph      = simerr.ErrMalformedGraph
	ErrMalformedDescriptor = simerr.ErrMalformedDescriptor
	ErrUndefinedMarker     = simerr.ErrUndefinedMarker
	ErrStalled             = simerr.ErrStalled
)
