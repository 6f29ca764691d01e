package sim

import (
	"fmt"
	"io"

	"github.com/accel-pim/pimsim/sim/graph"
)

// Dim3 is a CUDA launch dimension.
type Dim3 struct {
	X, Y, Z int
}

// Size returns X*Y*Z.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

func (d Dim3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", d.X, d.Y, d.Z)
}

// KernelInfo is the trace header of one kernel launch as produced by a
// TraceReader. Handle, when non-nil, is released by FinalizeKernel.
type KernelInfo struct {
	Name      string
	TraceID   uint64 // kernel id recorded in the trace
	StreamID  uint64
	Grid      Dim3
	Block     Dim3
	SharedMem int
	Regs      int
	Path      string
	Handle    io.Closer
}

// Engine is the cycle-stepping performance model driven by a session.
// Implementations live outside this package (see sim/engine).
type Engine interface {
	// CanStartKernel reports whether the engine has capacity for another kernel.
	CanStartKernel() bool
	Launch(k *KernelRecord)
	// Cycle advances the model by one step.
	Cycle()
	Active() bool
	// FinishedKernel returns the uid of a kernel that completed, or 0.
	FinishedKernel() uint64
	// MaxHit reports that the configured cycle or instruction ceiling was reached.
	MaxHit() bool
	DeadlockCheck()
	PrintStats()
	UpdateStats()
	LaunchPim(layers []*graph.LayerRecord)
	PimActive() bool
	SetPimActive(active bool)
	MemcpyToGPU(addr, bytes uint64)
	StopAllRunningKernels()
}

// TraceReader interprets command payloads.
type TraceReader interface {
	ParseMemcpy(payload string) (addr, bytes uint64, err error)
	ParseKernel(payload string) (*KernelInfo, error)
	FinalizeKernel(info *KernelInfo)
}

// NewEngineFunc constructs the reference engine. It is registered by
// sim/engine's init(); nil until that package is imported.
var NewEngineFunc func(cfg EngineConfig, maxCycles int64) Engine
