// Package sim provides the control core of a trace-driven PIM/GPU simulation
// session.
//
// # Reading Guide
//
// Start with these files to understand the session loop:
//   - command.go, kernel.go: script entries, kernel records, the admission
//     window (KernelBuffer) and busy streams (StreamSet)
//   - scheduler.go: CommandListScheduler, which reads the script in order and
//     keeps the window full
//   - lifecycle.go: KernelLifecycleManager, which launches and reclaims kernels
//   - driver.go: the outer loop (refill, admit, step, cleanup)
//   - session.go: the host API (NewSession, Init, BindGraph, Run)
//
// # Architecture
//
// The sim package defines the Engine and TraceReader contracts; implementations
// live in sub-packages:
//   - sim/engine/: reference fixed-latency Engine
//   - sim/workload/: command-list loader and kernel trace-header reader
//   - sim/graph/: network graph construction and shape inference
//   - sim/pim/: PIM layer descriptor parser and marker cache
//   - sim/trace/: admission/retirement decision trace
//   - sim/simerr/: typed failure kinds shared by all of the above
//
// sim/engine registers its constructor via init() into NewEngineFunc.
//
// The session is single-threaded: the buffer, stream set, marker cache and
// binding tables are owned by one Session and never locked.
package sim
