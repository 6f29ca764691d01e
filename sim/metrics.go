// Tracks session-wide counters such as cycles stepped, kernels launched and
// retired, memory copies and PIM layers.

package sim

import (
	"fmt"
	"io"
	"time"
)

// Metrics aggregates statistics about one session run for final reporting.
// Engine-internal statistics are printed by the engine itself.
type Metrics struct {
	Cycles         int64 // engine cycles stepped by the driver
	Iterations     int   // driver loop iterations
	SteppingPasses int   // iterations that stepped at least one cycle

	CommandsRead int
	Memcpys      int
	MemcpyBytes  uint64

	KernelsBuffered   int
	KernelsLaunched   int
	KernelsRetired    int
	ForcedRetirements int // removed by a stop condition rather than completion
	PeakBuffered      int // max kernels simultaneously in the admission window

	PimLayersLaunched int

	MaxHit  bool // run ended on the cycle ceiling
	Elapsed time.Duration
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Print writes the final report.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Cycles               : %d\n", m.Cycles)
	fmt.Fprintf(w, "Loop Iterations      : %d\n", m.Iterations)
	fmt.Fprintf(w, "Commands Read        : %d\n", m.CommandsRead)
	fmt.Fprintf(w, "Memcpy Commands      : %d (%d bytes)\n", m.Memcpys, m.MemcpyBytes)
	fmt.Fprintf(w, "Kernels Launched     : %d\n", m.KernelsLaunched)
	fmt.Fprintf(w, "Kernels Retired      : %d\n", m.KernelsRetired)
	if m.ForcedRetirements > 0 {
		fmt.Fprintf(w, "Forced Retirements   : %d\n", m.ForcedRetirements)
	}
	fmt.Fprintf(w, "Peak Window Usage    : %d kernels\n", m.PeakBuffered)
	fmt.Fprintf(w, "PIM Layers Launched  : %d\n", m.PimLayersLaunched)
	if m.SteppingPasses > 0 {
		fmt.Fprintf(w, "Avg Cycles per Pass  : %.2f\n", float64(m.Cycles)/float64(m.SteppingPasses))
	}
	if m.MaxHit {
		fmt.Fprintln(w, "Stopped at the cycle ceiling")
	}
	fmt.Fprintf(w, "Wall Time            : %s\n", m.Elapsed)
}
