// Package trace provides decision-trace recording for kernel admission and
// retirement. It has no dependencies on sim/ and stores pure data types.
package trace

// AdmissionRecord captures one kernel launch decision.
type AdmissionRecord struct {
	UID      uint64
	Name     string
	StreamID uint64
	Cycle    int64 // cycles stepped by the driver before the launch
	Buffered int   // kernels in the admission window at launch time
}

// RetirementRecord captures one kernel removed from the admission window.
type RetirementRecord struct {
	UID      uint64
	Name     string
	StreamID uint64
	Cycle    int64
	Launched bool
	Forced   bool   // removed because a stop condition held, not because it finished
	Reason   string // "finished", "max-hit" or "inactive"
}

// PimLaunchRecord captures a batch of PIM layers handed to the engine.
type PimLaunchRecord struct {
	Cycle  int64
	Layers []string // layer names in launch order
}
