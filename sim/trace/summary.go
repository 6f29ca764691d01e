package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAdmissions    int
	TotalRetirements   int
	ForcedRetirements  int
	PimLayersLaunched  int
	MeanResidency      float64 // cycles between launch and retirement
	MaxResidency       int64
	UniqueStreams      int
	StreamDistribution map[uint64]int // stream id → kernels launched on it
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
//
// Residency is measured only for retired kernels that were launched and whose
// admission appears in the trace.
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		StreamDistribution: make(map[uint64]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalAdmissions = len(st.Admissions)
	launchedAt := make(map[uint64]int64, len(st.Admissions))
	for _, a := range st.Admissions {
		summary.StreamDistribution[a.StreamID]++
		launchedAt[a.UID] = a.Cycle
	}

	summary.TotalRetirements = len(st.Retirements)
	var total int64
	measured := 0
	for _, r := range st.Retirements {
		if r.Forced {
			summary.ForcedRetirements++
		}
		start, ok := launchedAt[r.UID]
		if !ok || !r.Launched {
			continue
		}
		residency := r.Cycle - start
		total += residency
		measured++
		if residency > summary.MaxResidency {
			summary.MaxResidency = residency
		}
	}
	if measured > 0 {
		summary.MeanResidency = float64(total) / float64(measured)
	}

	for _, p := range st.PimLaunches {
		summary.PimLayersLaunched += len(p.Layers)
	}
	summary.UniqueStreams = len(summary.StreamDistribution)

	return summary
}
