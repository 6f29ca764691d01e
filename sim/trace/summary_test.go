package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalAdmissions != 0 || summary.TotalRetirements != 0 {
		t.Error("expected zero counts for nil trace")
	}
	if summary.StreamDistribution == nil {
		t.Error("expected non-nil stream distribution")
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalAdmissions != 0 {
		t.Errorf("expected 0 admissions, got %d", summary.TotalAdmissions)
	}
	if summary.TotalRetirements != 0 || summary.ForcedRetirements != 0 {
		t.Error("expected 0 retirements")
	}
	if summary.UniqueStreams != 0 {
		t.Errorf("expected 0 unique streams, got %d", summary.UniqueStreams)
	}
	if summary.MeanResidency != 0 || summary.MaxResidency != 0 {
		t.Error("expected 0 residency values")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with admissions on two streams, one forced retirement and PIM work
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordAdmission(AdmissionRecord{UID: 1, StreamID: 0})
	st.RecordAdmission(AdmissionRecord{UID: 2, StreamID: 1})
	st.RecordAdmission(AdmissionRecord{UID: 3, StreamID: 0})
	st.RecordRetirement(RetirementRecord{UID: 1, Launched: true, Reason: "finished"})
	st.RecordRetirement(RetirementRecord{UID: 2, Launched: true, Forced: true, Reason: "max-hit"})
	st.RecordPimLaunch(PimLaunchRecord{Layers: []string{"a", "b"}})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalAdmissions != 3 {
		t.Errorf("expected 3 admissions, got %d", summary.TotalAdmissions)
	}
	if summary.TotalRetirements != 2 {
		t.Errorf("expected 2 retirements, got %d", summary.TotalRetirements)
	}
	if summary.ForcedRetirements != 1 {
		t.Errorf("expected 1 forced retirement, got %d", summary.ForcedRetirements)
	}
	if summary.UniqueStreams != 2 {
		t.Errorf("expected 2 unique streams, got %d", summary.UniqueStreams)
	}
	if summary.StreamDistribution[0] != 2 {
		t.Errorf("expected 2 kernels on stream 0, got %d", summary.StreamDistribution[0])
	}
	if summary.PimLayersLaunched != 2 {
		t.Errorf("expected 2 pim layers, got %d", summary.PimLayersLaunched)
	}
}

func TestSummarize_Residency_CorrectMeanAndMax(t *testing.T) {
	// GIVEN kernels launched and retired at known cycles
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordAdmission(AdmissionRecord{UID: 1, Cycle: 0})
	st.RecordAdmission(AdmissionRecord{UID: 2, Cycle: 10})
	st.RecordRetirement(RetirementRecord{UID: 1, Cycle: 40, Launched: true})
	st.RecordRetirement(RetirementRecord{UID: 2, Cycle: 30, Launched: true})
	// never launched: excluded from residency
	st.RecordRetirement(RetirementRecord{UID: 3, Cycle: 50, Forced: true})

	// WHEN summarized
	summary := Summarize(st)

	// THEN mean residency = (40 + 20) / 2 = 30
	if summary.MeanResidency != 30 {
		t.Errorf("expected mean residency 30, got %.2f", summary.MeanResidency)
	}

	// THEN max residency = 40
	if summary.MaxResidency != 40 {
		t.Errorf("expected max residency 40, got %d", summary.MaxResidency)
	}
}
