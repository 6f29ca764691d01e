package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every admission, retirement and PIM launch.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel `yaml:"level" toml:"level"`
}

// Enabled reports whether records should be collected.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelDecisions
}

// SimulationTrace collects decision records during a session run.
type SimulationTrace struct {
	Config      TraceConfig
	Admissions  []AdmissionRecord
	Retirements []RetirementRecord
	PimLaunches []PimLaunchRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Admissions:  make([]AdmissionRecord, 0),
		Retirements: make([]RetirementRecord, 0),
		PimLaunches: make([]PimLaunchRecord, 0),
	}
}

// RecordAdmission appends an admission record.
func (st *SimulationTrace) RecordAdmission(record AdmissionRecord) {
	st.Admissions = append(st.Admissions, record)
}

// RecordRetirement appends a retirement record.
func (st *SimulationTrace) RecordRetirement(record RetirementRecord) {
	st.Retirements = append(st.Retirements, record)
}

// RecordPimLaunch appends a PIM launch record.
func (st *SimulationTrace) RecordPimLaunch(record PimLaunchRecord) {
	st.PimLaunches = append(st.PimLaunches, record)
}
