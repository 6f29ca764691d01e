package sim_test

// Blank import triggers sim/engine's init(), which registers NewEngineFunc.
// This allows package sim's internal test files to drive the reference engine
// without directly importing sim/engine (which would create an import cycle).
import _ "github.com/accel-pim/pimsim/sim/engine"
