// register.go wires the fixed-latency engine into the sim package's
// registration variable (NewEngineFunc). This init() runs when any package
// imports sim/engine, breaking the import cycle between sim/ (interface
// owner) and sim/engine/ (implementation). Test code in package sim uses
// engine_import_test.go for the blank import.
package engine

import "github.com/accel-pim/pimsim/sim"

func init() {
	sim.NewEngineFunc = func(cfg sim.EngineConfig, maxCycles int64) sim.Engine {
		return New(cfg, maxCycles)
	}
}
