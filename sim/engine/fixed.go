// Package engine provides a reference sim.Engine with fixed per-block and
// per-layer latencies. It models no real hardware timing; it exists so the
// session loop can be exercised end to end.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim"
	"github.com/accel-pim/pimsim/sim/graph"
)

// Stats are the engine's own counters.
type Stats struct {
	Cycles             int64
	KernelsLaunched    int
	KernelsCompleted   int
	KernelsStopped     int
	Memcpys            int
	MemcpyBytes        uint64
	PimLayersLaunched  int
	PimLayersCompleted int
	StatUpdates        int
}

type runningKernel struct {
	kernel    *sim.KernelRecord
	remaining int64
}

// FixedLatency retires a kernel after blocks × CyclesPerBlock cycles (at least
// one) and PIM layers one at a time after CyclesPerPimLayer cycles each.
//
// Active is recomputed at the end of every Cycle and stays true while a
// completed kernel waits to be reported by FinishedKernel.
type FixedLatency struct {
	cfg       sim.EngineConfig
	maxCycles int64

	cycle    int64
	running  []*runningKernel // launch order
	finished []uint64         // completed, not yet reported
	active   bool

	pimActive    bool
	pimQueue     []*graph.LayerRecord
	pimRemaining int64

	stats Stats
}

// New returns an idle engine. maxCycles <= 0 disables the ceiling.
func New(cfg sim.EngineConfig, maxCycles int64) *FixedLatency {
	return &FixedLatency{cfg: cfg, maxCycles: maxCycles}
}

func (e *FixedLatency) CanStartKernel() bool {
	return len(e.running) < e.cfg.MaxConcurrentKernels
}

func (e *FixedLatency) Launch(k *sim.KernelRecord) {
	blocks := 1
	if k.Info != nil && k.Info.Grid.Size() > 0 {
		blocks = k.Info.Grid.Size()
	}
	cost := max(int64(blocks)*e.cfg.CyclesPerBlock, 1)
	e.running = append(e.running, &runningKernel{kernel: k, remaining: cost})
	e.active = true
	e.stats.KernelsLaunched++
	logrus.Debugf("engine: kernel %d costs %d cycles", k.UID, cost)
}

func (e *FixedLatency) Cycle() {
	if e.MaxHit() {
		return
	}
	e.cycle++

	still := e.running[:0]
	for _, rk := range e.running {
		rk.remaining--
		if rk.remaining > 0 {
			still = append(still, rk)
			continue
		}
		e.finished = append(e.finished, rk.kernel.UID)
		e.stats.KernelsCompleted++
	}
	clear(e.running[len(still):])
	e.running = still

	if len(e.pimQueue) > 0 {
		e.pimRemaining--
		if e.pimRemaining <= 0 {
			logrus.Debugf("engine: PIM layer %s done at cycle %d", e.pimQueue[0].Name, e.cycle)
			e.pimQueue = e.pimQueue[1:]
			e.stats.PimLayersCompleted++
			if len(e.pimQueue) > 0 {
				e.pimRemaining = e.pimLayerCost()
			} else {
				e.pimActive = false
			}
		}
	}

	e.active = len(e.running) > 0 || len(e.pimQueue) > 0 || len(e.finished) > 0
}

func (e *FixedLatency) Active() bool {
	return e.active
}

func (e *FixedLatency) FinishedKernel() uint64 {
	if len(e.finished) == 0 {
		return 0
	}
	uid := e.finished[0]
	e.finished = e.finished[1:]
	return uid
}

func (e *FixedLatency) MaxHit() bool {
	return e.maxCycles > 0 && e.cycle >= e.maxCycles
}

// DeadlockCheck warns when the engine claims activity with nothing to do.
func (e *FixedLatency) DeadlockCheck() {
	if e.active && len(e.running) == 0 && len(e.pimQueue) == 0 && len(e.finished) == 0 {
		logrus.Warnf("engine: active with no work at cycle %d", e.cycle)
	}
}

func (e *FixedLatency) PrintStats() {
	logrus.Infof("engine: cycle %d, %d kernels running, %d/%d kernels completed, %d/%d PIM layers completed",
		e.cycle, len(e.running), e.stats.KernelsCompleted, e.stats.KernelsLaunched,
		e.stats.PimLayersCompleted, e.stats.PimLayersLaunched)
}

func (e *FixedLatency) UpdateStats() {
	e.stats.Cycles = e.cycle
	e.stats.StatUpdates++
}

func (e *FixedLatency) LaunchPim(layers []*graph.LayerRecord) {
	if len(layers) == 0 {
		return
	}
	if len(e.pimQueue) == 0 {
		e.pimRemaining = e.pimLayerCost()
	}
	e.pimQueue = append(e.pimQueue, layers...)
	e.stats.PimLayersLaunched += len(layers)
	e.active = true
}

func (e *FixedLatency) PimActive() bool {
	return e.pimActive
}

func (e *FixedLatency) SetPimActive(active bool) {
	e.pimActive = active
}

func (e *FixedLatency) MemcpyToGPU(addr, bytes uint64) {
	e.stats.Memcpys++
	e.stats.MemcpyBytes += bytes
	logrus.Debugf("engine: memcpy %d bytes to 0x%x", bytes, addr)
}

// StopAllRunningKernels drops every running kernel and pending PIM layer.
func (e *FixedLatency) StopAllRunningKernels() {
	e.stats.KernelsStopped += len(e.running)
	e.running = nil
	e.finished = nil
	e.pimQueue = nil
	e.pimRemaining = 0
	e.pimActive = false
	e.active = false
}

// Stats returns a copy of the engine counters.
func (e *FixedLatency) Stats() Stats {
	return e.stats
}

// CurrentCycle returns the number of cycles stepped.
func (e *FixedLatency) CurrentCycle() int64 {
	return e.cycle
}

func (e *FixedLatency) pimLayerCost() int64 {
	return max(e.cfg.CyclesPerPimLayer, 1)
}
