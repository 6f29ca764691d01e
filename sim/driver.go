package sim

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/simerr"
)

// SimulationDriver runs the outer loop: refill the window, admit kernels,
// step the engine until something happens, clean up, repeat.
type SimulationDriver struct {
	scheduler *CommandListScheduler
	lifecycle *KernelLifecycleManager
	pim       *PimWorkload
	engine    Engine
	reader    TraceReader
	limits    LimitConfig
	metrics   *Metrics
}

// NewSimulationDriver wires a driver. pim may be nil for kernel-only runs.
func NewSimulationDriver(scheduler *CommandListScheduler, lifecycle *KernelLifecycleManager, pim *PimWorkload,
	eng Engine, reader TraceReader, limits LimitConfig, metrics *Metrics) *SimulationDriver {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &SimulationDriver{
		scheduler: scheduler,
		lifecycle: lifecycle,
		pim:       pim,
		engine:    eng,
		reader:    reader,
		limits:    limits,
		metrics:   metrics,
	}
}

// Run loops while commands remain unread, kernels remain buffered or the PIM
// path is active. Reaching the engine's cycle ceiling stops all running work
// and ends the loop without error. ctx is checked once per iteration.
func (d *SimulationDriver) Run(ctx context.Context) error {
	if d.pim != nil {
		d.pim.Launch(d.engine)
	}

	idle := 0
	for d.scheduler.Pending() || d.lifecycle.Buffered() > 0 || d.engine.PimActive() {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.metrics.Iterations++

		consumed, err := d.scheduler.Refill(d.engine, d.reader)
		if err != nil {
			return err
		}
		launched := d.lifecycle.AdmitEligible(d.engine)

		start := time.Now()
		finished, stepped, stopped := d.step()
		maxHit := d.engine.MaxHit()

		var retired []*KernelRecord
		if finished != 0 || maxHit || !d.engine.Active() {
			retired, err = d.lifecycle.Cleanup(d.engine, d.reader, finished, d.pim != nil && d.pim.Len() > 0)
			if err != nil {
				return err
			}
		}

		if stepped > 0 {
			d.metrics.SteppingPasses++
			d.engine.UpdateStats()
			logrus.Debugf("stepped %d cycles in %s (total %d)", stepped, time.Since(start), d.metrics.Cycles)
		}

		if maxHit {
			if !stopped {
				d.engine.StopAllRunningKernels()
			}
			d.metrics.MaxHit = true
			logrus.Warnf("break due to reaching the maximum cycles (or instructions)")
			break
		}

		if consumed > 0 || len(launched) > 0 || stepped > 0 || len(retired) > 0 {
			idle = 0
			continue
		}
		idle++
		if d.limits.MaxIdleIterations > 0 && idle >= d.limits.MaxIdleIterations {
			return simerr.New(simerr.Stalled, "sim.Run",
				"no progress for %d iterations (cursor %d, %d buffered, pim active %t)",
				idle, d.scheduler.Cursor(), d.lifecycle.Buffered(), d.engine.PimActive())
		}
	}
	return nil
}

// step advances the engine until it goes idle, reports a finished kernel or
// hits its ceiling. It returns the finished uid (0 if none), the number of
// cycles stepped and whether it already stopped all running work. No cycle is
// stepped once the ceiling holds.
func (d *SimulationDriver) step() (finished uint64, stepped int64, stopped bool) {
	for {
		if !d.engine.Active() {
			if d.engine.MaxHit() {
				d.engine.StopAllRunningKernels()
				stopped = true
			}
			return finished, stepped, stopped
		}
		if d.engine.MaxHit() {
			return finished, stepped, stopped
		}
		d.engine.Cycle()
		stepped++
		d.metrics.Cycles++
		d.engine.DeadlockCheck()
		finished = d.engine.FinishedKernel()
		if finished != 0 || d.engine.MaxHit() {
			return finished, stepped, stopped
		}
	}
}
