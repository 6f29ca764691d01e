package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/simerr"
	"github.com/accel-pim/pimsim/sim/trace"
)

// KernelLifecycleManager launches buffered kernels onto free streams and
// reclaims them when the engine reports completion.
type KernelLifecycleManager struct {
	buffer  *KernelBuffer
	streams *StreamSet
	metrics *Metrics
	trace   *trace.SimulationTrace // nil when tracing is off
}

// NewKernelLifecycleManager wires a manager over a shared buffer and stream set.
func NewKernelLifecycleManager(buffer *KernelBuffer, streams *StreamSet, metrics *Metrics, st *trace.SimulationTrace) *KernelLifecycleManager {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &KernelLifecycleManager{buffer: buffer, streams: streams, metrics: metrics, trace: st}
}

// Buffered returns the number of kernels in the admission window.
func (m *KernelLifecycleManager) Buffered() int {
	return m.buffer.Len()
}

// Streams returns the busy-stream set.
func (m *KernelLifecycleManager) Streams() *StreamSet {
	return m.streams
}

// AdmitEligible walks the buffer in admission order and launches every kernel
// whose stream is idle, that has not been launched, while the engine has
// capacity. The first eligible kernel on a stream wins.
func (m *KernelLifecycleManager) AdmitEligible(eng Engine) []*KernelRecord {
	var launched []*KernelRecord
	for _, k := range m.buffer.Items() {
		if m.streams.Contains(k.StreamID) || k.Launched || !eng.CanStartKernel() {
			continue
		}
		logrus.Infof("launching kernel name: %s uid: %d", k.Name, k.UID)
		eng.Launch(k)
		k.Launched = true
		m.streams.Add(k.StreamID)
		m.metrics.KernelsLaunched++
		launched = append(launched, k)
		if m.trace != nil {
			m.trace.RecordAdmission(trace.AdmissionRecord{
				UID:      k.UID,
				Name:     k.Name,
				StreamID: k.StreamID,
				Cycle:    m.metrics.Cycles,
				Buffered: m.buffer.Len(),
			})
		}
	}
	return launched
}

// Cleanup removes the kernel with uid finished. When the engine has hit its
// ceiling or is no longer active every buffered kernel is removed instead.
// Each removed kernel frees its stream and has its trace handle finalized.
//
// A non-empty buffer without a match is ErrMissingKernel unless a stop
// condition holds or the session carries PIM work (pimWorkload).
func (m *KernelLifecycleManager) Cleanup(eng Engine, reader TraceReader, finished uint64, pimWorkload bool) ([]*KernelRecord, error) {
	maxHit := eng.MaxHit()
	active := eng.Active()
	stop := maxHit || !active
	var stopReason string
	switch {
	case maxHit:
		stopReason = "max-hit"
	case !active:
		stopReason = "inactive"
	}

	hadKernels := m.buffer.Len() > 0
	var removed []*KernelRecord
	for i := 0; i < m.buffer.Len(); {
		k := m.buffer.Items()[i]
		if k.UID != finished && !stop {
			i++
			continue
		}
		m.buffer.RemoveAt(i)
		if k.Launched {
			m.streams.Remove(k.StreamID)
		}
		reader.FinalizeKernel(k.Info)
		removed = append(removed, k)
		m.record(k, finished, stopReason)
		if !stop {
			break
		}
	}

	if hadKernels && len(removed) == 0 && !stop && !pimWorkload {
		return nil, simerr.New(simerr.MissingKernel, "sim.Cleanup",
			"finished kernel uid %d is not in the admission window", finished)
	}
	eng.PrintStats()
	return removed, nil
}

// record accounts for one removed kernel. stopReason is empty unless a stop
// condition held during the pass.
func (m *KernelLifecycleManager) record(k *KernelRecord, finished uint64, stopReason string) {
	forced := stopReason != "" && k.UID != finished
	reason := "finished"
	m.metrics.KernelsRetired++
	if forced {
		m.metrics.ForcedRetirements++
		reason = stopReason
	}
	logrus.Infof("kernel %s uid: %d retired (%s)", k.Name, k.UID, reason)
	if m.trace != nil {
		m.trace.RecordRetirement(trace.RetirementRecord{
			UID:      k.UID,
			Name:     k.Name,
			StreamID: k.StreamID,
			Cycle:    m.metrics.Cycles,
			Launched: k.Launched,
			Forced:   forced,
			Reason:   reason,
		})
	}
}
