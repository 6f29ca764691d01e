package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/graph"
	"github.com/accel-pim/pimsim/sim/pim"
	"github.com/accel-pim/pimsim/sim/trace"
)

// PimWorkload holds the layers a session hands to the engine's PIM path:
// every layer of the bound graph plus each new layer from the descriptor
// stream. Layers are handed over at most once.
type PimWorkload struct {
	parser   *pim.Parser
	layers   []*graph.LayerRecord
	launched int // layers[:launched] are already with the engine
	metrics  *Metrics
	trace    *trace.SimulationTrace
}

// NewPimWorkload returns an empty workload parsing descriptors with parser.
func NewPimWorkload(parser *pim.Parser, metrics *Metrics, st *trace.SimulationTrace) *PimWorkload {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &PimWorkload{parser: parser, metrics: metrics, trace: st}
}

// Add appends layers without launching them.
func (w *PimWorkload) Add(layers ...*graph.LayerRecord) {
	w.layers = append(w.layers, layers...)
}

// AddDescriptor parses line and appends the layer if its marker is new.
func (w *PimWorkload) AddDescriptor(line string) (bool, error) {
	layer, isNew, err := w.parser.Parse(line)
	if err != nil || !isNew {
		return false, err
	}
	w.layers = append(w.layers, layer)
	return true, nil
}

// Layers returns all layers in order. The slice is shared; do not modify.
func (w *PimWorkload) Layers() []*graph.LayerRecord {
	return w.layers
}

// Len returns the number of layers.
func (w *PimWorkload) Len() int {
	return len(w.layers)
}

// Launch hands every layer not yet launched to the engine and marks the PIM
// path active. It is a no-op when nothing is pending.
func (w *PimWorkload) Launch(eng Engine) {
	pending := w.layers[w.launched:]
	if len(pending) == 0 {
		return
	}
	eng.SetPimActive(true)
	eng.LaunchPim(pending)
	w.launched = len(w.layers)
	w.metrics.PimLayersLaunched += len(pending)
	logrus.Infof("launching %d PIM layers", len(pending))
	if w.trace != nil {
		names := make([]string, len(pending))
		for i, l := range pending {
			names[i] = l.Name
		}
		w.trace.RecordPimLaunch(trace.PimLaunchRecord{Cycle: w.metrics.Cycles, Layers: names})
	}
}

// LaunchDescriptor parses a pim_layer_launch payload and launches the layer
// immediately when its marker is new. Replays of a known marker launch nothing.
func (w *PimWorkload) LaunchDescriptor(eng Engine, line string) (bool, error) {
	isNew, err := w.AddDescriptor(line)
	if err != nil || !isNew {
		return false, err
	}
	w.Launch(eng)
	return true, nil
}

// Reset drops every layer.
func (w *PimWorkload) Reset() {
	w.layers = nil
	w.launched = 0
}
