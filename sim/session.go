package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/graph"
	"github.com/accel-pim/pimsim/sim/pim"
	"github.com/accel-pim/pimsim/sim/simerr"
	"github.com/accel-pim/pimsim/sim/trace"
)

// ErrNotInitialized is returned by Run before Init.
var ErrNotInitialized = errors.New("session not initialized")

// Session is the host-facing API: construct, Init with a command script,
// optionally bind a graph, then Run. A Session is single-threaded.
type Session struct {
	cfg    SessionConfig
	engine Engine
	reader TraceReader

	cache   *pim.MarkerCache
	pim     *PimWorkload
	graph   *graph.Graph
	buffer  *KernelBuffer
	streams *StreamSet
	metrics *Metrics
	trace   *trace.SimulationTrace // nil unless cfg.Trace is enabled

	driver *SimulationDriver // set by Init
}

// NewSession constructs a session around an engine and trace reader.
// Panics if either is nil.
func NewSession(cfg SessionConfig, eng Engine, reader TraceReader) *Session {
	if eng == nil {
		panic("NewSession: engine must not be nil")
	}
	if reader == nil {
		panic("NewSession: trace reader must not be nil")
	}
	s := &Session{
		cfg:     cfg,
		engine:  eng,
		reader:  reader,
		cache:   pim.NewMarkerCache(cfg.Pim.MarkerCacheLimit),
		buffer:  &KernelBuffer{},
		streams: NewStreamSet(),
	}
	s.resetRunState()
	return s
}

// NewSessionFromConfig constructs a session around the registered reference
// engine (see NewEngineFunc).
func NewSessionFromConfig(cfg SessionConfig, reader TraceReader) (*Session, error) {
	if NewEngineFunc == nil {
		return nil, errors.New("no engine registered; import sim/engine")
	}
	return NewSession(cfg, NewEngineFunc(cfg.Engine, cfg.Limits.MaxCycles), reader), nil
}

func (s *Session) resetRunState() {
	s.metrics = NewMetrics()
	s.trace = nil
	if s.cfg.Trace.Enabled() {
		s.trace = trace.NewSimulationTrace(s.cfg.Trace)
	}
	s.pim = NewPimWorkload(pim.NewParser(s.cache), s.metrics, s.trace)
}

// Init prepares the session to run commands: it sizes the admission window,
// clears the buffer and stream set, and loads the marker cache snapshot when
// one is configured.
func (s *Session) Init(commands []Command) error {
	s.buffer.Reset()
	s.streams.Reset()
	s.driver = nil

	if path := s.cfg.Pim.MarkerCachePath; path != "" {
		if _, err := s.cache.Load(path); err != nil {
			return err
		}
	}
	scheduler, err := NewCommandListScheduler(commands, s.cfg.Window.Size(), s.buffer, s.pim, s.metrics)
	if err != nil {
		return err
	}
	lifecycle := NewKernelLifecycleManager(s.buffer, s.streams, s.metrics, s.trace)
	s.driver = NewSimulationDriver(scheduler, lifecycle, s.pim, s.engine, s.reader, s.cfg.Limits, s.metrics)
	logrus.Infof("session initialized: %d commands, window %d", len(commands), scheduler.Window())
	return nil
}

// BindGraph decodes a serialized ONNX GraphProto and binds it.
func (s *Session) BindGraph(data []byte) error {
	spec, err := graph.DecodeONNXGraph(data)
	if err != nil {
		return err
	}
	return s.BindGraphSpec(spec)
}

// BindGraphSpec builds spec and appends its layers to the PIM workload.
// Only one graph may be bound per Reset.
func (s *Session) BindGraphSpec(spec *graph.GraphSpec) error {
	if s.graph != nil {
		return simerr.New(simerr.DuplicateBinding, "sim.BindGraph", "a graph is already bound")
	}
	g, err := graph.Build(spec)
	if err != nil {
		return err
	}
	s.graph = g
	s.pim.Add(g.Layers()...)
	logrus.Infof("bound graph %q: %d layers", spec.Name, g.Len())
	return nil
}

// AddDescriptor feeds one PIM descriptor line ahead of Run. It reports
// whether the line produced a new layer.
func (s *Session) AddDescriptor(line string) (bool, error) {
	return s.pim.AddDescriptor(line)
}

// Run drives the simulation to completion, the cycle ceiling, a failure or
// ctx cancellation. The marker cache snapshot is saved after a clean run.
func (s *Session) Run(ctx context.Context) error {
	if s.driver == nil {
		return ErrNotInitialized
	}
	start := time.Now()
	err := s.driver.Run(ctx)
	s.metrics.Elapsed = time.Since(start)
	if err != nil {
		return fmt.Errorf("simulation run: %w", err)
	}
	if path := s.cfg.Pim.MarkerCachePath; path != "" {
		if err := s.cache.Save(path); err != nil {
			return err
		}
	}
	logrus.Infof("simulation ended after %d cycles (%s)", s.metrics.Cycles, s.metrics.Elapsed)
	return nil
}

// Reset clears the bound graph, the PIM workload, the marker cache and all
// run state. Init must be called again before Run.
func (s *Session) Reset() {
	s.graph = nil
	s.cache.Reset()
	s.buffer.Reset()
	s.streams.Reset()
	s.driver = nil
	s.resetRunState()
}

// Engine returns the engine the session drives.
func (s *Session) Engine() Engine { return s.engine }

// Graph returns the bound graph, or nil.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Layers returns the PIM workload layers in launch order.
func (s *Session) Layers() []*graph.LayerRecord { return s.pim.Layers() }

// Metrics returns the run counters.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Trace returns the decision trace, or nil when tracing is off.
func (s *Session) Trace() *trace.SimulationTrace { return s.trace }

// MarkerCache returns the session-owned descriptor cache.
func (s *Session) MarkerCache() *pim.MarkerCache { return s.cache }

// Buffered returns the number of kernels in the admission window.
func (s *Session) Buffered() int { return s.buffer.Len() }

// BusyStreams returns the busy streams in ascending order.
func (s *Session) BusyStreams() []uint64 { return s.streams.IDs() }
