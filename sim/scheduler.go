package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/simerr"
)

// PimLauncher receives pim_layer_launch payloads read from the script.
// It returns true when the descriptor produced a new layer for the engine.
type PimLauncher interface {
	LaunchDescriptor(eng Engine, line string) (bool, error)
}

// CommandListScheduler reads the command script in order, forwarding memory
// copies to the engine and buffering kernel launches up to the window size.
// The read cursor only moves forward.
type CommandListScheduler struct {
	commands []Command
	cursor   int
	window   int
	buffer   *KernelBuffer
	pim      PimLauncher // nil rejects pim_layer_launch commands
	metrics  *Metrics
	nextUID  uint64
}

// NewCommandListScheduler returns a scheduler over commands that keeps at most
// window kernels in buffer.
func NewCommandListScheduler(commands []Command, window int, buffer *KernelBuffer, pim PimLauncher, metrics *Metrics) (*CommandListScheduler, error) {
	if window <= 0 {
		return nil, simerr.New(simerr.CapacityExceeded, "sim.NewCommandListScheduler",
			"admission window must be positive, got %d", window)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &CommandListScheduler{
		commands: commands,
		window:   window,
		buffer:   buffer,
		pim:      pim,
		metrics:  metrics,
		nextUID:  1,
	}, nil
}

// Pending reports whether unread commands remain.
func (s *CommandListScheduler) Pending() bool {
	return s.cursor < len(s.commands)
}

// Cursor returns the index of the next unread command.
func (s *CommandListScheduler) Cursor() int {
	return s.cursor
}

// Window returns the admission window capacity.
func (s *CommandListScheduler) Window() int {
	return s.window
}

// Refill consumes commands until the buffer holds window kernels or the
// script is exhausted, and returns the number of commands consumed.
func (s *CommandListScheduler) Refill(eng Engine, reader TraceReader) (int, error) {
	consumed := 0
	for s.buffer.Len() < s.window && s.cursor < len(s.commands) {
		cmd := s.commands[s.cursor]
		switch cmd.Kind {
		case CommandMemcpy:
			addr, n, err := reader.ParseMemcpy(cmd.Payload)
			if err != nil {
				return consumed, fmt.Errorf("command %d: %w", s.cursor, err)
			}
			logrus.Infof("launching memcpy command : %s", cmd.Payload)
			eng.MemcpyToGPU(addr, n)
			s.metrics.Memcpys++
			s.metrics.MemcpyBytes += n
		case CommandKernelLaunch:
			info, err := reader.ParseKernel(cmd.Payload)
			if err != nil {
				return consumed, fmt.Errorf("command %d: %w", s.cursor, err)
			}
			s.buffer.Enqueue(&KernelRecord{
				UID:      s.nextUID,
				Name:     info.Name,
				StreamID: info.StreamID,
				Info:     info,
			})
			s.nextUID++
			s.metrics.KernelsBuffered++
			s.metrics.PeakBuffered = max(s.metrics.PeakBuffered, s.buffer.Len())
			logrus.Infof("Header info loaded for kernel command : %s", cmd.Payload)
		case CommandPimLayerLaunch:
			if s.pim == nil {
				return consumed, simerr.New(simerr.MalformedCommand, "sim.Refill",
					"command %d: pim_layer_launch without a PIM workload", s.cursor)
			}
			if _, err := s.pim.LaunchDescriptor(eng, cmd.Payload); err != nil {
				return consumed, fmt.Errorf("command %d: %w", s.cursor, err)
			}
		default:
			return consumed, simerr.New(simerr.MalformedCommand, "sim.Refill",
				"command %d: unsupported kind %s (%q)", s.cursor, cmd.Kind, cmd.Payload)
		}
		s.cursor++
		consumed++
		s.metrics.CommandsRead++
	}
	return consumed, nil
}
