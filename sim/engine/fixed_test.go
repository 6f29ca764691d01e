package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accel-pim/pimsim/sim"
	"github.com/accel-pim/pimsim/sim/graph"
)

var testConfig = sim.EngineConfig{CyclesPerBlock: 5, CyclesPerPimLayer: 3, MaxConcurrentKernels: 2}

func kernel(uid uint64, blocks int) *sim.KernelRecord {
	return &sim.KernelRecord{
		UID:  uid,
		Name: "k",
		Info: &sim.KernelInfo{Grid: sim.Dim3{X: blocks, Y: 1, Z: 1}},
	}
}

func runUntilFinished(e *FixedLatency, limit int) (uint64, int) {
	for i := 1; i <= limit; i++ {
		e.Cycle()
		if uid := e.FinishedKernel(); uid != 0 {
			return uid, i
		}
	}
	return 0, limit
}

func TestFixedLatency_KernelCostScalesWithBlocks(t *testing.T) {
	tests := []struct {
		name       string
		blocks     int
		perBlock   int64
		wantCycles int
	}{
		{"one block", 1, 5, 5},
		{"four blocks", 4, 5, 20},
		{"zero cost clamps to one cycle", 3, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig
			cfg.CyclesPerBlock = tt.perBlock
			e := New(cfg, 0)
			e.Launch(kernel(7, tt.blocks))

			uid, cycles := runUntilFinished(e, 100)

			assert.Equal(t, uint64(7), uid)
			assert.Equal(t, tt.wantCycles, cycles)
		})
	}
}

func TestFixedLatency_NilInfoCountsAsOneBlock(t *testing.T) {
	e := New(testConfig, 0)
	e.Launch(&sim.KernelRecord{UID: 1})
	_, cycles := runUntilFinished(e, 100)
	assert.Equal(t, 5, cycles)
}

func TestFixedLatency_ActiveUntilLastCompletionReported(t *testing.T) {
	// GIVEN one single-block kernel
	e := New(testConfig, 0)
	assert.False(t, e.Active())
	e.Launch(kernel(1, 1))
	require.True(t, e.Active())

	// WHEN it completes
	for i := 0; i < 5; i++ {
		e.Cycle()
	}

	// THEN the engine stays active while the completion is unreported
	assert.True(t, e.Active())
	assert.Equal(t, uint64(1), e.FinishedKernel())
	assert.Zero(t, e.FinishedKernel())

	// AND the next cycle settles to idle
	e.Cycle()
	assert.False(t, e.Active())
}

func TestFixedLatency_Capacity(t *testing.T) {
	e := New(testConfig, 0)
	e.Launch(kernel(1, 1))
	assert.True(t, e.CanStartKernel())
	e.Launch(kernel(2, 1))
	assert.False(t, e.CanStartKernel())

	runUntilFinished(e, 10)
	assert.True(t, e.CanStartKernel())
}

func TestFixedLatency_PimLayersRunSerially(t *testing.T) {
	// GIVEN two PIM layers at three cycles each
	e := New(testConfig, 0)
	e.SetPimActive(true)
	e.LaunchPim([]*graph.LayerRecord{
		graph.NewLayerRecord(graph.LayerConv, "conv1"),
		graph.NewLayerRecord(graph.LayerRelu, "relu1"),
	})

	// WHEN stepped for five cycles
	for i := 0; i < 5; i++ {
		e.Cycle()
	}

	// THEN only the first layer is done
	assert.True(t, e.PimActive())
	assert.Equal(t, 1, e.Stats().PimLayersCompleted)

	// AND the path goes idle after the sixth
	e.Cycle()
	assert.False(t, e.PimActive())
	assert.False(t, e.Active())
	assert.Equal(t, 2, e.Stats().PimLayersCompleted)
	assert.Equal(t, 2, e.Stats().PimLayersLaunched)
}

func TestFixedLatency_MaxCycles(t *testing.T) {
	e := New(testConfig, 3)
	e.Launch(kernel(1, 10))

	for i := 0; i < 10; i++ {
		e.Cycle()
	}

	assert.True(t, e.MaxHit())
	assert.Equal(t, int64(3), e.CurrentCycle(), "cycling stops at the ceiling")

	e.StopAllRunningKernels()
	assert.False(t, e.Active())
	assert.True(t, e.CanStartKernel())
	assert.Equal(t, 1, e.Stats().KernelsStopped)
}

func TestFixedLatency_NoCeiling(t *testing.T) {
	e := New(testConfig, 0)
	for i := 0; i < 1000; i++ {
		e.Cycle()
	}
	assert.False(t, e.MaxHit())
}

func TestFixedLatency_MemcpyAndStats(t *testing.T) {
	e := New(testConfig, 0)
	e.MemcpyToGPU(0x1000, 64)
	e.MemcpyToGPU(0x2000, 32)
	e.Cycle()
	e.UpdateStats()

	s := e.Stats()
	assert.Equal(t, 2, s.Memcpys)
	assert.Equal(t, uint64(96), s.MemcpyBytes)
	assert.Equal(t, int64(1), s.Cycles)
	assert.Equal(t, 1, s.StatUpdates)
}

func TestRegister_SetsNewEngineFunc(t *testing.T) {
	require.NotNil(t, sim.NewEngineFunc)
	eng := sim.NewEngineFunc(testConfig, 10)
	_, ok := eng.(*FixedLatency)
	assert.True(t, ok)
}
