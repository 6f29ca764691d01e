package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accel-pim/pimsim/sim/internal/testutil"
	"github.com/accel-pim/pimsim/sim/pim"
)

func newTestScheduler(t *testing.T, commands []Command, window int, launcher PimLauncher) (*CommandListScheduler, *KernelBuffer, *Metrics) {
	t.Helper()
	buf := &KernelBuffer{}
	m := NewMetrics()
	s, err := NewCommandListScheduler(commands, window, buf, launcher, m)
	require.NoError(t, err)
	return s, buf, m
}

func TestNewCommandListScheduler_NonPositiveWindow(t *testing.T) {
	for _, window := range []int{0, -3} {
		_, err := NewCommandListScheduler(nil, window, &KernelBuffer{}, nil, nil)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	}
}

func TestRefill_StopsAtWindow(t *testing.T) {
	// GIVEN five kernel launches and a window of two
	var cmds []Command
	for i := 0; i < 5; i++ {
		cmds = append(cmds, kernelCmd("k@1"))
	}
	s, buf, m := newTestScheduler(t, cmds, 2, nil)

	// WHEN the scheduler refills
	n, err := s.Refill(&stubEngine{}, &stubReader{})

	// THEN exactly two kernels are buffered and the cursor points past them
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, buf.Len())
	assert.Equal(t, 2, s.Cursor())
	assert.True(t, s.Pending())
	assert.Equal(t, 2, m.PeakBuffered)

	// AND a second refill with a full buffer consumes nothing
	n, err = s.Refill(&stubEngine{}, &stubReader{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, s.Cursor())
}

func TestRefill_BufferNeverExceedsWindow(t *testing.T) {
	tests := []struct {
		name   string
		window int
		script []Command
	}{
		{"window one", 1, []Command{kernelCmd("a@1"), kernelCmd("b@2"), kernelCmd("c@3")}},
		{"mixed memcpys", 3, []Command{memcpyCmd("0,8"), kernelCmd("a@1"), memcpyCmd("8,8"), kernelCmd("b@1"), kernelCmd("c@2"), kernelCmd("d@3"), kernelCmd("e@4")}},
		{"window larger than script", 16, []Command{kernelCmd("a@1"), kernelCmd("b@1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, buf, _ := newTestScheduler(t, tt.script, tt.window, nil)
			reader := &stubReader{}
			lastCursor := 0
			for s.Pending() {
				_, err := s.Refill(&stubEngine{}, reader)
				require.NoError(t, err)
				assert.LessOrEqual(t, buf.Len(), tt.window)
				assert.GreaterOrEqual(t, s.Cursor(), lastCursor, "cursor must not move backward")
				lastCursor = s.Cursor()
				if buf.Len() > 0 {
					buf.RemoveAt(0) // make room, as cleanup would
				}
			}
		})
	}
}

func TestRefill_MemcpyForwardedImmediately(t *testing.T) {
	// GIVEN a script that opens with two copies
	cmds := []Command{memcpyCmd("4096,256"), memcpyCmd("8192,64"), kernelCmd("k@0")}
	s, buf, m := newTestScheduler(t, cmds, 1, nil)
	eng := &stubEngine{}

	// WHEN refilled
	n, err := s.Refill(eng, &stubReader{})

	// THEN the copies reach the engine in order and never occupy the window
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][2]uint64{{4096, 256}, {8192, 64}}, eng.memcpys)
	assert.Equal(t, 1, buf.Len())
	assert.Equal(t, 2, m.Memcpys)
	assert.Equal(t, uint64(320), m.MemcpyBytes)
	assert.Equal(t, 3, m.CommandsRead)
}

func TestRefill_AssignsSequentialUIDs(t *testing.T) {
	cmds := []Command{kernelCmd("a@1"), kernelCmd("b@2x4"), kernelCmd("c@1")}
	s, buf, _ := newTestScheduler(t, cmds, 3, nil)

	_, err := s.Refill(&stubEngine{}, &stubReader{})
	require.NoError(t, err)

	require.Equal(t, 3, buf.Len())
	for i, k := range buf.Items() {
		assert.Equal(t, uint64(i+1), k.UID)
		assert.False(t, k.Launched)
		require.NotNil(t, k.Info)
	}
	assert.Equal(t, "b", buf.Items()[1].Name)
	assert.Equal(t, uint64(2), buf.Items()[1].StreamID)
	assert.Equal(t, 4, buf.Items()[1].Info.Grid.Size())
}

func TestRefill_Failures(t *testing.T) {
	tests := []struct {
		name       string
		script     []Command
		wantIs     error
		wantCursor int
	}{
		{"unknown kind", []Command{kernelCmd("a@1"), {Kind: CommandUnknown, Payload: "barrier"}}, ErrMalformedCommand, 1},
		{"pim without workload", []Command{{Kind: CommandPimLayerLaunch, Payload: "x"}}, ErrMalformedCommand, 0},
		{"unreadable kernel", []Command{kernelCmd("bad@1")}, nil, 0},
		{"unreadable memcpy", []Command{memcpyCmd("not-a-copy")}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestScheduler(t, tt.script, 4, nil)
			_, err := s.Refill(&stubEngine{}, &stubReader{})
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Equal(t, tt.wantCursor, s.Cursor(), "failing command is not consumed")
		})
	}
}

func TestRefill_PimLayerLaunch_LaunchesNewMarkersOnce(t *testing.T) {
	// GIVEN a script announcing the same conv2d layer twice
	line := testutil.Conv2DDescriptor("conv2d_1", testutil.ResNetConv1Params)
	cmds := []Command{
		{Kind: CommandPimLayerLaunch, Payload: line},
		kernelCmd("k@0"),
		{Kind: CommandPimLayerLaunch, Payload: line},
	}
	m := NewMetrics()
	workload := NewPimWorkload(pim.NewParser(pim.NewMarkerCache(0)), m, nil)
	buf := &KernelBuffer{}
	s, err := NewCommandListScheduler(cmds, 4, buf, workload, m)
	require.NoError(t, err)
	eng := &stubEngine{}

	// WHEN the script is read
	_, err = s.Refill(eng, &stubReader{})

	// THEN the layer reaches the engine exactly once and the PIM path is active
	require.NoError(t, err)
	require.Len(t, eng.pimLaunches, 1)
	assert.Equal(t, "conv2d_1", eng.pimLaunches[0][0].Marker)
	assert.True(t, eng.pimActive)
	assert.Equal(t, 1, m.PimLayersLaunched)
	assert.Equal(t, 1, buf.Len())
	assert.False(t, s.Pending())
}
