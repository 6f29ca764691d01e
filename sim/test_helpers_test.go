package sim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/accel-pim/pimsim/sim/graph"
)

// stubEngine is a hand-driven Engine: tests set its flags directly and
// script completions through finishedQ / onCycle.
type stubEngine struct {
	full      bool // CanStartKernel returns !full
	active    bool
	maxHit    bool
	pimActive bool
	finishedQ []uint64

	onCycle func(e *stubEngine) // optional per-cycle script

	launched    []*KernelRecord
	memcpys     [][2]uint64
	pimLaunches [][]*graph.LayerRecord
	cycles      int
	printStats  int
	updateStats int
	stopAll     int
}

func (e *stubEngine) CanStartKernel() bool { return !e.full }
func (e *stubEngine) Launch(k *KernelRecord) {
	e.launched = append(e.launched, k)
	e.active = true
}
func (e *stubEngine) Cycle() {
	e.cycles++
	if e.onCycle != nil {
		e.onCycle(e)
	}
}
func (e *stubEngine) Active() bool { return e.active }
func (e *stubEngine) FinishedKernel() uint64 {
	if len(e.finishedQ) == 0 {
		return 0
	}
	uid := e.finishedQ[0]
	e.finishedQ = e.finishedQ[1:]
	return uid
}
func (e *stubEngine) MaxHit() bool   { return e.maxHit }
func (e *stubEngine) DeadlockCheck() {}
func (e *stubEngine) PrintStats()    { e.printStats++ }
func (e *stubEngine) UpdateStats()   { e.updateStats++ }
func (e *stubEngine) LaunchPim(layers []*graph.LayerRecord) {
	e.pimLaunches = append(e.pimLaunches, layers)
}
func (e *stubEngine) PimActive() bool          { return e.pimActive }
func (e *stubEngine) SetPimActive(active bool) { e.pimActive = active }
func (e *stubEngine) MemcpyToGPU(addr, bytes uint64) {
	e.memcpys = append(e.memcpys, [2]uint64{addr, bytes})
}
func (e *stubEngine) StopAllRunningKernels() {
	e.stopAll++
	e.active = false
}

// stubReader parses test payloads:
//
//	memcopy: "<addr>,<bytes>"
//	kernel:  "<name>@<stream>[x<blocks>]"
//
// A kernel payload of "bad" fails.
type stubReader struct {
	finalized []string
}

func (r *stubReader) ParseMemcpy(payload string) (uint64, uint64, error) {
	var addr, n uint64
	if _, err := fmt.Sscanf(payload, "%d,%d", &addr, &n); err != nil {
		return 0, 0, fmt.Errorf("memcpy %q: %w", payload, err)
	}
	return addr, n, nil
}

func (r *stubReader) ParseKernel(payload string) (*KernelInfo, error) {
	name, rest, ok := strings.Cut(payload, "@")
	if !ok || name == "bad" {
		return nil, fmt.Errorf("kernel %q: unreadable header", payload)
	}
	streamPart, blocksPart, hasBlocks := strings.Cut(rest, "x")
	stream, err := strconv.ParseUint(streamPart, 10, 64)
	if err != nil {
		return nil, err
	}
	blocks := 1
	if hasBlocks {
		if blocks, err = strconv.Atoi(blocksPart); err != nil {
			return nil, err
		}
	}
	return &KernelInfo{Name: name, StreamID: stream, Grid: Dim3{X: blocks, Y: 1, Z: 1}}, nil
}

func (r *stubReader) FinalizeKernel(info *KernelInfo) {
	r.finalized = append(r.finalized, info.Name)
}

func kernelCmd(payload string) Command { return Command{Kind: CommandKernelLaunch, Payload: payload} }
func memcpyCmd(payload string) Command { return Command{Kind: CommandMemcpy, Payload: payload} }

// referenceEngine returns the engine registered by sim/engine.
func referenceEngine(cfg EngineConfig, maxCycles int64) Engine {
	if NewEngineFunc == nil {
		panic("NewEngineFunc not registered; engine_import_test.go must blank-import sim/engine")
	}
	return NewEngineFunc(cfg, maxCycles)
}
