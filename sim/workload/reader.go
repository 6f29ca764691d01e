package workload

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim"
	"github.com/accel-pim/pimsim/sim/simerr"
)

// Reader implements sim.TraceReader over accel-sim kernel traces. It reads
// only the "-key = value" header of each trace; the open file is kept as the
// kernel's handle until FinalizeKernel.
type Reader struct {
	open      int
	finalized int
}

// NewReader returns a trace reader.
func NewReader() *Reader {
	return &Reader{}
}

// ParseMemcpy parses "MemcpyHtoD,0x<addr>,<bytes>".
func (r *Reader) ParseMemcpy(payload string) (uint64, uint64, error) {
	parts := strings.Split(payload, ",")
	if len(parts) != 3 || strings.TrimSpace(parts[0]) != memcpyPrefix {
		return 0, 0, simerr.New(simerr.MalformedCommand, "workload.ParseMemcpy",
			"expected %s,<addr>,<bytes>, got %q", memcpyPrefix, payload)
	}
	addr, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 64)
	if err != nil {
		return 0, 0, simerr.New(simerr.MalformedCommand, "workload.ParseMemcpy", "address: %v", err)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return 0, 0, simerr.New(simerr.MalformedCommand, "workload.ParseMemcpy", "byte count: %v", err)
	}
	return addr, n, nil
}

// ParseKernel opens the trace at path and reads its header up to the first
// line that is not a "-key = value" pair.
func (r *Reader) ParseKernel(path string) (*sim.KernelInfo, error) {
	if strings.HasSuffix(path, ".xz") {
		return nil, simerr.New(simerr.MalformedCommand, "workload.ParseKernel",
			"%s: compressed traces are not supported", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening kernel trace: %w", err)
	}

	info := &sim.KernelInfo{Path: path}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "-") {
			break
		}
		key, value, ok := strings.Cut(line[1:], "=")
		if !ok {
			break
		}
		if err := applyHeader(info, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("reading kernel trace %s: %w", path, err)
	}
	if info.Name == "" {
		_ = file.Close()
		return nil, simerr.New(simerr.MalformedCommand, "workload.ParseKernel", "%s: no kernel name in header", path)
	}

	info.Handle = file
	r.open++
	return info, nil
}

func applyHeader(info *sim.KernelInfo, key, value string) error {
	var err error
	switch key {
	case "kernel name":
		info.Name = value
	case "kernel id":
		info.TraceID, err = strconv.ParseUint(value, 10, 64)
	case "grid dim":
		info.Grid, err = parseDim3(value)
	case "block dim":
		info.Block, err = parseDim3(value)
	case "shmem":
		info.SharedMem, err = strconv.Atoi(value)
	case "nregs":
		info.Regs, err = strconv.Atoi(value)
	case "cuda stream id":
		info.StreamID, err = strconv.ParseUint(value, 10, 64)
	default:
		// binary version, base addresses, tracer versions: not needed here
		return nil
	}
	if err != nil {
		return simerr.New(simerr.MalformedCommand, "workload.ParseKernel", "header %q: %v", key, err)
	}
	return nil
}

// parseDim3 parses "(x,y,z)".
func parseDim3(s string) (sim.Dim3, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return sim.Dim3{}, fmt.Errorf("expected (x,y,z), got %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return sim.Dim3{}, err
		}
		v[i] = n
	}
	return sim.Dim3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// FinalizeKernel closes the kernel's trace handle.
func (r *Reader) FinalizeKernel(info *sim.KernelInfo) {
	if info == nil || info.Handle == nil {
		return
	}
	if err := info.Handle.Close(); err != nil {
		logrus.Warnf("closing kernel trace %s: %v", info.Path, err)
	}
	info.Handle = nil
	r.open--
	r.finalized++
}

// Open returns the number of kernel traces currently held open.
func (r *Reader) Open() int {
	return r.open
}

// Finalized returns the number of kernels finalized so far.
func (r *Reader) Finalized() int {
	return r.finalized
}
