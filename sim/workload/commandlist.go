// Package workload loads accel-sim style command lists and reads kernel trace
// headers for the session core.
package workload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/accel-pim/pimsim/sim"
)

const (
	memcpyPrefix   = "MemcpyHtoD"
	pimLayerPrefix = "pim_layer"
)

// LoadCommandList reads a command list file. Kernel trace paths are resolved
// relative to the list's directory.
func LoadCommandList(path string) ([]sim.Command, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening command list: %w", err)
	}
	defer func() { _ = file.Close() }()

	cmds, err := ParseCommandList(file, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// ParseCommandList classifies each line:
//
//	MemcpyHtoD,0x<addr>,<bytes>   memcopy, payload is the line
//	<path>.traceg[.xz]            kernel launch, payload is the resolved path
//	pim_layer ...                 PIM layer launch, payload is the line
//
// Blank lines and '#' comments are skipped. Any other line becomes a command
// of kind unknown; the scheduler rejects it when reached.
func ParseCommandList(r io.Reader, baseDir string) ([]sim.Command, error) {
	var cmds []sim.Command
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, classify(line, baseDir))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading command list: %w", err)
	}
	return cmds, nil
}

func classify(line, baseDir string) sim.Command {
	switch {
	case strings.HasPrefix(line, memcpyPrefix):
		return sim.Command{Kind: sim.CommandMemcpy, Payload: line}
	case strings.HasPrefix(line, pimLayerPrefix):
		return sim.Command{Kind: sim.CommandPimLayerLaunch, Payload: line}
	case strings.HasSuffix(line, ".traceg") || strings.HasSuffix(line, ".traceg.xz"):
		path := line
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		return sim.Command{Kind: sim.CommandKernelLaunch, Payload: path}
	}
	return sim.Command{Kind: sim.CommandUnknown, Payload: line}
}

// LoadDescriptors reads a PIM descriptor stream, one descriptor per line.
// Blank lines and '#' comments are skipped.
func LoadDescriptors(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptors: %w", err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
