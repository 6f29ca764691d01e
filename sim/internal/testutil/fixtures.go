// Package testutil provides shared test infrastructure for the pimsim packages:
// network-graph fixtures and temp-file helpers used by sim/, sim/graph/,
// sim/workload/ and cmd/ tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/accel-pim/pimsim/sim/graph"
)

// ResNetStem returns the first block of a ResNet-50 style network:
//
//	data[1,3,224,224] -> conv1(7x7/2, pad 3) -> relu1 -> pool1(3x3/2, pad 1)
//	  -> conv2(3x3/1, pad 1) -> relu2 -> add(relu2, pool1) -> gap -> output
//
// Expected extents: conv1 112x112x64, pool1 56x56x64, gap 1x1x64.
func ResNetStem() *graph.GraphSpec {
	return &graph.GraphSpec{
		Name: "resnet-stem",
		Inputs: []graph.ValueSpec{
			{Name: "data", Shape: []int64{1, 3, 224, 224}},
		},
		Initializers: []graph.ValueSpec{
			{Name: "conv1_w", Shape: []int64{64, 3, 7, 7}},
			{Name: "conv1_b", Shape: []int64{64}},
			{Name: "conv2_w", Shape: []int64{64, 64, 3, 3}},
			{Name: "conv2_b", Shape: []int64{64}},
		},
		Nodes: []graph.NodeSpec{
			{
				Name: "conv1", OpType: "Conv",
				Inputs: []string{"data", "conv1_w", "conv1_b"}, Outputs: []string{"conv1_out"},
				Attributes: []graph.AttributeSpec{
					graph.IntsAttr("dilations", 1, 1),
					graph.IntAttr("group", 1),
					graph.IntsAttr("kernel_shape", 7, 7),
					graph.IntsAttr("pads", 3, 3, 3, 3),
					graph.IntsAttr("strides", 2, 2),
				},
			},
			{Name: "relu1", OpType: "Relu", Inputs: []string{"conv1_out"}, Outputs: []string{"relu1_out"}},
			{
				Name: "pool1", OpType: "MaxPool",
				Inputs: []string{"relu1_out"}, Outputs: []string{"pool1_out"},
				Attributes: []graph.AttributeSpec{
					graph.IntAttr("ceil_mode", 0),
					graph.IntsAttr("kernel_shape", 3, 3),
					graph.IntsAttr("pads", 1, 1, 1, 1),
					graph.IntsAttr("strides", 2, 2),
				},
			},
			{
				Name: "conv2", OpType: "Conv",
				Inputs: []string{"pool1_out", "conv2_w", "conv2_b"}, Outputs: []string{"conv2_out"},
				Attributes: []graph.AttributeSpec{
					graph.IntsAttr("kernel_shape", 3, 3),
					graph.IntsAttr("pads", 1, 1, 1, 1),
					graph.IntsAttr("strides", 1, 1),
				},
			},
			{Name: "relu2", OpType: "Relu", Inputs: []string{"conv2_out"}, Outputs: []string{"relu2_out"}},
			{Name: "add1", OpType: "Add", Inputs: []string{"relu2_out", "pool1_out"}, Outputs: []string{"add1_out"}},
			{Name: "gap", OpType: "GlobalAveragePool", Inputs: []string{"add1_out"}, Outputs: []string{"gap_out"}},
		},
		Outputs: []string{"gap_out"},
	}
}

// ResNetStemLayerCount is the number of layers Build produces for ResNetStem:
// one input, seven operators and one output.
const ResNetStemLayerCount = 9

// Conv2DDescriptor returns a quote-delimited PIM descriptor line whose marker
// sits at token 9 and whose parameter block sits at token 13.
func Conv2DDescriptor(marker, params string) string {
	return `pim_layer "0" "cuda" "1" "0" "` + marker + `" "args" "` + params + `" "end"`
}

// ResNetConv1Params is the parameter block matching conv1 of ResNetStem.
const ResNetConv1Params = "N=1,C=3,H=224,W=224,K=64,P=112,Q=112,R=7,S=7,ph=3,pw=3,U=2,V=2,dh=1,dw=1,g=1"

// WriteTempFile writes content to name inside a per-test directory and
// returns the full path.
func WriteTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// KernelTrace returns an accel-sim kernel trace whose header declares the
// given name, kernel id, stream and an X-only grid, followed by one warp line.
func KernelTrace(name string, kernelID, stream uint64, gridX int) []byte {
	return []byte(fmt.Sprintf(`-kernel name = %s
-kernel id = %d
-grid dim = (%d,1,1)
-block dim = (256,1,1)
-shmem = 0
-nregs = 32
-binary version = 70
-cuda stream id = %d
-shmem base_addr = 0x00007f0000000000
-local mem base_addr = 0x00007f1000000000
-nvbit version = 1.5.5
-accelsim tracer version = 3

#traces format = threadblock_x threadblock_y threadblock_z warpid_tb PC mask dest_num [reg_dests] opcode src_num [reg_srcs] mem_width [adrrescompress?] [mem_addresses]

#BEGIN_TB

thread block = 0,0,0
`, name, kernelID, gridX, stream))
}
