package graph

import (
	"fortio.org/safecast"

	"github.com/accel-pim/pimsim/sim/simerr"
)

const attrOp = "graph.parseAttributes"

// parseAttributes applies node attributes to layer and returns the set of
// attribute names that were present.
//
// Only pads[0] and pads[1] (begin padding for H and W) are consumed; the end
// padding in pads[2:] is not read.
func parseAttributes(node NodeSpec, layer *LayerRecord) (map[string]bool, error) {
	seen := make(map[string]bool, len(node.Attributes))
	for _, attr := range node.Attributes {
		seen[attr.Name] = true
		switch attr.Name {
		case "kernel_shape":
			vs, err := attrInts(node, attr, 2)
			if err != nil {
				return nil, err
			}
			layer.R, layer.S = vs[0], vs[1]
		case "strides":
			vs, err := attrInts(node, attr, 2)
			if err != nil {
				return nil, err
			}
			if vs[0] <= 0 || vs[1] <= 0 {
				return nil, simerr.New(simerr.MalformedGraph, attrOp,
					"node %q: strides must be positive, got %v", node.Name, vs)
			}
			layer.StrideH, layer.StrideW = vs[0], vs[1]
		case "pads":
			vs, err := attrInts(node, attr, 4)
			if err != nil {
				return nil, err
			}
			layer.PadH, layer.PadW = vs[0], vs[1]
		case "dilations":
			vs, err := attrInts(node, attr, 2)
			if err != nil {
				return nil, err
			}
			layer.DilationH, layer.DilationW = vs[0], vs[1]
		case "group":
			if attr.Int == nil {
				return nil, simerr.New(simerr.MalformedGraph, attrOp,
					"node %q: group must be a scalar", node.Name)
			}
			g, err := safecast.Conv[int](*attr.Int)
			if err != nil {
				return nil, simerr.New(simerr.MalformedGraph, attrOp, "node %q: group: %v", node.Name, err)
			}
			layer.Group = g
		case "ceil_mode":
			// accepted, no effect on shape inference
		default:
			return nil, simerr.New(simerr.UnknownAttribute, attrOp,
				"node %q: attribute %q", node.Name, attr.Name)
		}
	}
	return seen, nil
}

func attrInts(node NodeSpec, attr AttributeSpec, want int) ([]int, error) {
	if len(attr.Ints) != want {
		return nil, simerr.New(simerr.MalformedGraph, attrOp,
			"node %q: %s expects %d ints, got %d", node.Name, attr.Name, want, len(attr.Ints))
	}
	return toInts(attr.Ints)
}

// toInts narrows int64 values with overflow checking.
func toInts(vs []int64) ([]int, error) {
	out := make([]int, len(vs))
	for i, v := range vs {
		n, err := safecast.Conv[int](v)
		if err != nil {
			return nil, simerr.New(simerr.MalformedGraph, "graph.toInts", "value %d: %v", v, err)
		}
		out[i] = n
	}
	return out, nil
}
