package graph

import "github.com/accel-pim/pimsim/sim/simerr"

// OpKind is the closed set of operators the builder can infer shapes for.
type OpKind int

const (
	OpConv OpKind = iota
	OpRelu
	OpMaxPool
	OpAdd
	OpGlobalAveragePool
	numOpKinds
)

var opKindByName = map[string]OpKind{
	"Conv":              OpConv,
	"Relu":              OpRelu,
	"MaxPool":           OpMaxPool,
	"Add":               OpAdd,
	"GlobalAveragePool": OpGlobalAveragePool,
}

// ParseOpKind maps an ONNX op_type to an OpKind.
func ParseOpKind(opType string) (OpKind, bool) {
	k, ok := opKindByName[opType]
	return k, ok
}

func (k OpKind) String() string {
	for name, kind := range opKindByName {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// shapeRule wires a new layer to its producers and resolves its geometry.
type shapeRule struct {
	layer     LayerType
	attrs     bool // parse node attributes before inference
	minInputs int
	maxInputs int // 0 = unbounded
	infer     func(b *Builder, node NodeSpec, layer *LayerRecord, attrs map[string]bool) error
}

// shapeRules is indexed by OpKind; every kind below numOpKinds has an entry.
var shapeRules = [numOpKinds]shapeRule{
	OpConv:              {layer: LayerConv, attrs: true, minInputs: 2, maxInputs: 3, infer: inferConv},
	OpRelu:              {layer: LayerRelu, minInputs: 1, maxInputs: 1, infer: inferPassThrough},
	OpMaxPool:           {layer: LayerMaxPool, attrs: true, minInputs: 1, maxInputs: 1, infer: inferMaxPool},
	OpAdd:               {layer: LayerAdd, minInputs: 1, infer: inferAdd},
	OpGlobalAveragePool: {layer: LayerGlobalAvgPool, minInputs: 1, maxInputs: 1, infer: inferGlobalAvgPool},
}

const inferOp = "graph.infer"

// inferConv: P = (H + 2·pad_h − R) / stride_h + 1, likewise Q. K, C, R, S come
// from the weight initializer [K, C, R, S]; a declared kernel_shape must agree.
func inferConv(b *Builder, node NodeSpec, layer *LayerRecord, attrs map[string]bool) error {
	src, err := b.consume(node, node.Inputs[0], layer)
	if err != nil {
		return err
	}
	layer.H, layer.W, layer.C = src.P, src.Q, src.K

	weights, ok := b.shapes[node.Inputs[1]]
	if !ok {
		return simerr.New(simerr.UnboundTensor, inferOp, "node %q: weight %q has no shape", node.Name, node.Inputs[1])
	}
	if len(weights) != 4 {
		return simerr.New(simerr.ShapeMismatch, inferOp,
			"node %q: weight %q must be 4-D [K,C,R,S], got %v", node.Name, node.Inputs[1], weights)
	}
	if !attrs["kernel_shape"] {
		layer.R, layer.S = weights[2], weights[3]
	}
	if weights[2] != layer.R || weights[3] != layer.S {
		return simerr.New(simerr.ShapeMismatch, inferOp,
			"node %q: kernel_shape %dx%d does not match weight %dx%d", node.Name, layer.R, layer.S, weights[2], weights[3])
	}
	layer.K, layer.C = weights[0], weights[1]

	layer.P = outExtent(layer.H, layer.PadH, layer.R, layer.StrideH)
	layer.Q = outExtent(layer.W, layer.PadW, layer.S, layer.StrideW)
	return checkOutputExtent(node, layer)
}

// inferMaxPool: P = (H − R + 2·pad_h) / stride_h + 1; channels pass through.
func inferMaxPool(b *Builder, node NodeSpec, layer *LayerRecord, attrs map[string]bool) error {
	if !attrs["kernel_shape"] {
		return simerr.New(simerr.MalformedGraph, inferOp, "node %q: MaxPool requires kernel_shape", node.Name)
	}
	src, err := b.consume(node, node.Inputs[0], layer)
	if err != nil {
		return err
	}
	layer.H, layer.W, layer.C = src.P, src.Q, src.K
	layer.K = src.K
	layer.P = outExtent(src.P, layer.PadH, layer.R, layer.StrideH)
	layer.Q = outExtent(src.Q, layer.PadW, layer.S, layer.StrideW)
	return checkOutputExtent(node, layer)
}

func inferPassThrough(b *Builder, node NodeSpec, layer *LayerRecord, _ map[string]bool) error {
	src, err := b.consume(node, node.Inputs[0], layer)
	if err != nil {
		return err
	}
	layer.passThrough(src)
	return nil
}

// inferAdd depends on every input; geometry comes from the first.
func inferAdd(b *Builder, node NodeSpec, layer *LayerRecord, _ map[string]bool) error {
	var first *LayerRecord
	for _, in := range node.Inputs {
		src, err := b.consume(node, in, layer)
		if err != nil {
			return err
		}
		if first == nil {
			first = src
		}
	}
	layer.passThrough(first)
	return nil
}

func inferGlobalAvgPool(b *Builder, node NodeSpec, layer *LayerRecord, _ map[string]bool) error {
	if err := inferPassThrough(b, node, layer, nil); err != nil {
		return err
	}
	layer.P, layer.Q = 1, 1
	return nil
}

// outExtent is (in + 2·pad − k) / stride + 1 with integer division, or 0 when
// the window does not fit.
func outExtent(in, pad, k, stride int) int {
	span := in + 2*pad - k
	if span < 0 {
		return 0
	}
	return span/stride + 1
}

func checkOutputExtent(node NodeSpec, layer *LayerRecord) error {
	if layer.P <= 0 || layer.Q <= 0 {
		return simerr.New(simerr.ShapeMismatch, inferOp,
			"node %q: output extent %dx%d is not positive", node.Name, layer.P, layer.Q)
	}
	return nil
}
