package graph

import (
	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/simerr"
)

// DefaultInputChannels is the channel count given to an INPUT layer whose
// declared shape carries no channel extent.
const DefaultInputChannels = 3

const buildOp = "graph.Build"

// Builder accumulates the name-binding and shape tables while a GraphSpec is
// converted into a Graph. A Builder is single-use.
type Builder struct {
	graph    *Graph
	bindings map[string]LayerID // producer output name -> layer
	shapes   map[string][]int   // tensor / initializer name -> shape
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		graph:    NewGraph(),
		bindings: make(map[string]LayerID),
		shapes:   make(map[string][]int),
	}
}

// Build converts spec into a shape-resolved Graph using a fresh Builder.
func Build(spec *GraphSpec) (*Graph, error) {
	return NewBuilder().Build(spec)
}

// Build processes inputs, initializers, nodes and declared outputs in that
// order. The first structural inconsistency aborts the build.
func (b *Builder) Build(spec *GraphSpec) (*Graph, error) {
	if spec == nil {
		return nil, simerr.New(simerr.MalformedGraph, buildOp, "nil graph")
	}
	for _, in := range spec.Inputs {
		if err := b.bindInput(in); err != nil {
			return nil, err
		}
	}
	for _, init := range spec.Initializers {
		shape, err := toInts(init.Shape)
		if err != nil {
			return nil, err
		}
		b.shapes[init.Name] = shape
	}
	for _, node := range spec.Nodes {
		if err := b.addNode(node); err != nil {
			return nil, err
		}
	}
	for _, name := range spec.Outputs {
		if err := b.bindOutput(name); err != nil {
			return nil, err
		}
	}
	logrus.Debugf("graph %q: %d layers, %d edges", spec.Name, b.graph.Len(), len(b.graph.Edges()))
	return b.graph, nil
}

// bindInput seeds an INPUT layer from an N×C×H×W shape. The layer passes its
// input straight through, so P=H, Q=W and K=C.
func (b *Builder) bindInput(in ValueSpec) error {
	if len(in.Shape) < 4 {
		return simerr.New(simerr.MalformedGraph, buildOp,
			"input %q: shape %v has fewer than 4 dims", in.Name, in.Shape)
	}
	shape, err := toInts(in.Shape)
	if err != nil {
		return err
	}
	layer := NewLayerRecord(LayerInput, in.Name)
	layer.C = DefaultInputChannels
	if shape[1] > 0 {
		layer.C = shape[1]
	}
	layer.H, layer.W = shape[2], shape[3]
	layer.K, layer.P, layer.Q = layer.C, layer.H, layer.W

	if err := b.bind(in.Name, b.graph.Add(layer)); err != nil {
		return err
	}
	b.shapes[in.Name] = shape
	return nil
}

func (b *Builder) addNode(node NodeSpec) error {
	kind, ok := ParseOpKind(node.OpType)
	if !ok {
		return simerr.New(simerr.UnknownOperator, buildOp, "node %q: op_type %q", node.Name, node.OpType)
	}
	rule := shapeRules[kind]
	if len(node.Outputs) != 1 {
		return simerr.New(simerr.MalformedGraph, buildOp,
			"node %q: expected exactly one output, got %d", node.Name, len(node.Outputs))
	}
	if n := len(node.Inputs); n < rule.minInputs || (rule.maxInputs > 0 && n > rule.maxInputs) {
		return simerr.New(simerr.MalformedGraph, buildOp,
			"node %q: %s takes %d..%d inputs, got %d", node.Name, kind, rule.minInputs, rule.maxInputs, n)
	}
	if _, bound := b.bindings[node.Outputs[0]]; bound {
		return simerr.New(simerr.DuplicateBinding, buildOp,
			"node %q: output %q is already bound", node.Name, node.Outputs[0])
	}

	layer := NewLayerRecord(rule.layer, node.Name)
	var attrs map[string]bool
	if rule.attrs {
		var err error
		if attrs, err = parseAttributes(node, layer); err != nil {
			return err
		}
	}
	id := b.graph.Add(layer)
	if err := rule.infer(b, node, layer, attrs); err != nil {
		return err
	}
	return b.bind(node.Outputs[0], id)
}

// bindOutput appends a terminal OUTPUT layer consuming the named producer.
func (b *Builder) bindOutput(name string) error {
	layer := NewLayerRecord(LayerOutput, name)
	b.graph.Add(layer)
	src, err := b.consume(NodeSpec{Name: name}, name, layer)
	if err != nil {
		return err
	}
	layer.passThrough(src)
	return nil
}

// consume resolves the producer of tensor and adds the edge producer→layer.
func (b *Builder) consume(node NodeSpec, tensor string, layer *LayerRecord) (*LayerRecord, error) {
	id, ok := b.bindings[tensor]
	if !ok {
		return nil, simerr.New(simerr.UnboundTensor, buildOp, "node %q: input %q has no producer", node.Name, tensor)
	}
	if err := b.graph.Connect(id, layer.ID); err != nil {
		return nil, err
	}
	return b.graph.Layer(id), nil
}

func (b *Builder) bind(name string, id LayerID) error {
	if _, bound := b.bindings[name]; bound {
		return simerr.New(simerr.DuplicateBinding, buildOp, "%q is already bound", name)
	}
	b.bindings[name] = id
	return nil
}

// Shape returns the recorded shape of a tensor or initializer.
func (b *Builder) Shape(name string) ([]int, bool) {
	s, ok := b.shapes[name]
	return s, ok
}
