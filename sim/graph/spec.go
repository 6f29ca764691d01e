package graph

// GraphSpec is the format-neutral form of a serialized network graph.
// Both the ONNX decoder and the YAML loader produce it.
type GraphSpec struct {
	Name         string      `yaml:"name,omitempty"`
	Inputs       []ValueSpec `yaml:"inputs"`
	Initializers []ValueSpec `yaml:"initializers,omitempty"`
	Nodes        []NodeSpec  `yaml:"nodes"`
	Outputs      []string    `yaml:"outputs"`
}

// ValueSpec is a named tensor with a shape. Symbolic dimensions are 0.
type ValueSpec struct {
	Name  string  `yaml:"name"`
	Shape []int64 `yaml:"shape"`
}

// NodeSpec is one operator node.
type NodeSpec struct {
	Name       string          `yaml:"name"`
	OpType     string          `yaml:"op_type"`
	Inputs     []string        `yaml:"inputs"`
	Outputs    []string        `yaml:"outputs"`
	Attributes []AttributeSpec `yaml:"attributes,omitempty"`
}

// AttributeSpec carries the integer payloads the builder understands.
// Int is set for scalar attributes, Ints for list attributes.
type AttributeSpec struct {
	Name string  `yaml:"name"`
	Int  *int64  `yaml:"i,omitempty"`
	Ints []int64 `yaml:"ints,omitempty"`
}

// IntAttr builds a scalar attribute.
func IntAttr(name string, v int64) AttributeSpec {
	return AttributeSpec{Name: name, Int: &v}
}

// IntsAttr builds a list attribute.
func IntsAttr(name string, vs ...int64) AttributeSpec {
	return AttributeSpec{Name: name, Ints: vs}
}
