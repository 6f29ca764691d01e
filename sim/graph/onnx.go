package graph

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ONNX field numbers for the subset of onnx.proto read here.
const (
	modelGraph protowire.Number = 7

	graphNode        protowire.Number = 1
	graphName        protowire.Number = 2
	graphInitializer protowire.Number = 5
	graphInput       protowire.Number = 11
	graphOutput      protowire.Number = 12

	nodeInput     protowire.Number = 1
	nodeOutput    protowire.Number = 2
	nodeName      protowire.Number = 3
	nodeOpType    protowire.Number = 4
	nodeAttribute protowire.Number = 5

	attrName      protowire.Number = 1
	attrInt       protowire.Number = 3
	attrIntsField protowire.Number = 8
	attrType      protowire.Number = 20

	tensorDims protowire.Number = 1
	tensorName protowire.Number = 8

	valueInfoName protowire.Number = 1
	valueInfoType protowire.Number = 2
	typeTensor    protowire.Number = 1
	tensorShape   protowire.Number = 2
	shapeDim      protowire.Number = 1
	dimValue      protowire.Number = 1
)

// AttributeProto.AttributeType values.
const (
	attrTypeInt  = 2
	attrTypeInts = 7
)

// field is one decoded wire field. Only varint and length-delimited payloads
// are kept; other wire types are skipped.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// appendInt64s handles both packed and unpacked repeated int64 encodings.
func appendInt64s(dst []int64, f field) ([]int64, error) {
	switch f.typ {
	case protowire.VarintType:
		return append(dst, int64(f.varint)), nil
	case protowire.BytesType:
		b := f.bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			dst = append(dst, int64(v))
			b = b[n:]
		}
		return dst, nil
	}
	return dst, nil
}

// DecodeONNXModel decodes a serialized ModelProto and returns its graph.
func DecodeONNXModel(data []byte) (*GraphSpec, error) {
	var graphBytes []byte
	err := walk(data, func(f field) error {
		if f.num == modelGraph && f.typ == protowire.BytesType {
			graphBytes = f.bytes
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding onnx model: %w", err)
	}
	if graphBytes == nil {
		return nil, fmt.Errorf("decoding onnx model: no graph")
	}
	return DecodeONNXGraph(graphBytes)
}

// DecodeONNXGraph decodes a serialized GraphProto.
func DecodeONNXGraph(data []byte) (*GraphSpec, error) {
	spec := &GraphSpec{}
	err := walk(data, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case graphName:
			spec.Name = string(f.bytes)
		case graphNode:
			node, err := decodeNode(f.bytes)
			if err != nil {
				return err
			}
			spec.Nodes = append(spec.Nodes, node)
		case graphInitializer:
			init, err := decodeTensor(f.bytes)
			if err != nil {
				return err
			}
			spec.Initializers = append(spec.Initializers, init)
		case graphInput:
			in, err := decodeValueInfo(f.bytes)
			if err != nil {
				return err
			}
			spec.Inputs = append(spec.Inputs, in)
		case graphOutput:
			out, err := decodeValueInfo(f.bytes)
			if err != nil {
				return err
			}
			spec.Outputs = append(spec.Outputs, out.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding onnx graph: %w", err)
	}
	return spec, nil
}

func decodeNode(b []byte) (NodeSpec, error) {
	var node NodeSpec
	err := walk(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case nodeInput:
			node.Inputs = append(node.Inputs, string(f.bytes))
		case nodeOutput:
			node.Outputs = append(node.Outputs, string(f.bytes))
		case nodeName:
			node.Name = string(f.bytes)
		case nodeOpType:
			node.OpType = string(f.bytes)
		case nodeAttribute:
			attr, err := decodeAttribute(f.bytes)
			if err != nil {
				return err
			}
			node.Attributes = append(node.Attributes, attr)
		}
		return nil
	})
	return node, err
}

func decodeAttribute(b []byte) (AttributeSpec, error) {
	var attr AttributeSpec
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case attrName:
			attr.Name = string(f.bytes)
		case attrInt:
			if f.typ == protowire.VarintType {
				v := int64(f.varint)
				attr.Int = &v
			}
		case attrIntsField:
			attr.Ints, err = appendInt64s(attr.Ints, f)
		}
		return err
	})
	return attr, err
}

func decodeTensor(b []byte) (ValueSpec, error) {
	var v ValueSpec
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case tensorDims:
			v.Shape, err = appendInt64s(v.Shape, f)
		case tensorName:
			v.Name = string(f.bytes)
		}
		return err
	})
	return v, err
}

// decodeValueInfo reads name and type.tensor_type.shape.dim[*].dim_value.
// Symbolic dimensions decode as 0.
func decodeValueInfo(b []byte) (ValueSpec, error) {
	var v ValueSpec
	err := walk(b, func(f field) error {
		switch f.num {
		case valueInfoName:
			v.Name = string(f.bytes)
		case valueInfoType:
			return walk(f.bytes, func(t field) error {
				if t.num != typeTensor {
					return nil
				}
				return walk(t.bytes, func(tt field) error {
					if tt.num != tensorShape {
						return nil
					}
					return walk(tt.bytes, func(s field) error {
						if s.num != shapeDim {
							return nil
						}
						var dim int64
						err := walk(s.bytes, func(d field) error {
							if d.num == dimValue && d.typ == protowire.VarintType {
								dim = int64(d.varint)
							}
							return nil
						})
						v.Shape = append(v.Shape, dim)
						return err
					})
				})
			})
		}
		return nil
	})
	return v, err
}

// EncodeONNXModel wraps EncodeONNXGraph in a ModelProto.
func EncodeONNXModel(spec *GraphSpec) []byte {
	var b []byte
	b = protowire.AppendTag(b, modelGraph, protowire.BytesType)
	return protowire.AppendBytes(b, EncodeONNXGraph(spec))
}

// EncodeONNXGraph serializes the subset of spec that DecodeONNXGraph reads.
func EncodeONNXGraph(spec *GraphSpec) []byte {
	var b []byte
	for _, node := range spec.Nodes {
		b = appendMessage(b, graphNode, encodeNode(node))
	}
	if spec.Name != "" {
		b = appendString(b, graphName, spec.Name)
	}
	for _, init := range spec.Initializers {
		var t []byte
		for _, d := range init.Shape {
			t = protowire.AppendTag(t, tensorDims, protowire.VarintType)
			t = protowire.AppendVarint(t, uint64(d))
		}
		t = appendString(t, tensorName, init.Name)
		b = appendMessage(b, graphInitializer, t)
	}
	for _, in := range spec.Inputs {
		b = appendMessage(b, graphInput, encodeValueInfo(in))
	}
	for _, out := range spec.Outputs {
		b = appendMessage(b, graphOutput, encodeValueInfo(ValueSpec{Name: out}))
	}
	return b
}

func encodeNode(node NodeSpec) []byte {
	var b []byte
	for _, in := range node.Inputs {
		b = appendString(b, nodeInput, in)
	}
	for _, out := range node.Outputs {
		b = appendString(b, nodeOutput, out)
	}
	b = appendString(b, nodeName, node.Name)
	b = appendString(b, nodeOpType, node.OpType)
	for _, attr := range node.Attributes {
		var a []byte
		a = appendString(a, attrName, attr.Name)
		if attr.Int != nil {
			a = protowire.AppendTag(a, attrInt, protowire.VarintType)
			a = protowire.AppendVarint(a, uint64(*attr.Int))
			a = protowire.AppendTag(a, attrType, protowire.VarintType)
			a = protowire.AppendVarint(a, attrTypeInt)
		} else {
			for _, v := range attr.Ints {
				a = protowire.AppendTag(a, attrIntsField, protowire.VarintType)
				a = protowire.AppendVarint(a, uint64(v))
			}
			a = protowire.AppendTag(a, attrType, protowire.VarintType)
			a = protowire.AppendVarint(a, attrTypeInts)
		}
		b = appendMessage(b, nodeAttribute, a)
	}
	return b
}

func encodeValueInfo(v ValueSpec) []byte {
	var b []byte
	b = appendString(b, valueInfoName, v.Name)
	if len(v.Shape) == 0 {
		return b
	}
	var shape []byte
	for _, d := range v.Shape {
		var dim []byte
		dim = protowire.AppendTag(dim, dimValue, protowire.VarintType)
		dim = protowire.AppendVarint(dim, uint64(d))
		shape = appendMessage(shape, shapeDim, dim)
	}
	tensor := appendMessage(nil, tensorShape, shape)
	typ := appendMessage(nil, typeTensor, tensor)
	return appendMessage(b, valueInfoType, typ)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
