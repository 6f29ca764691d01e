package graph_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/accel-pim/pimsim/sim/graph"
	"github.com/accel-pim/pimsim/sim/internal/testutil"
)

func TestDecodeONNXModel_ResNetStem_BuildsSameGraphAsSpec(t *testing.T) {
	// GIVEN the stem serialized as an ONNX ModelProto
	data := graph.EncodeONNXModel(testutil.ResNetStem())

	// WHEN it is decoded and built
	spec, err := graph.DecodeONNXModel(data)
	require.NoError(t, err)
	assert.Equal(t, testutil.ResNetStem(), spec)

	fromWire, err := graph.Build(spec)
	require.NoError(t, err)
	direct, err := graph.Build(testutil.ResNetStem())
	require.NoError(t, err)

	// THEN the layer graph is identical to building the GraphSpec directly
	assert.Equal(t, direct.Layers(), fromWire.Layers())
}

func TestDecodeONNXGraph_PackedDimsAndSymbolicInput(t *testing.T) {
	// GIVEN an initializer with packed dims and an input with a dim_param batch
	var dims []byte
	for _, d := range []uint64{64, 3, 7, 7} {
		dims = protowire.AppendVarint(dims, d)
	}
	var tensor []byte
	tensor = protowire.AppendTag(tensor, 1, protowire.BytesType)
	tensor = protowire.AppendBytes(tensor, dims)
	tensor = protowire.AppendTag(tensor, 8, protowire.BytesType)
	tensor = protowire.AppendString(tensor, "w")

	var symbolic []byte
	symbolic = protowire.AppendTag(symbolic, 2, protowire.BytesType)
	symbolic = protowire.AppendString(symbolic, "batch")
	var shape []byte
	shape = protowire.AppendTag(shape, 1, protowire.BytesType)
	shape = protowire.AppendBytes(shape, symbolic)
	for _, d := range []uint64{3, 224, 224} {
		var dim []byte
		dim = protowire.AppendTag(dim, 1, protowire.VarintType)
		dim = protowire.AppendVarint(dim, d)
		shape = protowire.AppendTag(shape, 1, protowire.BytesType)
		shape = protowire.AppendBytes(shape, dim)
	}
	var tensorType []byte
	tensorType = protowire.AppendTag(tensorType, 2, protowire.BytesType)
	tensorType = protowire.AppendBytes(tensorType, shape)
	var typ []byte
	typ = protowire.AppendTag(typ, 1, protowire.BytesType)
	typ = protowire.AppendBytes(typ, tensorType)
	var input []byte
	input = protowire.AppendTag(input, 1, protowire.BytesType)
	input = protowire.AppendString(input, "data")
	input = protowire.AppendTag(input, 2, protowire.BytesType)
	input = protowire.AppendBytes(input, typ)

	var g []byte
	g = protowire.AppendTag(g, 5, protowire.BytesType)
	g = protowire.AppendBytes(g, tensor)
	g = protowire.AppendTag(g, 11, protowire.BytesType)
	g = protowire.AppendBytes(g, input)

	// WHEN decoded
	spec, err := graph.DecodeONNXGraph(g)
	require.NoError(t, err)

	// THEN packed dims and the symbolic batch dimension are read
	require.Len(t, spec.Initializers, 1)
	assert.Equal(t, []int64{64, 3, 7, 7}, spec.Initializers[0].Shape)
	require.Len(t, spec.Inputs, 1)
	assert.Equal(t, []int64{0, 3, 224, 224}, spec.Inputs[0].Shape)
}

func TestDecodeONNXGraph_Truncated_ReturnsError(t *testing.T) {
	data := graph.EncodeONNXGraph(testutil.ResNetStem())
	_, err := graph.DecodeONNXGraph(data[:len(data)-3])
	assert.Error(t, err)
}

func TestDecodeONNXModel_NoGraph(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType) // ir_version
	b = protowire.AppendVarint(b, 7)
	_, err := graph.DecodeONNXModel(b)
	assert.ErrorContains(t, err, "no graph")
}

func TestYAMLGraph_RoundTripAndStrictFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, graph.EncodeYAML(&buf, testutil.ResNetStem()))

	spec, err := graph.DecodeYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, testutil.ResNetStem(), spec)

	_, err = graph.DecodeYAML(bytes.NewReader([]byte("inputs: []\nnodez: []\n")))
	assert.Error(t, err)
}

func TestLoadGraphFile_SelectsFormatByExtension(t *testing.T) {
	onnxPath := testutil.WriteTempFile(t, "stem.onnx", graph.EncodeONNXModel(testutil.ResNetStem()))
	pbPath := testutil.WriteTempFile(t, "stem.pb", graph.EncodeONNXGraph(testutil.ResNetStem()))
	var buf bytes.Buffer
	require.NoError(t, graph.EncodeYAML(&buf, testutil.ResNetStem()))
	yamlPath := testutil.WriteTempFile(t, "stem.yaml", buf.Bytes())

	for _, path := range []string{onnxPath, pbPath, yamlPath} {
		spec, err := graph.LoadGraphFile(path)
		require.NoError(t, err, path)
		assert.Len(t, spec.Nodes, 7, path)
	}

	_, err := graph.LoadGraphFile(onnxPath + ".missing")
	assert.Error(t, err)
}
