package graph

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML graph description with strict field checking.
func DecodeYAML(r io.Reader) (*GraphSpec, error) {
	var spec GraphSpec
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing graph yaml: %w", err)
	}
	return &spec, nil
}

// EncodeYAML writes spec in the format DecodeYAML reads.
func EncodeYAML(w io.Writer, spec *GraphSpec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return fmt.Errorf("encoding graph yaml: %w", err)
	}
	return enc.Close()
}

// LoadGraphFile reads a graph from disk. Files ending in .onnx hold a
// ModelProto, .pb a bare GraphProto; anything else is read as YAML.
func LoadGraphFile(path string) (*GraphSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}
	return DecodeGraph(filepath.Ext(path), data)
}

// DecodeGraph decodes data according to a file extension.
func DecodeGraph(ext string, data []byte) (*GraphSpec, error) {
	switch strings.ToLower(ext) {
	case ".onnx":
		return DecodeONNXModel(data)
	case ".pb":
		return DecodeONNXGraph(data)
	default:
		return DecodeYAML(bytes.NewReader(data))
	}
}
