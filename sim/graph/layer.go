// Package graph turns a serialized network description into an ordered,
// shape-resolved dependency graph of hardware-mapped compute layers.
//
// Layers live in an arena (Graph) and are addressed by stable LayerID indices;
// producer→consumer edges are index pairs. The package has no dependency on
// the session core so the PIM descriptor parser can share LayerRecord.
package graph

import "fmt"

// LayerType identifies what a LayerRecord computes.
type LayerType int

const (
	LayerInput LayerType = iota
	LayerConv
	LayerRelu
	LayerMaxPool
	LayerAdd
	LayerGlobalAvgPool
	LayerOutput
	// LayerConv2D is produced by the PIM descriptor stream, not by graphs.
	LayerConv2D
)

var layerTypeNames = [...]string{
	LayerInput:         "INPUT",
	LayerConv:          "CONV",
	LayerRelu:          "RELU",
	LayerMaxPool:       "MAXPOOL",
	LayerAdd:           "ADD",
	LayerGlobalAvgPool: "GLOBAL_AVG_POOL",
	LayerOutput:        "OUTPUT",
	LayerConv2D:        "CONV2D",
}

func (t LayerType) String() string {
	if t >= 0 && int(t) < len(layerTypeNames) {
		return layerTypeNames[t]
	}
	return fmt.Sprintf("LayerType(%d)", int(t))
}

// LayerID is the stable arena index of a LayerRecord.
type LayerID int

// NoLayer marks a record that has not been added to a Graph.
const NoLayer LayerID = -1

// LayerRecord describes one compute layer. Geometry follows the usual
// convolution naming: input N×C×H×W, output K×P×Q, filter R×S.
type LayerRecord struct {
	ID     LayerID
	Type   LayerType
	Name   string
	Marker string // PIM descriptor marker; empty for graph layers

	N, C, H, W int
	K, P, Q    int
	R, S       int

	PadH, PadW           int
	StrideH, StrideW     int
	DilationH, DilationW int
	Group                int

	Prev []LayerID // producers
	Next []LayerID // consumers
}

// NewLayerRecord returns a detached record with unit batch, strides,
// dilations and group.
func NewLayerRecord(t LayerType, name string) *LayerRecord {
	return &LayerRecord{
		ID:        NoLayer,
		Type:      t,
		Name:      name,
		N:         1,
		StrideH:   1,
		StrideW:   1,
		DilationH: 1,
		DilationW: 1,
		Group:     1,
	}
}

// Clone returns a deep copy of the record.
func (l *LayerRecord) Clone() *LayerRecord {
	c := *l
	c.Prev = append([]LayerID(nil), l.Prev...)
	c.Next = append([]LayerID(nil), l.Next...)
	return &c
}

// passThrough copies the output geometry of src into l's input and output.
func (l *LayerRecord) passThrough(src *LayerRecord) {
	l.H, l.W, l.C = src.P, src.Q, src.K
	l.K, l.P, l.Q = src.K, src.P, src.Q
}

func (l *LayerRecord) String() string {
	return fmt.Sprintf("%s(%s) C=%d H=%d W=%d -> K=%d P=%d Q=%d",
		l.Type, l.Name, l.C, l.H, l.W, l.K, l.P, l.Q)
}
