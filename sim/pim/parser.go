// Package pim parses the textual per-layer descriptor stream that announces
// processing-in-memory layers, deduplicating by marker.
//
// A descriptor is a quote-delimited line. Splitting it on '"' puts the marker
// at token 9 and, for conv2d markers, a comma-separated key=value parameter
// block at token 13:
//
//	pim_layer "0" "cuda" "1" "0" "conv2d_17" "args" "N=1,C=3,...,g=1" "end"
package pim

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/accel-pim/pimsim/sim/graph"
	"github.com/accel-pim/pimsim/sim/simerr"
)

const (
	markerToken = 9
	paramsToken = 13

	parseOp = "pim.Parse"
)

// param binds a descriptor key to a LayerRecord field.
type param struct {
	key   string
	field func(l *graph.LayerRecord) *int
}

// conv2dParams lists the conv2d keys in comparison order.
var conv2dParams = []param{
	{"N", func(l *graph.LayerRecord) *int { return &l.N }},
	{"C", func(l *graph.LayerRecord) *int { return &l.C }},
	{"H", func(l *graph.LayerRecord) *int { return &l.H }},
	{"W", func(l *graph.LayerRecord) *int { return &l.W }},
	{"K", func(l *graph.LayerRecord) *int { return &l.K }},
	{"P", func(l *graph.LayerRecord) *int { return &l.P }},
	{"Q", func(l *graph.LayerRecord) *int { return &l.Q }},
	{"R", func(l *graph.LayerRecord) *int { return &l.R }},
	{"S", func(l *graph.LayerRecord) *int { return &l.S }},
	{"ph", func(l *graph.LayerRecord) *int { return &l.PadH }},
	{"pw", func(l *graph.LayerRecord) *int { return &l.PadW }},
	{"U", func(l *graph.LayerRecord) *int { return &l.StrideH }},
	{"V", func(l *graph.LayerRecord) *int { return &l.StrideW }},
	{"dh", func(l *graph.LayerRecord) *int { return &l.DilationH }},
	{"dw", func(l *graph.LayerRecord) *int { return &l.DilationW }},
	{"g", func(l *graph.LayerRecord) *int { return &l.Group }},
}

// Parser turns descriptor lines into layer records against a MarkerCache.
// Deduplication is per parser: a marker the cache already holds from a loaded
// snapshot is validated against it, but its first sighting through this
// parser still yields a layer.
type Parser struct {
	cache *MarkerCache
	seen  map[string]bool // markers this parser has returned as new
}

// NewParser returns a parser that deduplicates through cache.
func NewParser(cache *MarkerCache) *Parser {
	return &Parser{cache: cache, seen: make(map[string]bool)}
}

// Cache returns the parser's marker cache.
func (p *Parser) Cache() *MarkerCache {
	return p.cache
}

// Parse parses one descriptor line.
//
// On the first sighting of a marker it returns the new record and true. A
// repeat sighting whose parameters all equal the cached record returns
// (nil, false, nil); any differing parameter is a ParameterMismatch. A marker
// cached before this parser saw it is checked the same way and then returned
// as new once.
func (p *Parser) Parse(line string) (*graph.LayerRecord, bool, error) {
	tokens := strings.Split(line, `"`)
	if len(tokens) <= markerToken {
		return nil, false, simerr.New(simerr.MalformedDescriptor, parseOp,
			"expected a marker at token %d, line has %d tokens", markerToken, len(tokens))
	}
	marker := strings.TrimSpace(tokens[markerToken])
	if !strings.Contains(marker, "conv2d") {
		return nil, false, simerr.New(simerr.UndefinedMarker, parseOp, "marker %q has no known layer type", marker)
	}
	if len(tokens) <= paramsToken {
		return nil, false, simerr.New(simerr.MalformedDescriptor, parseOp,
			"marker %q: no parameter block at token %d", marker, paramsToken)
	}

	layer := graph.NewLayerRecord(graph.LayerConv2D, marker)
	layer.Marker = marker
	if err := parseParams(marker, tokens[paramsToken], layer); err != nil {
		return nil, false, err
	}

	if cached, ok := p.cache.Lookup(marker); ok {
		for _, prm := range conv2dParams {
			got, want := *prm.field(layer), *prm.field(cached)
			if got != want {
				return nil, false, simerr.New(simerr.ParameterMismatch, parseOp,
					"marker %q: %s=%d, previously %d", marker, prm.key, got, want)
			}
		}
		if p.seen[marker] {
			return nil, false, nil
		}
		p.seen[marker] = true
		logrus.Debugf("pim: layer %s known from snapshot", layer)
		return layer, true, nil
	}

	p.cache.Insert(marker, layer)
	p.seen[marker] = true
	logrus.Debugf("pim: new layer %s", layer)
	return layer, true, nil
}

func parseParams(marker, block string, layer *graph.LayerRecord) error {
	seen := make(map[string]bool, len(conv2dParams))
	for _, kv := range strings.Split(block, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return simerr.New(simerr.MalformedDescriptor, parseOp, "marker %q: %q is not key=value", marker, kv)
		}
		key = strings.TrimSpace(key)
		prm, ok := lookupParam(key)
		if !ok {
			return simerr.New(simerr.MalformedDescriptor, parseOp, "marker %q: unknown key %q", marker, key)
		}
		if seen[key] {
			return simerr.New(simerr.MalformedDescriptor, parseOp, "marker %q: key %q repeated", marker, key)
		}
		seen[key] = true
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return simerr.New(simerr.MalformedDescriptor, parseOp, "marker %q: %s: %v", marker, key, err)
		}
		*prm.field(layer) = n
	}
	return nil
}

func lookupParam(key string) (param, bool) {
	for _, prm := range conv2dParams {
		if prm.key == key {
			return prm, true
		}
	}
	return param{}, false
}
