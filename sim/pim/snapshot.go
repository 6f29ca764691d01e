package pim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/accel-pim/pimsim/sim/graph"
)

// snapshotSchema is bumped whenever snapshot or LayerRecord layout changes.
const snapshotSchema uint16 = 1

type snapshot struct {
	Schema  uint16
	Markers []string
	Layers  []*graph.LayerRecord
}

// Save writes the cache to path as msgpack. The file is replaced atomically.
func (c *MarkerCache) Save(path string) error {
	snap := snapshot{Schema: snapshotSchema, Markers: c.Markers()}
	for _, m := range snap.Markers {
		snap.Layers = append(snap.Layers, c.entries[m])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("saving marker cache: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "markers-*.tmp")
	if err != nil {
		return fmt.Errorf("saving marker cache: %w", err)
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(&snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("saving marker cache: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("saving marker cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("saving marker cache: %w", err)
	}
	logrus.Infof("marker cache: saved %d markers to %s", len(snap.Markers), path)
	return nil
}

// Load replaces the cache contents with the snapshot at path. A missing file
// leaves the cache untouched and reports false. Entries beyond the cache
// limit are evicted oldest first, as if inserted in order.
func (c *MarkerCache) Load(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("loading marker cache: %w", err)
	}
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("loading marker cache %s: %w", path, err)
	}
	if snap.Schema != snapshotSchema {
		return false, fmt.Errorf("loading marker cache %s: schema %d, want %d", path, snap.Schema, snapshotSchema)
	}
	if len(snap.Markers) != len(snap.Layers) {
		return false, fmt.Errorf("loading marker cache %s: %d markers but %d layers",
			path, len(snap.Markers), len(snap.Layers))
	}

	c.Reset()
	for i, m := range snap.Markers {
		if _, dup := c.entries[m]; dup || snap.Layers[i] == nil {
			return false, fmt.Errorf("loading marker cache %s: bad entry %q", path, m)
		}
		c.Insert(m, snap.Layers[i])
	}
	logrus.Infof("marker cache: loaded %d markers from %s", c.Len(), path)
	return true, nil
}
