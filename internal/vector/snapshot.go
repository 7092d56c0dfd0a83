package vector

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
)

// snapshot is the on-disk form: the ids and vectors as parallel lists plus
// the dimensionality, gob-encoded in a single file.
type snapshot struct {
	Dim     int
	IDs     []int64
	Vectors [][]float32
}

// Save writes the whole index to path. The write goes to a temp file first
// and is renamed into place, so a crash mid-write never leaves a torn
// snapshot. The serialized view is a consistent point-in-time copy: appends
// racing with Save land in the next snapshot.
func (x *Index) Save(path string) error {
	x.mu.RLock()
	snap := snapshot{
		Dim:     x.dim,
		IDs:     make([]int64, len(x.entries)),
		Vectors: make([][]float32, len(x.entries)),
	}
	for i, e := range x.entries {
		snap.IDs[i] = e.ID
		snap.Vectors[i] = e.Vec
	}
	x.mu.RUnlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load reads a prior snapshot into a fresh index. A missing file yields an
// empty index; a corrupt or dimension-mismatched file is logged and also
// degrades to empty. Startup never fails on snapshot state.
func Load(path string, dim int, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}

	x := New(dim)

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("vector snapshot unreadable, starting empty", "path", path, "error", err)
		}
		return x
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		log.Warn("vector snapshot corrupt, starting empty", "path", path, "error", err)
		return x
	}
	if snap.Dim != dim {
		log.Warn("vector snapshot dimension mismatch, starting empty",
			"path", path, "snapshot_dim", snap.Dim, "configured_dim", dim)
		return x
	}
	if len(snap.IDs) != len(snap.Vectors) {
		log.Warn("vector snapshot id/vector count mismatch, starting empty",
			"path", path, "ids", len(snap.IDs), "vectors", len(snap.Vectors))
		return x
	}

	x.entries = make([]entry, len(snap.IDs))
	for i := range snap.IDs {
		x.entries[i] = entry{ID: snap.IDs[i], Vec: snap.Vectors[i]}
	}

	log.Info("vector snapshot loaded", "path", path, "vectors", len(x.entries))
	return x
}
