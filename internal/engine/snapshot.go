package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// SnapshotFormatVersion is the snapshot layout this engine reads and writes.
const SnapshotFormatVersion = 1

type snapshotFile struct {
	FormatVersion int                 `toml:"format_version"`
	Image         string              `toml:"image"`
	NextID        int                 `toml:"next_id"`
	Steps         int                 `toml:"steps"`
	Stashes       map[string][]*State `toml:"stashes"`
}

// SaveSnapshot writes the states of sm as a TOML document.
func SaveSnapshot(w io.Writer, sm *SimManager) error {
	doc := snapshotFile{
		FormatVersion: SnapshotFormatVersion,
		Image:         sm.img.Name,
		NextID:        sm.nextID,
		Steps:         sm.steps,
		Stashes:       make(map[string][]*State),
	}
	for _, name := range sm.StashNames() {
		doc.Stashes[name] = sm.stashes[name]
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// SaveSnapshotFile writes a snapshot to path.
func SaveSnapshotFile(path string, sm *SimManager) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := SaveSnapshot(f, sm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshot restores a manager for img from r.
// A snapshot written for another format version or image yields
// *IncompatibleStateError and no manager.
func LoadSnapshot(r io.Reader, img *Image, hooks *Hooks) (*SimManager, error) {
	return loadSnapshot("", r, img, hooks)
}

// LoadSnapshotFile restores a manager from the snapshot at path.
func LoadSnapshotFile(path string, img *Image, hooks *Hooks) (*SimManager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "cannot open", Err: err}
	}
	defer f.Close()
	return loadSnapshot(path, f, img, hooks)
}

func loadSnapshot(path string, r io.Reader, img *Image, hooks *Hooks) (*SimManager, error) {
	var doc snapshotFile
	if err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &LoadError{Path: path, Reason: "invalid snapshot", Err: err}
	}
	if doc.FormatVersion != SnapshotFormatVersion {
		return nil, &IncompatibleStateError{
			Path:   path,
			Detail: fmt.Sprintf("format version %d, want %d", doc.FormatVersion, SnapshotFormatVersion),
		}
	}
	if doc.Image != img.Name {
		return nil, &IncompatibleStateError{
			Path:   path,
			Detail: fmt.Sprintf("snapshot of %q cannot be loaded into %q", doc.Image, img.Name),
		}
	}

	sm := NewSimManager(img, hooks)
	sm.nextID = doc.NextID
	sm.steps = doc.Steps
	for name, states := range doc.Stashes {
		for _, st := range states {
			if st.Regs == nil {
				st.Regs = make(map[string]uint64)
			}
			if st.ID > sm.nextID {
				sm.nextID = st.ID
			}
		}
		sm.stashes[name] = states
	}
	return sm, nil
}
