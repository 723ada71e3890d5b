package breakpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/tracewright/internal/observable"
)

// fileVersion is the persisted breakpoint file layout.
const fileVersion = 1

// Manager holds the breakpoints of a session.
type Manager struct {
	list   *observable.List[*Breakpoint]
	nextID int
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		list:   observable.NewList[*Breakpoint](),
		nextID: 1,
	}
}

// List returns the observable breakpoint list.
func (m *Manager) List() *observable.List[*Breakpoint] {
	return m.list
}

// All returns the breakpoints in insertion order.
func (m *Manager) All() []*Breakpoint {
	return m.list.Items()
}

// Len returns the number of breakpoints.
func (m *Manager) Len() int {
	return m.list.Len()
}

// Get returns the breakpoint with id.
func (m *Manager) Get(id int) (*Breakpoint, bool) {
	for _, bp := range m.list.Items() {
		if bp.ID == id {
			return bp, true
		}
	}
	return nil, false
}

// Add validates and appends a new enabled breakpoint.
func (m *Manager) Add(typ Type, addr, size uint64, comment string) (*Breakpoint, error) {
	if err := Validate(addr, size); err != nil {
		return nil, err
	}
	bp := &Breakpoint{
		ID:      m.nextID,
		Type:    typ,
		Addr:    addr,
		Size:    size,
		Comment: comment,
		Enabled: true,
	}
	m.nextID++
	m.list.Append(bp)
	return bp, nil
}

// Remove deletes bp.
func (m *Manager) Remove(bp *Breakpoint) error {
	if !m.list.Remove(bp) {
		return fmt.Errorf("breakpoint %d: %w", bp.ID, ErrNotFound)
	}
	return nil
}

// RemoveID deletes the breakpoint with id.
func (m *Manager) RemoveID(id int) error {
	bp, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("breakpoint %d: %w", id, ErrNotFound)
	}
	return m.Remove(bp)
}

// Update applies edit to a copy of bp, validates the result and commits it.
// Observers are notified once with op "update". A rejected edit leaves bp
// unchanged.
func (m *Manager) Update(bp *Breakpoint, edit func(*Breakpoint)) error {
	if !m.list.Contains(bp) {
		return fmt.Errorf("breakpoint %d: %w", bp.ID, ErrNotFound)
	}
	next := *bp
	edit(&next)
	if err := Validate(next.Addr, next.Size); err != nil {
		return err
	}
	next.ID = bp.ID
	*bp = next
	m.list.Notify(map[string]any{"op": "update", "item": bp})
	return nil
}

// SetEnabled enables or disables bp.
func (m *Manager) SetEnabled(bp *Breakpoint, enabled bool) error {
	return m.Update(bp, func(b *Breakpoint) { b.Enabled = enabled })
}

// Clear removes every breakpoint.
func (m *Manager) Clear() {
	m.list.Clear()
}

// ExecuteAddrs returns the start addresses of enabled execute breakpoints.
// The result is a snapshot; later edits do not affect it.
func (m *Manager) ExecuteAddrs() map[uint64]struct{} {
	addrs := make(map[uint64]struct{})
	for _, bp := range m.list.Items() {
		if bp.Enabled && bp.Type == Execute {
			addrs[bp.Addr] = struct{}{}
		}
	}
	return addrs
}

type persisted struct {
	Version     int           `toml:"version"`
	Breakpoints []*Breakpoint `toml:"breakpoints"`
}

// Save writes the breakpoints to path as TOML.
func (m *Manager) Save(path string) error {
	content, err := toml.Marshal(persisted{
		Version:     fileVersion,
		Breakpoints: m.list.Items(),
	})
	if err != nil {
		return fmt.Errorf("marshal breakpoints: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Load replaces the breakpoints with those stored at path.
// A missing file is not an error and leaves the manager unchanged.
func (m *Manager) Load(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read file: %w", err)
	}

	var data persisted
	if err := toml.Unmarshal(content, &data); err != nil {
		return fmt.Errorf("unmarshal breakpoints: %w", err)
	}
	if data.Version != fileVersion {
		return fmt.Errorf("breakpoint file version %d not supported", data.Version)
	}

	maxID := 0
	for _, bp := range data.Breakpoints {
		if err := Validate(bp.Addr, bp.Size); err != nil {
			return fmt.Errorf("breakpoint %d: %w", bp.ID, err)
		}
		if bp.ID > maxID {
			maxID = bp.ID
		}
	}

	m.list.Clear()
	for _, bp := range data.Breakpoints {
		m.list.Append(bp)
	}
	m.nextID = maxID + 1
	return nil
}
