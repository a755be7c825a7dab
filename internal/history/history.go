// Package history keeps the undo stack for programmatic text replacements.
//
// Only replacements made by editor commands are recorded; plain typing is left to the
// input widget's own undo. The stack belongs to whichever document is open and is
// cleared whenever that changes.
package history

import (
	"sync"

	"mdstudio/internal/model"
)

// DefaultCapacity bounds the stack; the oldest snapshot is evicted first.
const DefaultCapacity = 100

// State is the recorder's position in its Idle -> Recording -> Idle cycle.
type State int

const (
	Idle State = iota
	Recording
	Restoring
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Restoring:
		return "restoring"
	default:
		return "idle"
	}
}

// Manager is a bounded LIFO of pre-mutation snapshots.
type Manager struct {
	mu       sync.Mutex
	entries  []model.Snapshot
	capacity int
	state    State
}

// NewManager returns a Manager holding at most capacity snapshots.
// capacity <= 0 selects DefaultCapacity.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		entries:  make([]model.Snapshot, 0, capacity),
		capacity: capacity,
	}
}

// Record pushes before when a replacement of replaced with next would change the
// text. It is a no-op while an undo is being applied. Reports whether a snapshot was
// pushed.
func (m *Manager) Record(before model.Snapshot, replaced, next string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Restoring || replaced == next {
		return false
	}
	m.state = Recording
	m.pushLocked(before)
	m.state = Idle
	return true
}

// Push adds a snapshot unconditionally (except while restoring).
func (m *Manager) Push(s model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Restoring {
		return
	}
	m.pushLocked(s)
}

func (m *Manager) pushLocked(s model.Snapshot) {
	if len(m.entries) >= m.capacity {
		copy(m.entries, m.entries[1:])
		m.entries[len(m.entries)-1] = s
		return
	}
	m.entries = append(m.entries, s)
}

// Undo pops the most recent snapshot and hands it to apply. Recording is suppressed
// until apply returns so restoring text does not push a new entry. Returns false when
// there was nothing to undo, letting callers fall back to a native undo.
func (m *Manager) Undo(apply func(model.Snapshot)) bool {
	m.mu.Lock()
	if len(m.entries) == 0 {
		m.mu.Unlock()
		return false
	}
	last := m.entries[len(m.entries)-1]
	m.entries = m.entries[:len(m.entries)-1]
	m.state = Restoring
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state = Idle
		m.mu.Unlock()
	}()
	if apply != nil {
		apply(last)
	}
	return true
}

// Clear empties the stack.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = m.entries[:0]
}

// Len returns the number of recoverable snapshots.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Restoring reports whether an undo is currently being applied.
func (m *Manager) Restoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Restoring
}

// State returns the current recorder state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Peek returns the snapshot Undo would restore next.
func (m *Manager) Peek() (model.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return model.Snapshot{}, false
	}
	return m.entries[len(m.entries)-1], true
}
