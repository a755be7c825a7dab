package quota

import (
	"math"
	"sync"
)

// DefaultBudget is the storage budget in bytes (5 MiB).
const DefaultBudget = 5 * 1024 * 1024

const (
	// WarnPercent raises the one-shot warning.
	WarnPercent = 90
	// ElevatedPercent starts the visual-only tier and re-arms the warning below it.
	ElevatedPercent = 75
)

// Level is the display tier for a usage reading.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelElevated Level = "elevated"
	LevelCritical Level = "critical"
)

// Usage is a single reading against the budget.
type Usage struct {
	Bytes   int   `json:"bytes"`
	Budget  int   `json:"budget"`
	Percent int   `json:"percent"`
	Level   Level `json:"level"`
}

// Compute measures payload against budget. budget <= 0 selects DefaultBudget.
func Compute(payload []byte, budget int) Usage {
	return ComputeSize(len(payload), budget)
}

// ComputeSize is Compute for a known byte count.
func ComputeSize(n, budget int) Usage {
	if budget <= 0 {
		budget = DefaultBudget
	}
	pct := int(math.Round(float64(n) / float64(budget) * 100))
	if pct > 100 {
		pct = 100
	}
	u := Usage{Bytes: n, Budget: budget, Percent: pct, Level: LevelNormal}
	switch {
	case pct >= WarnPercent:
		u.Level = LevelCritical
	case pct >= ElevatedPercent:
		u.Level = LevelElevated
	}
	return u
}

// Monitor turns readings into at most one warning per excursion above WarnPercent.
type Monitor struct {
	budget int

	mu     sync.Mutex
	warned bool
	last   Usage
}

// NewMonitor returns a Monitor for budget bytes.
func NewMonitor(budget int) *Monitor {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Monitor{budget: budget, last: ComputeSize(0, budget)}
}

// Observe records a reading for a successfully written payload. warn is true only on
// the first reading at or above WarnPercent since usage was last below ElevatedPercent.
func (m *Monitor) Observe(payload []byte) (u Usage, warn bool) {
	return m.ObserveSize(len(payload))
}

// ObserveSize is Observe for a known byte count.
func (m *Monitor) ObserveSize(n int) (u Usage, warn bool) {
	u = ComputeSize(n, m.budget)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = u
	switch {
	case u.Percent >= WarnPercent:
		if !m.warned {
			m.warned = true
			return u, true
		}
	case u.Percent < ElevatedPercent:
		m.warned = false
	}
	return u, false
}

// Last returns the most recent reading.
func (m *Monitor) Last() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Budget returns the configured budget in bytes.
func (m *Monitor) Budget() int { return m.budget }
