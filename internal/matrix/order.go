// Package matrix reshapes flat technique lists into the tactic columns of an
// ATT&CK matrix.
package matrix

import (
	"sync"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// Tracker records the global tactic order read from the tactics-order file.
// Prepare and Act partition the order by phase; Total keeps every entry.
type Tracker struct {
	mu      sync.RWMutex
	prepare []string
	act     []string
	total   []string
}

// NewTracker returns an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetTacticOrder appends each entry in input order. An entry whose phase is
// exactly "prepare" goes to the prepare sequence, anything else to act.
// Every entry goes to the total sequence.
func (t *Tracker) SetTacticOrder(list []model.TacticPhase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tp := range list {
		if tp.Phase == model.PhasePrepare {
			t.prepare = append(t.prepare, tp.Tactic)
		} else {
			t.act = append(t.act, tp.Tactic)
		}
		t.total = append(t.total, tp.Tactic)
	}
}

// Reset forgets the recorded order
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.prepare, t.act, t.total = nil, nil, nil
	t.mu.Unlock()
}

// Prepare returns the preparation-phase tactics
func (t *Tracker) Prepare() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return clone(t.prepare)
}

// Act returns the action-phase tactics
func (t *Tracker) Act() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return clone(t.act)
}

// Total returns every recorded tactic in input order
func (t *Tracker) Total() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return clone(t.total)
}

// Len returns the size of the total order
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.total)
}

// PhaseOf returns the phase a tactic was recorded under, or "" if unknown
func (t *Tracker) PhaseOf(tactic string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.prepare {
		if p == tactic {
			return model.PhasePrepare
		}
	}
	for _, a := range t.act {
		if a == tactic {
			return model.PhaseAct
		}
	}
	return ""
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
