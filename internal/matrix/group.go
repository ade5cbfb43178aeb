package matrix

import (
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// Grouping maps tactic names to techniques while keeping the order in which
// tactics were first seen.
type Grouping struct {
	order   []string
	buckets map[string][]model.Technique
}

// Tactics returns the tactic names in first-seen order
func (g Grouping) Tactics() []string {
	return clone(g.order)
}

// Get returns the techniques filed under a tactic
func (g Grouping) Get(tactic string) []model.Technique {
	return g.buckets[tactic]
}

// Len returns the number of tactic buckets
func (g Grouping) Len() int {
	return len(g.order)
}

// Map returns a plain map view of the grouping
func (g Grouping) Map() map[string][]model.Technique {
	out := make(map[string][]model.Technique, len(g.buckets))
	for k, v := range g.buckets {
		out[k] = v
	}
	return out
}

// TechniquesToTactics files each technique under every tactic it lists.
// Buckets follow first-seen tactic order and techniques keep their input
// order within a bucket. Empty input yields an empty grouping.
func TechniquesToTactics(list []model.Technique) Grouping {
	g := Grouping{buckets: make(map[string][]model.Technique)}
	for _, tech := range list {
		for _, tactic := range tech.Tactics {
			if _, ok := g.buckets[tactic]; !ok {
				g.order = append(g.order, tactic)
			}
			g.buckets[tactic] = append(g.buckets[tactic], tech)
		}
	}
	return g
}

// TacticNames returns the distinct tactics referenced by list, ordered by the
// recorded total order. Tactics missing from the recorded order are dropped.
func (t *Tracker) TacticNames(list []model.Technique) []string {
	if len(list) == 0 {
		return []string{}
	}

	present := make(map[string]bool)
	for _, tech := range list {
		for _, tactic := range tech.Tactics {
			present[tactic] = true
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	names := []string{}
	for _, tactic := range t.total {
		if present[tactic] {
			names = append(names, tactic)
			// the recorded order may repeat a tactic
			delete(present, tactic)
		}
	}
	return names
}
