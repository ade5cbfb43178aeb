package matrix

import (
	"sort"
	"strings"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// Column is one tactic of the matrix with its techniques
type Column struct {
	Tactic     string            `json:"tactic" yaml:"tactic"`
	Phase      string            `json:"phase,omitempty" yaml:"phase,omitempty"`
	Techniques []model.Technique `json:"techniques" yaml:"techniques"`
}

// Matrix is the techniques-by-tactic view of a domain
type Matrix struct {
	Domain     model.Domain      `json:"domain" yaml:"domain"`
	Columns    []Column          `json:"columns" yaml:"columns"`
	Techniques []model.Technique `json:"-" yaml:"-"`
	// Info describes the tactics by short name when the bundle carries them
	Info map[string]model.Tactic `json:"-" yaml:"-"`
}

// Count is a labelled tally used by stats
type Count struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Stats summarises a matrix
type Stats struct {
	Techniques    int     `json:"techniques"`
	Subtechniques int     `json:"subtechniques"`
	Tactics       int     `json:"tactics"`
	PerTactic     []Count `json:"per_tactic"`
	PerPlatform   []Count `json:"per_platform"`
}

// Build lays techniques out in the columns the tracker knows about
func Build(domain model.Domain, techniques []model.Technique, tracker *Tracker) Matrix {
	grouped := TechniquesToTactics(techniques)
	m := Matrix{Domain: domain, Techniques: techniques}
	for _, tactic := range tracker.TacticNames(techniques) {
		m.Columns = append(m.Columns, Column{
			Tactic:     tactic,
			Phase:      tracker.PhaseOf(tactic),
			Techniques: grouped.Get(tactic),
		})
	}
	return m
}

// TacticName returns the display name for a tactic short name
func (m Matrix) TacticName(shortName string) string {
	if t, ok := m.Info[shortName]; ok && t.Name != "" {
		return t.Name
	}
	return model.DisplayTacticName(shortName)
}

// Column returns the column for a tactic
func (m Matrix) Column(tactic string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Tactic == tactic {
			return c, true
		}
	}
	return Column{}, false
}

// Find looks a technique up by ATT&CK id (T1566) or STIX id
func (m Matrix) Find(id string) (model.Technique, bool) {
	for _, t := range m.Techniques {
		if strings.EqualFold(t.TechniqueID, id) || t.ID == id {
			return t, true
		}
	}
	return model.Technique{}, false
}

// Filter returns techniques matching every non-empty criterion. The query
// matches id, name or description, case-insensitively.
func (m Matrix) Filter(tactic, platform, query string) []model.Technique {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []model.Technique{}
	for _, t := range m.Techniques {
		if tactic != "" && !t.HasTactic(tactic) {
			continue
		}
		if platform != "" && !t.HasPlatform(platform) {
			continue
		}
		if query != "" && !matches(t, query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t model.Technique, q string) bool {
	return strings.Contains(strings.ToLower(t.TechniqueID), q) ||
		strings.Contains(strings.ToLower(t.Name), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// Platforms returns the distinct platforms in the matrix, sorted
func (m Matrix) Platforms() []string {
	seen := make(map[string]bool)
	for _, t := range m.Techniques {
		for _, p := range t.Platforms {
			seen[p] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stats counts techniques per column and per platform
func (m Matrix) Stats() Stats {
	s := Stats{Techniques: len(m.Techniques), Tactics: len(m.Columns)}
	platforms := make(map[string]int)
	for _, t := range m.Techniques {
		if t.IsSubtechnique {
			s.Subtechniques++
		}
		for _, p := range t.Platforms {
			platforms[p]++
		}
	}
	for _, c := range m.Columns {
		s.PerTactic = append(s.PerTactic, Count{Label: c.Tactic, Value: len(c.Techniques)})
	}
	for p, n := range platforms {
		s.PerPlatform = append(s.PerPlatform, Count{Label: p, Value: n})
	}
	sort.Slice(s.PerPlatform, func(i, j int) bool {
		if s.PerPlatform[i].Value != s.PerPlatform[j].Value {
			return s.PerPlatform[i].Value > s.PerPlatform[j].Value
		}
		return s.PerPlatform[i].Label < s.PerPlatform[j].Label
	})
	return s
}
