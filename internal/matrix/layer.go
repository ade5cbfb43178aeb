package matrix

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

const (
	layerVersion     = "4.5"
	navigatorVersion = "4.9.1"
	attackVersion    = "15"
)

// Layer is an ATT&CK Navigator layer file
type Layer struct {
	Name                          string           `json:"name"`
	Versions                      LayerVersions    `json:"versions"`
	Domain                        string           `json:"domain"`
	Description                   string           `json:"description"`
	Filters                       LayerFilters     `json:"filters"`
	Sorting                       int              `json:"sorting"`
	Layout                        LayerLayout      `json:"layout"`
	HideDisabled                  bool             `json:"hideDisabled"`
	Techniques                    []LayerTechnique `json:"techniques"`
	Gradient                      LayerGradient    `json:"gradient"`
	ShowTacticRowBackground       bool             `json:"showTacticRowBackground"`
	TacticRowBackground           string           `json:"tacticRowBackground"`
	SelectTechniquesAcrossTactics bool             `json:"selectTechniquesAcrossTactics"`
	SelectSubtechniquesWithParent bool             `json:"selectSubtechniquesWithParent"`
}

type LayerVersions struct {
	Attack    string `json:"attack"`
	Navigator string `json:"navigator"`
	Layer     string `json:"layer"`
}

type LayerFilters struct {
	Platforms []string `json:"platforms,omitempty"`
}

type LayerLayout struct {
	Layout              string `json:"layout"`
	ShowID              bool   `json:"showID"`
	ShowName            bool   `json:"showName"`
	ShowAggregateScores bool   `json:"showAggregateScores"`
	CountUnscored       bool   `json:"countUnscored"`
	AggregateFunction   string `json:"aggregateFunction"`
}

type LayerTechnique struct {
	TechniqueID string `json:"techniqueID"`
	Tactic      string `json:"tactic,omitempty"`
	Score       int    `json:"score"`
	Color       string `json:"color"`
	Comment     string `json:"comment,omitempty"`
	Enabled     bool   `json:"enabled"`
}

type LayerGradient struct {
	Colors   []string `json:"colors"`
	MinValue int      `json:"minValue"`
	MaxValue int      `json:"maxValue"`
}

// NewLayer scores each technique id by how often it occurs in ids, scaled to
// 0-100 against the most frequent one.
func NewLayer(name, description string, domain model.Domain, ids []string, platforms []string) *Layer {
	counts := make(map[string]int)
	for _, id := range ids {
		if id == "" {
			continue
		}
		counts[id]++
	}

	maxCount := 1
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}

	techs := make([]LayerTechnique, 0, len(counts))
	for id, n := range counts {
		score := (n * 100) / maxCount
		techs = append(techs, LayerTechnique{
			TechniqueID: id,
			Score:       score,
			Color:       ScoreColor(score),
			Comment:     fmt.Sprintf("Count: %d", n),
			Enabled:     true,
		})
	}
	sort.Slice(techs, func(i, j int) bool { return techs[i].TechniqueID < techs[j].TechniqueID })

	if domain == "" {
		domain = model.DomainEnterprise
	}

	return &Layer{
		Name:        name,
		Versions:    LayerVersions{Attack: attackVersion, Navigator: navigatorVersion, Layer: layerVersion},
		Domain:      string(domain),
		Description: description,
		Filters:     LayerFilters{Platforms: platforms},
		Sorting:     3,
		Layout: LayerLayout{
			Layout:              "side",
			ShowID:              true,
			ShowName:            true,
			ShowAggregateScores: true,
			AggregateFunction:   "average",
		},
		Techniques: techs,
		Gradient: LayerGradient{
			Colors:   []string{"#ffffff", "#ff6666"},
			MinValue: 0,
			MaxValue: 100,
		},
		ShowTacticRowBackground:       true,
		TacticRowBackground:           "#dddddd",
		SelectTechniquesAcrossTactics: true,
		SelectSubtechniquesWithParent: true,
	}
}

// Layer builds a layer with one entry per technique in the matrix
func (m Matrix) Layer(name, description string) *Layer {
	ids := make([]string, 0, len(m.Techniques))
	for _, t := range m.Techniques {
		ids = append(ids, t.TechniqueID)
	}
	return NewLayer(name, description, m.Domain, ids, m.Platforms())
}

// JSON encodes the layer with indentation
func (l *Layer) JSON() ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// ScoreColor maps a 0-100 score onto the heat scale
func ScoreColor(score int) string {
	switch {
	case score >= 80:
		return "#ff0000"
	case score >= 60:
		return "#ff6600"
	case score >= 40:
		return "#ffcc00"
	case score >= 20:
		return "#99cc00"
	default:
		return "#66cc66"
	}
}
