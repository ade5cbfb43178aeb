package api

import (
	"strings"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

const (
	typeAttackPattern = "attack-pattern"
	typeTactic        = "x-mitre-tactic"
)

// ParseTechniques extracts the active attack-patterns of a bundle.
// Revoked and deprecated objects and objects without an ATT&CK id are skipped.
func ParseTechniques(b *Bundle, domain model.Domain) []model.Technique {
	if b == nil {
		return []model.Technique{}
	}

	techniques := make([]model.Technique, 0, len(b.Objects))
	for _, obj := range b.Objects {
		if obj.Type != typeAttackPattern || obj.Revoked || obj.Deprecated {
			continue
		}

		id, url := attackReference(obj.ExternalReferences)
		if id == "" {
			continue
		}

		var tactics []string
		for _, kcp := range obj.KillChainPhases {
			if strings.HasPrefix(kcp.KillChainName, "mitre-") {
				tactics = append(tactics, kcp.PhaseName)
			}
		}

		techniques = append(techniques, model.Technique{
			Name:           obj.Name,
			Description:    obj.Description,
			Tactics:        tactics,
			URL:            url,
			Platforms:      obj.Platforms,
			ID:             obj.ID,
			TechniqueID:    id,
			IsSubtechnique: obj.IsSubtechnique || strings.Contains(id, "."),
			Domain:         domain,
		})
	}
	return techniques
}

// ParseTactics extracts the x-mitre-tactic objects of a bundle
func ParseTactics(b *Bundle, domain model.Domain) []model.Tactic {
	if b == nil {
		return []model.Tactic{}
	}

	tactics := []model.Tactic{}
	for _, obj := range b.Objects {
		if obj.Type != typeTactic || obj.Revoked || obj.Deprecated {
			continue
		}
		id, url := attackReference(obj.ExternalReferences)
		tactics = append(tactics, model.Tactic{
			ID:          id,
			STIXID:      obj.ID,
			Name:        obj.Name,
			ShortName:   obj.ShortName,
			Description: obj.Description,
			URL:         url,
			Domain:      domain,
		})
	}
	return tactics
}

// attackReference returns the id and url of the first mitre-* reference
func attackReference(refs []ExternalReference) (string, string) {
	for _, ref := range refs {
		if strings.HasPrefix(ref.SourceName, "mitre-") && ref.ExternalID != "" {
			return ref.ExternalID, ref.URL
		}
	}
	return "", ""
}
