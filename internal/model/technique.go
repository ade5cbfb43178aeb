package model

import "strings"

// Domain identifies an ATT&CK matrix
type Domain string

const (
	DomainEnterprise Domain = "enterprise-attack"
	DomainMobile     Domain = "mobile-attack"
	DomainPreAttack  Domain = "pre-attack"
)

// String returns a short display name for the domain
func (d Domain) String() string {
	switch d {
	case DomainEnterprise:
		return "Enterprise"
	case DomainMobile:
		return "Mobile"
	case DomainPreAttack:
		return "PRE-ATT&CK"
	}
	return string(d)
}

// ParseDomain accepts the short and long forms of a domain name
func ParseDomain(s string) (Domain, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enterprise", "enterprise-attack":
		return DomainEnterprise, true
	case "mobile", "mobile-attack":
		return DomainMobile, true
	case "pre", "pre-attack", "preattack":
		return DomainPreAttack, true
	}
	return "", false
}

// Phase names used by the tactics-order file
const (
	PhasePrepare = "prepare"
	PhaseAct     = "act"
)

// TacticPhase is one entry of the tactics-order file
type TacticPhase struct {
	Tactic string `json:"tactic" yaml:"tactic"`
	Phase  string `json:"phase" yaml:"phase"`
}

// Technique represents a single ATT&CK technique as shown in the matrix
type Technique struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	Tactics        []string `json:"tactics" yaml:"tactics"`
	URL            string   `json:"external_references_url" yaml:"url"`
	Platforms      []string `json:"platforms" yaml:"platforms"`
	ID             string   `json:"id" yaml:"id"` // STIX id
	TechniqueID    string   `json:"technique_id" yaml:"technique_id"`
	IsSubtechnique bool     `json:"is_subtechnique,omitempty" yaml:"is_subtechnique,omitempty"`
	Domain         Domain   `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// HasTactic reports whether the technique is tagged with the given tactic
func (t Technique) HasTactic(tactic string) bool {
	for _, tt := range t.Tactics {
		if tt == tactic {
			return true
		}
	}
	return false
}

// HasPlatform reports whether the technique applies to the platform (case-insensitive)
func (t Technique) HasPlatform(platform string) bool {
	for _, p := range t.Platforms {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
}

// Tactic represents an x-mitre-tactic object
type Tactic struct {
	ID          string `json:"id" yaml:"id"` // e.g. TA0001
	STIXID      string `json:"stix_id" yaml:"stix_id"`
	Name        string `json:"name" yaml:"name"`
	ShortName   string `json:"short_name" yaml:"short_name"` // e.g. initial-access
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Domain      Domain `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// DisplayTacticName turns a tactic short name into a title, e.g.
// "command-and-control" -> "Command And Control"
func DisplayTacticName(shortName string) string {
	words := strings.FieldsFunc(shortName, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "&" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
