package api

import (
	"encoding/json"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// Bundle is a STIX 2.x bundle as published in mitre/cti
type Bundle struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	SpecVersion string   `json:"spec_version,omitempty"`
	Objects     []Object `json:"objects"`
}

// Object holds the STIX object fields the matrix needs. Other fields are ignored.
type Object struct {
	Type               string              `json:"type"`
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Revoked            bool                `json:"revoked"`
	Deprecated         bool                `json:"x_mitre_deprecated"`
	IsSubtechnique     bool                `json:"x_mitre_is_subtechnique"`
	Platforms          []string            `json:"x_mitre_platforms"`
	ShortName          string              `json:"x_mitre_shortname"`
	KillChainPhases    []KillChainPhase    `json:"kill_chain_phases"`
	ExternalReferences []ExternalReference `json:"external_references"`
}

// KillChainPhase ties a technique to a tactic
type KillChainPhase struct {
	KillChainName string `json:"kill_chain_name"`
	PhaseName     string `json:"phase_name"`
}

// ExternalReference points at the ATT&CK website and other sources
type ExternalReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// DomainData is the joined result of a domain bundle and the PRE-ATT&CK bundle
type DomainData struct {
	Domain    model.Domain `json:"domain"`
	Data      *Bundle      `json:"data"`
	PreAttack *Bundle      `json:"pre_attack"`
}

// UnmarshalJSON tolerates bundles whose objects array is missing
func (b *Bundle) UnmarshalJSON(data []byte) error {
	type alias Bundle
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Objects == nil {
		a.Objects = []Object{}
	}
	*b = Bundle(a)
	return nil
}
