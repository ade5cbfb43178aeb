// Package apitest provides a small on-disk ATT&CK dataset for tests.
package apitest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

func technique(stixID, extID, name string, sub bool, platforms []string, tactics ...string) api.Object {
	phases := make([]api.KillChainPhase, 0, len(tactics))
	for _, t := range tactics {
		phases = append(phases, api.KillChainPhase{KillChainName: "mitre-attack", PhaseName: t})
	}
	return api.Object{
		Type:            "attack-pattern",
		ID:              stixID,
		Name:            name,
		Description:     name + " description.",
		IsSubtechnique:  sub,
		Platforms:       platforms,
		KillChainPhases: phases,
		ExternalReferences: []api.ExternalReference{{
			SourceName: "mitre-attack",
			ExternalID: extID,
			URL:        "https://attack.mitre.org/techniques/" + extID,
		}},
	}
}

func tactic(stixID, extID, name, short string) api.Object {
	return api.Object{
		Type:      "x-mitre-tactic",
		ID:        stixID,
		Name:      name,
		ShortName: short,
		ExternalReferences: []api.ExternalReference{{
			SourceName: "mitre-attack",
			ExternalID: extID,
			URL:        "https://attack.mitre.org/tactics/" + extID,
		}},
	}
}

func bundle(objects ...api.Object) api.Bundle {
	return api.Bundle{Type: "bundle", ID: "bundle--fixture", Objects: objects}
}

// Enterprise holds four techniques: T1566, T1566.001, T1059 and T1059.001
var Enterprise = bundle(
	technique("attack-pattern--e1", "T1566", "Phishing", false, []string{"Windows", "Linux"}, "initial-access"),
	technique("attack-pattern--e2", "T1566.001", "Spearphishing Attachment", true, []string{"Windows"}, "initial-access"),
	technique("attack-pattern--e3", "T1059", "Command and Scripting Interpreter", false, []string{"Windows", "Linux", "macOS"}, "execution"),
	technique("attack-pattern--e4", "T1059.001", "PowerShell", true, []string{"Windows"}, "execution"),
	tactic("x-mitre-tactic--1", "TA0001", "Initial Access", "initial-access"),
	tactic("x-mitre-tactic--2", "TA0002", "Execution", "execution"),
)

// PreAttack holds T1595 under reconnaissance
var PreAttack = bundle(
	technique("attack-pattern--p1", "T1595", "Active Scanning", false, []string{"PRE"}, "reconnaissance"),
	tactic("x-mitre-tactic--3", "TA0043", "Reconnaissance", "reconnaissance"),
)

// Mobile holds T1660 under initial-access
var Mobile = bundle(
	technique("attack-pattern--m1", "T1660", "Phishing", false, []string{"Android", "iOS"}, "initial-access"),
)

// TacticOrder is the recorded order: reconnaissance (prepare), initial-access and execution (act)
var TacticOrder = []model.TacticPhase{
	{Tactic: "reconnaissance", Phase: model.PhasePrepare},
	{Tactic: "initial-access", Phase: model.PhaseAct},
	{Tactic: "execution", Phase: model.PhaseAct},
}

// WriteSources writes the fixture datasets into dir and returns their paths
func WriteSources(t testing.TB, dir string) api.Sources {
	t.Helper()
	write := func(name string, v any) string {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}
	return api.Sources{
		Enterprise: write("enterprise.json", Enterprise),
		PreAttack:  write("pre.json", PreAttack),
		Mobile:     write("mobile.json", Mobile),
		Tactics:    write("tactics.json", TacticOrder),
	}
}

// NewClient returns a client reading the fixture datasets from a temp dir
func NewClient(t testing.TB) *api.Client {
	t.Helper()
	src := WriteSources(t, t.TempDir())
	c := api.NewClient()
	c.SetURLs(src.Enterprise, src.PreAttack, src.Mobile, src.Tactics)
	return c
}
