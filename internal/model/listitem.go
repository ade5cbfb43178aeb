package model

import (
	"fmt"
	"strings"
)

// TechniqueItem wraps Technique to implement list.Item interface
type TechniqueItem struct {
	Technique
}

// Title returns the display title for the list
func (t TechniqueItem) Title() string {
	if t.TechniqueID == "" {
		return t.Name
	}
	return fmt.Sprintf("%s %s", t.TechniqueID, t.Name)
}

// Description returns the secondary text for the list
func (t TechniqueItem) Description() string {
	platforms := strings.Join(t.Platforms, ", ")
	if platforms == "" {
		platforms = "-"
	}
	return fmt.Sprintf("%s | %s", strings.Join(t.Tactics, ", "), platforms)
}

// FilterValue returns the string used for filtering
func (t TechniqueItem) FilterValue() string {
	return strings.Join([]string{
		t.TechniqueID,
		t.Name,
		strings.Join(t.Tactics, " "),
		strings.Join(t.Platforms, " "),
	}, " ")
}

// TacticItem is a matrix column shown in the tactic list
type TacticItem struct {
	ShortName string
	Phase     string
	Count     int
}

// Title returns the display title for the list
func (t TacticItem) Title() string {
	return DisplayTacticName(t.ShortName)
}

// Description returns the secondary text for the list
func (t TacticItem) Description() string {
	noun := "techniques"
	if t.Count == 1 {
		noun = "technique"
	}
	if t.Phase == "" {
		return fmt.Sprintf("%d %s", t.Count, noun)
	}
	return fmt.Sprintf("%d %s | %s", t.Count, noun, t.Phase)
}

// FilterValue returns the string used for filtering
func (t TacticItem) FilterValue() string {
	return t.ShortName + " " + t.Title()
}

// TechniqueSelectedMsg is sent when the user picks a technique from a palette
type TechniqueSelectedMsg struct {
	Technique *TechniqueItem
}
