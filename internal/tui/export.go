package tui

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// ExportFormat represents the export file format
type ExportFormat int

const (
	ExportJSON ExportFormat = iota
	ExportCSV
	ExportMarkdown
	ExportYAML
	ExportLayer
)

func (f ExportFormat) String() string {
	switch f {
	case ExportJSON:
		return "JSON"
	case ExportCSV:
		return "CSV"
	case ExportMarkdown:
		return "Markdown"
	case ExportYAML:
		return "YAML"
	case ExportLayer:
		return "Navigator Layer"
	}
	return ""
}

func (f ExportFormat) Extension() string {
	switch f {
	case ExportJSON:
		return ".json"
	case ExportCSV:
		return ".csv"
	case ExportMarkdown:
		return ".md"
	case ExportYAML:
		return ".yaml"
	case ExportLayer:
		return "_layer.json"
	}
	return ""
}

// ParseExportFormat maps a user-supplied name onto a format
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return ExportJSON, true
	case "csv":
		return ExportCSV, true
	case "markdown", "md":
		return ExportMarkdown, true
	case "yaml", "yml":
		return ExportYAML, true
	case "layer", "navigator":
		return ExportLayer, true
	}
	return 0, false
}

// ExportScope represents what data to export
type ExportScope int

const (
	ExportCurrentView ExportScope = iota
	ExportFullMatrix
)

func (s ExportScope) String() string {
	switch s {
	case ExportCurrentView:
		return "Current View"
	case ExportFullMatrix:
		return "Full Matrix"
	}
	return ""
}

// ExportOption represents a menu option
type ExportOption struct {
	Name   string
	Format ExportFormat
	Scope  ExportScope
}

// ExportResult contains the result of an export operation
type ExportResult struct {
	FilePath string
	Count    int
	Err      error
}

type exportTechnique struct {
	TechniqueID string   `json:"technique_id" yaml:"technique_id"`
	Name        string   `json:"name" yaml:"name"`
	Tactics     []string `json:"tactics" yaml:"tactics"`
	Platforms   []string `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	Subtech     bool     `json:"is_subtechnique" yaml:"is_subtechnique"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	STIXID      string   `json:"stix_id" yaml:"stix_id"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

type exportDocument struct {
	ExportedAt string            `json:"exported_at" yaml:"exported_at"`
	Domain     string            `json:"domain" yaml:"domain"`
	TotalCount int               `json:"total_count" yaml:"total_count"`
	Tactics    []string          `json:"tactics" yaml:"tactics"`
	Techniques []exportTechnique `json:"techniques" yaml:"techniques"`
}

// Export writes techniques to a timestamped file in outputDir
func Export(m matrix.Matrix, techniques []model.Technique, format ExportFormat, outputDir string) ExportResult {
	timestamp := time.Now().Format("2006-01-02_150405")
	filename := fmt.Sprintf("attack_%s_%s%s", shortDomain(m.Domain), timestamp, format.Extension())
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return ExportResult{Err: err}
	}

	err = Encode(file, m, techniques, format)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return ExportResult{Err: err}
	}

	return ExportResult{FilePath: path, Count: len(techniques)}
}

// Encode writes techniques in the given format
func Encode(w io.Writer, m matrix.Matrix, techniques []model.Technique, format ExportFormat) error {
	switch format {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newExportDocument(m, techniques))
	case ExportYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newExportDocument(m, techniques)); err != nil {
			return err
		}
		return enc.Close()
	case ExportCSV:
		return exportCSV(w, techniques)
	case ExportMarkdown:
		return exportMarkdown(w, m, techniques)
	case ExportLayer:
		ids := make([]string, 0, len(techniques))
		for _, t := range techniques {
			ids = append(ids, t.TechniqueID)
		}
		layer := matrix.NewLayer(
			fmt.Sprintf("attack-tui %s export", m.Domain.String()),
			fmt.Sprintf("%d techniques exported from attack-tui", len(techniques)),
			m.Domain, ids, nil,
		)
		data, err := layer.JSON()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown export format %d", format)
}

func newExportDocument(m matrix.Matrix, techniques []model.Technique) exportDocument {
	doc := exportDocument{
		ExportedAt: time.Now().Format(time.RFC3339),
		Domain:     string(m.Domain),
		TotalCount: len(techniques),
		Tactics:    []string{},
		Techniques: make([]exportTechnique, 0, len(techniques)),
	}
	for _, c := range m.Columns {
		doc.Tactics = append(doc.Tactics, c.Tactic)
	}
	for _, t := range techniques {
		doc.Techniques = append(doc.Techniques, exportTechnique{
			TechniqueID: t.TechniqueID,
			Name:        t.Name,
			Tactics:     t.Tactics,
			Platforms:   t.Platforms,
			Subtech:     t.IsSubtechnique,
			URL:         t.URL,
			STIXID:      t.ID,
			Description: t.Description,
		})
	}
	return doc
}

func exportCSV(w io.Writer, techniques []model.Technique) error {
	writer := csv.NewWriter(w)

	header := []string{"Technique ID", "Name", "Tactics", "Platforms", "Sub-technique", "URL", "STIX ID"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, t := range techniques {
		sub := "No"
		if t.IsSubtechnique {
			sub = "Yes"
		}
		row := []string{
			t.TechniqueID,
			t.Name,
			strings.Join(t.Tactics, "; "),
			strings.Join(t.Platforms, "; "),
			sub,
			t.URL,
			t.ID,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func exportMarkdown(w io.Writer, m matrix.Matrix, techniques []model.Technique) error {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# MITRE ATT&CK %s Techniques\n\n", m.Domain.String()))
	b.WriteString(fmt.Sprintf("**Generated:** %s\n\n", time.Now().Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("**Total Techniques:** %d\n\n", len(techniques)))

	grouped := matrix.TechniquesToTactics(techniques)
	names := []string{}
	for _, c := range m.Columns {
		if len(grouped.Get(c.Tactic)) > 0 {
			names = append(names, c.Tactic)
		}
	}
	if len(names) == 0 {
		names = grouped.Tactics()
	}

	for _, tactic := range names {
		b.WriteString(fmt.Sprintf("## %s\n\n", m.TacticName(tactic)))
		b.WriteString("| ID | Technique | Platforms |\n")
		b.WriteString("|----|-----------|-----------|\n")
		for _, t := range grouped.Get(tactic) {
			id := t.TechniqueID
			if t.URL != "" {
				id = fmt.Sprintf("[%s](%s)", t.TechniqueID, t.URL)
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", id, escapePipes(t.Name), strings.Join(t.Platforms, ", ")))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("*Generated by attack-tui*\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func shortDomain(d model.Domain) string {
	s := strings.TrimSuffix(string(d), "-attack")
	if s == "" {
		return "attack"
	}
	return s
}
