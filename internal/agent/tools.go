package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
	"github.com/ethanolivertroy/attack-tui/internal/tui"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Toolset answers tool calls from the shared cached client
type Toolset struct {
	client    *api.Client
	exportDir string
}

// NewToolset binds the tools to client. An empty exportDir selects ~/.attack-tui-exports.
func NewToolset(client *api.Client, exportDir string) *Toolset {
	return &Toolset{client: client, exportDir: exportDir}
}

// getExportDir returns the safe export directory for agent-generated files
func (s *Toolset) getExportDir() string {
	if s.exportDir != "" {
		return s.exportDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	exportDir := filepath.Join(homeDir, ".attack-tui-exports")
	if err := os.MkdirAll(exportDir, 0700); err != nil {
		return "."
	}
	return exportDir
}

// --- Tool Input/Output Types ---

// SearchParams for search_techniques tool
type SearchParams struct {
	Query    string `json:"query,omitempty" jsonschema:"Text to match against technique id, name or description"`
	Tactic   string `json:"tactic,omitempty" jsonschema:"Tactic short name or display name, e.g. initial-access"`
	Platform string `json:"platform,omitempty" jsonschema:"Platform such as Windows, Linux, macOS, Android"`
	Domain   string `json:"domain,omitempty" jsonschema:"enterprise (default), mobile or pre-attack"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results to return (default 10)"`
}

// SearchResult for search_techniques tool
type SearchResult struct {
	Domain  string             `json:"domain"`
	Count   int                `json:"count"`
	Total   int                `json:"total"`
	Results []TechniqueSummary `json:"results"`
}

// TechniqueSummary is a condensed view of a technique
type TechniqueSummary struct {
	TechniqueID  string   `json:"technique_id"`
	Name         string   `json:"name"`
	Tactics      []string `json:"tactics"`
	Platforms    []string `json:"platforms,omitempty"`
	Subtechnique bool     `json:"is_subtechnique,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// TechniqueParams for get_technique tool
type TechniqueParams struct {
	ID     string `json:"id" jsonschema:"ATT&CK technique id (e.g. T1566 or T1059.001)"`
	Domain string `json:"domain,omitempty" jsonschema:"Domain to look in; all domains are searched when empty"`
}

// TechniqueDetails for get_technique tool
type TechniqueDetails struct {
	Found         bool     `json:"found"`
	TechniqueID   string   `json:"technique_id,omitempty"`
	Name          string   `json:"name,omitempty"`
	Domain        string   `json:"domain,omitempty"`
	Description   string   `json:"description,omitempty"`
	Tactics       []string `json:"tactics,omitempty"`
	Phases        []string `json:"phases,omitempty"`
	Platforms     []string `json:"platforms,omitempty"`
	Subtechnique  bool     `json:"is_subtechnique,omitempty"`
	Parent        string   `json:"parent,omitempty"`
	Subtechniques []string `json:"subtechniques,omitempty"`
	URL           string   `json:"url,omitempty"`
	STIXID        string   `json:"stix_id,omitempty"`
}

// DomainParams for tools that only need a domain
type DomainParams struct {
	Domain string `json:"domain,omitempty" jsonschema:"enterprise (default), mobile or pre-attack"`
}

// TacticSummary is one matrix column
type TacticSummary struct {
	ShortName  string `json:"short_name"`
	Name       string `json:"name"`
	ID         string `json:"id,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Techniques int    `json:"techniques"`
}

// TacticsResult for list_tactics tool
type TacticsResult struct {
	Domain  string          `json:"domain"`
	Count   int             `json:"count"`
	Tactics []TacticSummary `json:"tactics"`
}

// TacticParams for techniques_by_tactic tool
type TacticParams struct {
	Tactic   string `json:"tactic" jsonschema:"Tactic short name or display name, e.g. privilege-escalation"`
	Platform string `json:"platform,omitempty" jsonschema:"Only techniques for this platform"`
	Domain   string `json:"domain,omitempty" jsonschema:"enterprise (default), mobile or pre-attack"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results to return (default 10)"`
}

// TacticResult for techniques_by_tactic tool
type TacticResult struct {
	Domain  string             `json:"domain"`
	Tactic  string             `json:"tactic"`
	Name    string             `json:"name"`
	Phase   string             `json:"phase,omitempty"`
	Count   int                `json:"count"`
	Total   int                `json:"total"`
	Results []TechniqueSummary `json:"results"`
}

// StatsResult for get_matrix_stats tool
type StatsResult struct {
	Domain        string         `json:"domain"`
	Techniques    int            `json:"techniques"`
	Subtechniques int            `json:"subtechniques"`
	Tactics       int            `json:"tactics"`
	PerTactic     []matrix.Count `json:"per_tactic"`
	TopPlatforms  []matrix.Count `json:"top_platforms"`
}

// ExportParams for export_layer tool
type ExportParams struct {
	Format   string `json:"format,omitempty" jsonschema:"layer (default), json, csv, markdown or yaml"`
	Domain   string `json:"domain,omitempty" jsonschema:"enterprise (default), mobile or pre-attack"`
	Tactic   string `json:"tactic,omitempty" jsonschema:"Only export techniques of this tactic"`
	Platform string `json:"platform,omitempty" jsonschema:"Only export techniques for this platform"`
	Query    string `json:"query,omitempty" jsonschema:"Only export techniques matching this text"`
}

// ExportResult for export_layer tool
type ExportResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path,omitempty"`
	Format   string `json:"format,omitempty"`
	Count    int    `json:"count,omitempty"`
	Error    string `json:"error,omitempty"`
}

// --- helpers ---

func resolveDomain(s string) (model.Domain, error) {
	if strings.TrimSpace(s) == "" {
		return model.DomainEnterprise, nil
	}
	d, ok := model.ParseDomain(s)
	if !ok {
		return "", fmt.Errorf("unknown domain %q, use enterprise, mobile or pre-attack", s)
	}
	return d, nil
}

// normalizeTactic turns "Initial Access" into "initial-access"
func normalizeTactic(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	return min(n, maxLimit)
}

func (s *Toolset) loadMatrix(ctx context.Context, domain string) (matrix.Matrix, error) {
	d, err := resolveDomain(domain)
	if err != nil {
		return matrix.Matrix{}, err
	}
	m, err := s.client.Matrix(ctx, d, false)
	if err != nil {
		return matrix.Matrix{}, fmt.Errorf("failed to load %s matrix: %w", d, err)
	}
	return m, nil
}

func summarize(m matrix.Matrix, list []model.Technique, limit int) []TechniqueSummary {
	out := make([]TechniqueSummary, 0, min(len(list), limit))
	for _, t := range list {
		if len(out) >= limit {
			break
		}
		tactics := make([]string, 0, len(t.Tactics))
		for _, tac := range t.Tactics {
			tactics = append(tactics, m.TacticName(tac))
		}
		out = append(out, TechniqueSummary{
			TechniqueID:  t.TechniqueID,
			Name:         t.Name,
			Tactics:      tactics,
			Platforms:    t.Platforms,
			Subtechnique: t.IsSubtechnique,
			URL:          t.URL,
		})
	}
	return out
}

// --- Tool implementations ---

// SearchTechniques filters the matrix by text, tactic and platform
func (s *Toolset) SearchTechniques(ctx context.Context, params SearchParams) (SearchResult, error) {
	m, err := s.loadMatrix(ctx, params.Domain)
	if err != nil {
		return SearchResult{}, err
	}
	found := m.Filter(normalizeTactic(params.Tactic), params.Platform, params.Query)
	results := summarize(m, found, clampLimit(params.Limit))
	return SearchResult{
		Domain:  string(m.Domain),
		Count:   len(results),
		Total:   len(found),
		Results: results,
	}, nil
}

// GetTechnique looks one technique up by id. Without a domain, Enterprise then Mobile are searched.
func (s *Toolset) GetTechnique(ctx context.Context, params TechniqueParams) (TechniqueDetails, error) {
	id := strings.ToUpper(strings.TrimSpace(params.ID))
	if id == "" {
		return TechniqueDetails{}, fmt.Errorf("id is required")
	}

	domains := []string{params.Domain}
	if params.Domain == "" {
		domains = []string{string(model.DomainEnterprise), string(model.DomainMobile)}
	}

	for _, d := range domains {
		m, err := s.loadMatrix(ctx, d)
		if err != nil {
			return TechniqueDetails{}, err
		}
		t, ok := m.Find(id)
		if !ok {
			continue
		}
		return techniqueDetails(m, t), nil
	}
	return TechniqueDetails{Found: false, TechniqueID: id}, nil
}

func techniqueDetails(m matrix.Matrix, t model.Technique) TechniqueDetails {
	d := TechniqueDetails{
		Found:        true,
		TechniqueID:  t.TechniqueID,
		Name:         t.Name,
		Domain:       string(t.Domain),
		Description:  t.Description,
		Platforms:    t.Platforms,
		Subtechnique: t.IsSubtechnique,
		URL:          t.URL,
		STIXID:       t.ID,
	}
	for _, tac := range t.Tactics {
		d.Tactics = append(d.Tactics, m.TacticName(tac))
		if col, ok := m.Column(tac); ok && col.Phase != "" {
			d.Phases = append(d.Phases, col.Phase)
		}
	}
	if parent, _, ok := strings.Cut(t.TechniqueID, "."); ok {
		d.Parent = parent
	}
	prefix := t.TechniqueID + "."
	for _, other := range m.Techniques {
		if strings.HasPrefix(other.TechniqueID, prefix) {
			d.Subtechniques = append(d.Subtechniques, other.TechniqueID)
		}
	}
	sort.Strings(d.Subtechniques)
	return d
}

// ListTactics returns the matrix columns in tracked order
func (s *Toolset) ListTactics(ctx context.Context, params DomainParams) (TacticsResult, error) {
	m, err := s.loadMatrix(ctx, params.Domain)
	if err != nil {
		return TacticsResult{}, err
	}
	res := TacticsResult{Domain: string(m.Domain), Tactics: make([]TacticSummary, 0, len(m.Columns))}
	for _, c := range m.Columns {
		res.Tactics = append(res.Tactics, TacticSummary{
			ShortName:  c.Tactic,
			Name:       m.TacticName(c.Tactic),
			ID:         m.Info[c.Tactic].ID,
			Phase:      c.Phase,
			Techniques: len(c.Techniques),
		})
	}
	res.Count = len(res.Tactics)
	return res, nil
}

// TechniquesByTactic lists one matrix column, optionally narrowed to a platform
func (s *Toolset) TechniquesByTactic(ctx context.Context, params TacticParams) (TacticResult, error) {
	tactic := normalizeTactic(params.Tactic)
	if tactic == "" {
		return TacticResult{}, fmt.Errorf("tactic is required")
	}
	m, err := s.loadMatrix(ctx, params.Domain)
	if err != nil {
		return TacticResult{}, err
	}
	col, ok := m.Column(tactic)
	if !ok {
		return TacticResult{}, fmt.Errorf("tactic %q is not part of the %s matrix", params.Tactic, m.Domain)
	}

	list := col.Techniques
	if params.Platform != "" {
		list = m.Filter(tactic, params.Platform, "")
	}
	results := summarize(m, list, clampLimit(params.Limit))
	return TacticResult{
		Domain:  string(m.Domain),
		Tactic:  col.Tactic,
		Name:    m.TacticName(col.Tactic),
		Phase:   col.Phase,
		Count:   len(results),
		Total:   len(list),
		Results: results,
	}, nil
}

// GetMatrixStats summarises a matrix
func (s *Toolset) GetMatrixStats(ctx context.Context, params DomainParams) (StatsResult, error) {
	m, err := s.loadMatrix(ctx, params.Domain)
	if err != nil {
		return StatsResult{}, err
	}
	st := m.Stats()
	top := st.PerPlatform
	if len(top) > defaultLimit {
		top = top[:defaultLimit]
	}
	return StatsResult{
		Domain:        string(m.Domain),
		Techniques:    st.Techniques,
		Subtechniques: st.Subtechniques,
		Tactics:       st.Tactics,
		PerTactic:     st.PerTactic,
		TopPlatforms:  top,
	}, nil
}

// ExportLayer writes the filtered techniques to the export directory
func (s *Toolset) ExportLayer(ctx context.Context, params ExportParams) (ExportResult, error) {
	name := params.Format
	if name == "" {
		name = "layer"
	}
	format, ok := tui.ParseExportFormat(name)
	if !ok {
		return ExportResult{Success: false, Error: "invalid format, use layer, json, csv, markdown or yaml"}, nil
	}

	m, err := s.loadMatrix(ctx, params.Domain)
	if err != nil {
		return ExportResult{Success: false, Error: err.Error()}, nil
	}
	techniques := m.Filter(normalizeTactic(params.Tactic), params.Platform, params.Query)
	if len(techniques) == 0 {
		return ExportResult{Success: false, Error: "no techniques match the given filters"}, nil
	}

	result := tui.Export(m, techniques, format, s.getExportDir())
	if result.Err != nil {
		return ExportResult{Success: false, Error: result.Err.Error()}, nil
	}
	return ExportResult{
		Success:  true,
		FilePath: result.FilePath,
		Format:   format.String(),
		Count:    result.Count,
	}, nil
}

func newTool[P, R any](name, description string, fn func(context.Context, P) (R, error)) (tool.Tool, error) {
	t, err := functiontool.New(
		functiontool.Config{Name: name, Description: description},
		func(ctx tool.Context, params P) (R, error) {
			return fn(ctx, params)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", name, err)
	}
	return t, nil
}

// CreateTools creates all ATT&CK tools for the agent
func CreateTools(s *Toolset) ([]tool.Tool, error) {
	var tools []tool.Tool
	add := func(t tool.Tool, err error) error {
		if err != nil {
			return err
		}
		tools = append(tools, t)
		return nil
	}

	if err := add(newTool("search_techniques",
		"Search ATT&CK techniques by keyword, tactic or platform", s.SearchTechniques)); err != nil {
		return nil, err
	}
	if err := add(newTool("get_technique",
		"Get full details of an ATT&CK technique by id, including its sub-techniques", s.GetTechnique)); err != nil {
		return nil, err
	}
	if err := add(newTool("list_tactics",
		"List the tactics (matrix columns) of a domain in kill-chain order with technique counts", s.ListTactics)); err != nil {
		return nil, err
	}
	if err := add(newTool("techniques_by_tactic",
		"List the techniques under one tactic, optionally for a single platform", s.TechniquesByTactic)); err != nil {
		return nil, err
	}
	if err := add(newTool("get_matrix_stats",
		"Get technique, sub-technique and tactic counts plus the most covered platforms", s.GetMatrixStats)); err != nil {
		return nil, err
	}
	if err := add(newTool("export_layer",
		"Export techniques as an ATT&CK Navigator layer or as JSON, CSV, Markdown or YAML", s.ExportLayer)); err != nil {
		return nil, err
	}
	return tools, nil
}
