package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

var (
	outputFormat string
	tacticFlag   string
	platformFlag string
	queryFlag    string
	refreshFlag  bool
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print techniques grouped by tactic",
	Long: `Print a matrix column by column, in the tracked tactic order.

Examples:
  # Enterprise matrix as a table
  attack-tui matrix

  # Mobile initial access as JSON
  attack-tui matrix -d mobile --tactic initial-access -o json

  # Linux techniques mentioning "cron" as YAML
  attack-tui matrix --platform linux -q cron -o yaml`,
	RunE: runMatrix,
}

var tacticsCmd = &cobra.Command{
	Use:   "tactics",
	Short: "Print the tracked tactic order",
	Long: `Print the tactic order read from the tactics source, split into the
prepare and act phases.

Examples:
  attack-tui tactics
  attack-tui tactics -o json`,
	RunE: runTactics,
}

func init() {
	for _, c := range []*cobra.Command{matrixCmd, tacticsCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json or yaml")
		c.Flags().BoolVar(&refreshFlag, "refresh", false, "Fetch the sources again instead of using the bundled or cached copy")
	}
	matrixCmd.Flags().StringVar(&tacticFlag, "tactic", "", "Only this tactic (short name, e.g. initial-access)")
	matrixCmd.Flags().StringVar(&platformFlag, "platform", "", "Only techniques for this platform")
	matrixCmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Only techniques whose id, name or description contains this")
}

// checkFormat validates the --output flag
func checkFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}
	domain, err := selectedDomain()
	if err != nil {
		return err
	}

	m, err := client.Matrix(cmd.Context(), domain, refreshFlag)
	if err != nil {
		return fmt.Errorf("failed to load %s matrix: %w", domain, err)
	}
	m = narrow(m, tacticFlag, platformFlag, queryFlag)

	return writeMatrix(cmd.OutOrStdout(), m, outputFormat)
}

// narrow keeps the columns and techniques that pass the filters
func narrow(m matrix.Matrix, tactic, platform, query string) matrix.Matrix {
	if tactic == "" && platform == "" && query == "" {
		return m
	}
	keep := make(map[string]bool)
	list := m.Filter(tactic, platform, query)
	for _, t := range list {
		keep[t.ID] = true
	}

	out := matrix.Matrix{Domain: m.Domain, Techniques: list, Info: m.Info}
	for _, c := range m.Columns {
		if tactic != "" && c.Tactic != tactic {
			continue
		}
		col := matrix.Column{Tactic: c.Tactic, Phase: c.Phase, Techniques: []model.Technique{}}
		for _, t := range c.Techniques {
			if keep[t.ID] {
				col.Techniques = append(col.Techniques, t)
			}
		}
		if len(col.Techniques) > 0 {
			out.Columns = append(out.Columns, col)
		}
	}
	return out
}

func writeMatrix(w io.Writer, m matrix.Matrix, format string) error {
	switch format {
	case "json":
		return encodeJSON(w, m)
	case "yaml":
		return encodeYAML(w, m)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TACTIC", "PHASE", "ID", "NAME", "PLATFORMS")
	rows := 0
	for _, c := range m.Columns {
		for _, tech := range c.Techniques {
			name := tech.Name
			if tech.IsSubtechnique {
				name = "  " + name
			}
			t.Row(m.TacticName(c.Tactic), c.Phase, tech.TechniqueID, name, strings.Join(tech.Platforms, ", "))
			rows++
		}
	}
	if rows == 0 {
		_, err := fmt.Fprintf(w, "No techniques in the %s matrix match.\n", m.Domain)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n%s: %d techniques in %d tactics\n", t.Render(), m.Domain, len(m.Techniques), len(m.Columns))
	return err
}

// TacticOrder is the printable form of the tracked order
type TacticOrder struct {
	Prepare []string `json:"prepare" yaml:"prepare"`
	Act     []string `json:"act" yaml:"act"`
	Total   []string `json:"total" yaml:"total"`
}

func runTactics(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}
	tracker, err := client.TacticOrder(cmd.Context(), refreshFlag)
	if err != nil {
		return fmt.Errorf("failed to load tactic order: %w", err)
	}
	order := TacticOrder{Prepare: tracker.Prepare(), Act: tracker.Act(), Total: tracker.Total()}

	w := cmd.OutOrStdout()
	switch outputFormat {
	case "json":
		return encodeJSON(w, order)
	case "yaml":
		return encodeYAML(w, order)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "TACTIC", "NAME", "PHASE")
	for i, name := range order.Total {
		t.Row(fmt.Sprint(i+1), name, model.DisplayTacticName(name), tracker.PhaseOf(name))
	}
	_, err = fmt.Fprintf(w, "%s\n%d prepare, %d act\n", t.Render(), len(order.Prepare), len(order.Act))
	return err
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
