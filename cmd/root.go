// Package cmd is the attack-tui command line.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/config"
	"github.com/ethanolivertroy/attack-tui/internal/llm"
	"github.com/ethanolivertroy/attack-tui/internal/model"
	"github.com/ethanolivertroy/attack-tui/pkg/logger"
)

var (
	// Global flags
	cfgFile   string
	domainArg string
	logLevel  string

	// Shared resources, set up before any subcommand runs
	cfg     *config.Config
	client  *api.Client
	log     *logger.Logger
	logFile *os.File
)

// rootCmd runs the matrix browser with the Scout sidebar
var rootCmd = &cobra.Command{
	Use:   "attack-tui",
	Short: "Browse the MITRE ATT&CK matrices in the terminal",
	Long: `attack-tui - MITRE ATT&CK matrices in your terminal.

Browse the Enterprise, Mobile and PRE-ATT&CK matrices by tactic, filter by
platform, chart coverage, export Navigator layers, and ask Scout, the built-in
ATT&CK assistant.

Examples:
  # Browser with the Scout sidebar
  attack-tui

  # Start on the mobile matrix
  attack-tui --domain mobile

  # One-shot question
  attack-tui agent "which execution techniques run on macOS?"

  # Print the matrix as YAML
  attack-tui matrix -o yaml

  # REST API on 127.0.0.1:8090
  attack-tui api

Keyboard:
  \       Toggle the Scout panel
  Tab     Switch focus between panels
  Ctrl+K  Open/focus Scout
  Ctrl+P  Open the command palette
  Ctrl+C  Quit`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
	},
	RunE: runTUI,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization cycle:
	// setup -> ownsTerminal -> rootCmd.
	rootCmd.PersistentPreRunE = setup

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Config file (default: attack-tui.yaml in ., ~/.config/attack-tui or /etc/attack-tui)")
	rootCmd.PersistentFlags().StringVarP(&domainArg, "domain", "d", "enterprise",
		"Matrix: enterprise, mobile or pre-attack")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override logger.level (debug, info, warn, error)")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(tacticsCmd)
	rootCmd.AddCommand(versionCmd)
}

// ownsTerminal reports whether cmd runs a full-screen program, in which case
// logs go to logger.file instead of stderr
func ownsTerminal(cmd *cobra.Command, args []string) bool {
	return cmd == rootCmd || (cmd == agentCmd && len(args) == 0)
}

// setup loads configuration, builds the logger and the shared client
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Logger.Level = logLevel
	}

	lc := logger.Config{
		Level:      c.Logger.Level,
		Format:     c.Logger.Format,
		TimeFormat: c.Logger.TimeFormat,
		Output:     cmd.ErrOrStderr(),
	}
	switch {
	case !ownsTerminal(cmd, args):
		log = logger.New(lc)
	case c.Logger.File != "":
		f, err := logger.OpenFile(c.Logger.File)
		if err != nil {
			return err
		}
		logFile = f
		lc.Output = f
		log = logger.New(lc)
	default:
		log = logger.Nop()
	}
	logger.SetGlobal(log)

	client = api.NewClientWithHTTPClient(&http.Client{Timeout: c.HTTP.Timeout})
	client.SetLogger(log)
	c.Apply(client)
	cfg = c

	log.WithFields(map[string]any{
		"command": cmd.Name(),
		"sources": client.URLs(),
	}).Debug().Msg("configured")
	return nil
}

// selectedDomain parses the --domain flag
func selectedDomain() (model.Domain, error) {
	d, ok := model.ParseDomain(domainArg)
	if !ok {
		return "", fmt.Errorf("%w: %q (use enterprise, mobile or pre-attack)", api.ErrUnknownDomain, domainArg)
	}
	return d, nil
}

// llmConfig returns the configured provider settings with defaults filled
func llmConfig() llm.Config {
	return llm.Config(cfg.LLM).WithDefaults()
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runTUI(cmd *cobra.Command, args []string) error {
	domain, err := selectedDomain()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	app := newAppModel(ctx, client, domain, llmConfig())
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}
