package cmd

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/attack-tui/internal/agent"
	"github.com/ethanolivertroy/attack-tui/internal/chat"
	"github.com/ethanolivertroy/attack-tui/internal/llm"
)

var agentCmd = &cobra.Command{
	Use:   "agent [query]",
	Short: "Chat with Scout, the ATT&CK assistant",
	Long: `Chat with Scout. With no arguments an interactive chat opens; with a
query Scout answers once and exits.

Examples:
  # Interactive chat
  attack-tui agent

  # One-shot question
  attack-tui agent "what sub-techniques does T1059 have?"

  # Use a local model
  LLM_PROVIDER=ollama attack-tui agent "list the mobile tactics"`,
	RunE: runAgent,
}

// llmSetupError explains how to configure the selected provider
func llmSetupError(c llm.Config, err error) error {
	switch c.Provider {
	case llm.ProviderGemini, "":
		return fmt.Errorf("LLM configuration error: %w\n\nFor Gemini, set:\n  export GEMINI_API_KEY=your-api-key\n\nFor Ollama (local), set:\n  export LLM_PROVIDER=ollama", err)
	default:
		return fmt.Errorf("LLM configuration error: %w", err)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	lc := llmConfig()
	if err := lc.Validate(); err != nil {
		return llmSetupError(lc, err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	query := strings.TrimSpace(strings.Join(args, " "))
	if len(args) > 0 && query == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if query != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Asking %s (%s/%s)...\n", chat.AssistantName, lc.Provider, lc.Model)
	}
	a, err := agent.New(ctx, lc, client)
	if err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}
	a.SetLogger(log)

	if query != "" {
		response, err := a.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), response)
		return nil
	}

	p := tea.NewProgram(chat.NewModel(ctx, a), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
