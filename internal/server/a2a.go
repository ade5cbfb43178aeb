// Package server exposes the Scout agent over the A2A protocol.
package server

import (
	"context"
	"fmt"

	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/web"
	"google.golang.org/adk/cmd/launcher/web/a2a"
	"google.golang.org/adk/session"

	"github.com/ethanolivertroy/attack-tui/internal/agent"
	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/llm"
	"github.com/ethanolivertroy/attack-tui/pkg/logger"
)

// DefaultPort is used when no port is configured
const DefaultPort = 8001

// A2AConfig holds configuration for the A2A server
type A2AConfig struct {
	Host string
	Port int
	LLM  llm.Config
}

// BaseURL is the address advertised in the startup log
func (c A2AConfig) BaseURL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

// launcherArgs are the flags handed to the ADK web launcher
func (c A2AConfig) launcherArgs() []string {
	port := c.Port
	if port <= 0 {
		port = DefaultPort
	}
	return []string{"--port", fmt.Sprintf("%d", port)}
}

// RunA2AServer serves the agent until ctx is cancelled. Its tools read
// through client, so they share the fetched datasets with the rest of the process.
func RunA2AServer(ctx context.Context, cfg A2AConfig, client *api.Client, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("a2a")

	if err := cfg.LLM.Validate(); err != nil {
		return fmt.Errorf("invalid LLM config: %w", err)
	}

	a, err := agent.New(ctx, cfg.LLM, client)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	a.SetLogger(log)

	webLauncher := web.NewLauncher(a2a.NewLauncher())
	if _, err := webLauncher.Parse(cfg.launcherArgs()); err != nil {
		return fmt.Errorf("failed to parse launcher args: %w", err)
	}

	base := cfg.BaseURL()
	log.Info().
		Str("agent_card", base+"/.well-known/agent-card.json").
		Str("endpoint", base+"/a2a").
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Msg("A2A server starting")

	return webLauncher.Run(ctx, &launcher.Config{
		AgentLoader:    adkagent.NewSingleLoader(a.Agent()),
		SessionService: session.InMemoryService(),
	})
}
