package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/attack-tui/internal/httpapi"
	"github.com/ethanolivertroy/attack-tui/internal/server"
)

var (
	serveHost string
	servePort int

	apiHost string
	apiPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run Scout as an A2A server",
	Long: `Serve Scout over the Agent-to-Agent protocol.

Examples:
  # A2A server on localhost:8001
  attack-tui serve

  # Custom port
  attack-tui serve --port 9000

  # Bind to all interfaces (no authentication, use with care)
  attack-tui serve --host 0.0.0.0`,
	RunE: runServe,
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the matrices over a JSON REST API",
	Long: `Serve the ATT&CK matrices over HTTP.

Endpoints:
  GET  /health
  GET  /api/v1/tactics
  GET  /api/v1/domains/{domain}/techniques?tactic=&platform=&q=
  GET  /api/v1/domains/{domain}/techniques/{id}
  GET  /api/v1/domains/{domain}/matrix
  GET  /api/v1/domains/{domain}/stats
  GET  /api/v1/domains/{domain}/layer?tactic=&platform=&q=&name=
  POST /api/v1/refresh

Examples:
  attack-tui api
  attack-tui api --port 9090
  curl localhost:8090/api/v1/domains/mobile/techniques?tactic=initial-access`,
	RunE: runAPI,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind (0.0.0.0 exposes the agent to the network)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port for the A2A server (default: agent.port from config)")

	apiCmd.Flags().StringVar(&apiHost, "host", "", "Host to bind (default: api.host from config)")
	apiCmd.Flags().IntVar(&apiPort, "port", 0, "Port to listen on (default: api.port from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	lc := llmConfig()
	if err := lc.Validate(); err != nil {
		return llmSetupError(lc, err)
	}

	port := servePort
	if port == 0 {
		port = cfg.Agent.Port
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	return server.RunA2AServer(ctx, server.A2AConfig{Host: serveHost, Port: port, LLM: lc}, client, log)
}

func runAPI(cmd *cobra.Command, args []string) error {
	ac := cfg.API
	if apiHost != "" {
		ac.Host = apiHost
	}
	if apiPort != 0 {
		ac.Port = apiPort
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	return httpapi.New(ac, client, log, Version).ListenAndServe(ctx)
}
