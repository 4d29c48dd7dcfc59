package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfz/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/pdfz/internal/adapters/driving/mcp"
	"github.com/custodia-labs/pdfz/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API for ingestion and document lookup.

  POST /ingest                      {"url": "..."}  201 stored, 409 duplicate
  GET  /documents                   list stored documents
  GET  /documents/{id}              full metadata
  GET  /documents/{id}/toc          table of contents
  GET  /documents/{id}/pages        ?start=N&end=M rendered as markdown

With --mcp-addr the MCP tools are also served over streamable HTTP. Without
a configured LLM the server still answers lookups and POST /ingest returns
503.

Examples:
  pdfz serve
  pdfz serve --addr :9000 --mcp-addr :9001`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP API listen address (default from settings, :8000)")
	serveCmd.Flags().String("mcp-addr", "", "Also serve MCP over HTTP on this address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	server := settings.Server
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		server.Addr = addr
	}
	if addr, _ := cmd.Flags().GetString("mcp-addr"); addr != "" {
		server.MCPAddr = addr
	}

	retrieval, err := getRetrievalService()
	if err != nil {
		return err
	}
	ingest, err := optionalIngestService()
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Config{
		Ingest:              ingest,
		Retrieval:           retrieval,
		ListenAddr:          server.Addr,
		Secret:              server.Secret,
		IngestRatePerMinute: server.IngestRatePerMinute,
		Logger:              logger.WithFields(map[string]any{"component": "http"}),
	})
	if err != nil {
		return err
	}
	if server.Secret != "" {
		cmd.Printf("API token: %s\n", httpapi.APIToken(server.Secret))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errs := make(chan error, 2)
	running := 1
	go func() { errs <- api.Run(ctx) }()

	if server.MCPAddr != "" {
		mcpServer, err := mcp.NewServer(&mcp.Ports{Retrieval: retrieval})
		if err != nil {
			return err
		}
		running++
		go func() { errs <- mcpServer.RunHTTP(ctx, server.MCPAddr) }()
	}

	// The first listener to stop takes the other down with it.
	var first error
	for i := 0; i < running; i++ {
		if err := <-errs; err != nil && first == nil {
			first = fmt.Errorf("server stopped: %w", err)
		}
		cancel()
	}
	return first
}
