package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/service"
)

var (
	portFlag int
	hostFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the memory engine",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	stdioCmd = &cobra.Command{
		Use:   "stdio",
		Short: "Serve the memory tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := newServer(cmd.Context())
			if err != nil {
				return err
			}
			return server.ServeStdio(srv)
		},
	}

	httpCmd = &cobra.Command{
		Use:   "http",
		Short: "Serve the memory tools over streamable HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := newServer(cmd.Context())
			if err != nil {
				return err
			}

			addr := fmt.Sprintf("%s:%d", hostFlag, portFlag)
			log.Info("serving memory tools", "addr", addr)
			return server.NewStreamableHTTPServer(srv).Start(addr)
		},
	}
)

func newServer(ctx context.Context) (*server.MCPServer, error) {
	engine, err := service.NewEngine(ctx)
	if err != nil {
		return nil, err
	}

	srv := server.NewMCPServer(
		"memcore",
		"1.0.0",
		server.WithLogging(),
	)
	service.RegisterMemoryTools(srv, engine)
	return srv, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(stdioCmd)
	serveCmd.AddCommand(httpCmd)

	serveCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.PersistentFlags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
}

var longServe = `
Serve the memory engine as an MCP tool server.

Examples:
  # Serve over stdio for a local agent
  memcore serve stdio

  # Serve over HTTP on port 8080
  memcore serve http --port 8080
`
