package main

import (
	"fmt"
	"net"
	"net/http"
	"time"

	mcpAdapter "github.com/aretw0/nodegraph/internal/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	var transport, addr, baseURL string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes the stored documents to AI agents as MCP tools and resources.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Node output and logs stay off stdout, which carries JSON-RPC
			s, err := a.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			srv := mcpAdapter.NewServer(s, mcpAdapter.WithLogger(a.logger))

			switch transport {
			case "stdio":
				a.logger.Info("mcp server starting", "transport", transport, "backend", a.cfg.Store.Backend)
				return srv.ServeStdio()
			case "sse":
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				if baseURL == "" {
					baseURL = localURL(addr)
				}
				return listen(cmd, a, &http.Server{
					Addr:              addr,
					Handler:           srv.SSEHandler(baseURL),
					ReadHeaderTimeout: 10 * time.Second,
				}, "mcp server")
			default:
				return fmt.Errorf("unknown transport %q: supported: stdio, sse", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address for sse; overrides server.addr")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public URL of the sse server (default derived from the listen address)")
	return cmd
}

// localURL turns a listen address into the URL a local client reaches it on.
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
