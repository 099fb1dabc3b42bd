package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/nodegraph/internal/adapters/http"
	"github.com/aretw0/nodegraph/internal/presentation/tui"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP inspector",
		Long:  `Serves the stored documents as JSON and Mermaid, the node types and Prometheus metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			s.metrics.MustRegister(collectors.NewGoCollector())

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           httpAdapter.NewHandler(s, httpAdapter.WithGatherer(s.metrics), httpAdapter.WithLogger(a.logger)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			if isTerminal(cmd) {
				tui.PrintBanner(cmd.OutOrStdout())
			}

			return listen(cmd, a, srv, "inspector")
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; overrides server.addr")
	return cmd
}

// listen serves srv until it fails or the process is interrupted, then shuts it down gracefully.
func listen(cmd *cobra.Command, a *app, srv *http.Server, what string) error {
	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info(what+" listening", "addr", srv.Addr, "backend", a.cfg.Store.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutting down", "server", what)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			return srv.Close()
		}
		return nil
	}
}
