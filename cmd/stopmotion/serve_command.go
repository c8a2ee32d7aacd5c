package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tendant/stopmotion-pipeline/internal/handlers"
	"github.com/tendant/stopmotion-pipeline/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var lazyEncoder bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an editing session over a local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.HTTPAddr
			}

			reg := prometheus.NewRegistry()
			runnerCfg := ctx.runnerConfig(logger)
			runnerCfg.Registerer = reg
			r, err := newRunner(runnerCfg)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			defer r.Close()

			// A failed load is reported through the session status and can
			// be retried with POST /v1/encoder/load.
			if !lazyEncoder {
				if err := r.LoadEncoder(signalCtx); err != nil {
					logger.Warn("encoder not loaded", logging.Error(err))
				}
			}

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			server := &http.Server{
				Handler:           handlers.NewAPIHandler(r, logger, reg).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Serve(listener)
			}()
			logger.Info("session server listening", logging.String("addr", listener.Addr().String()))
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", listener.Addr())

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-signalCtx.Done():
			}

			logger.Info("shutting down session server")
			shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(signalCtx), shutdownTimeout)
			defer stop()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the configured server.http_addr)")
	cmd.Flags().BoolVar(&lazyEncoder, "lazy-encoder", false, "Skip loading the encoder at startup")
	return cmd
}
