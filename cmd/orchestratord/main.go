// Command orchestratord is the fleet orchestrator's daemon process: it
// wires the reactor, accepts node connections, and publishes the
// public bus facade until asked to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fleetkit/orchestrator/internal/config"
	"github.com/fleetkit/orchestrator/internal/orchestrator"
	"github.com/fleetkit/orchestrator/internal/reactor"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "orchestratord",
	Short:   "Fleet orchestrator daemon",
	Version: "0.1.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config overlay (optional)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	r := reactor.New(256)
	go r.Run(ctx)

	orch := orchestrator.New(r, cfg.BusName, cfg.CallTimeout, log)
	if err := orch.Start(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}
	log.Info().Str("listen_addr", cfg.ListenAddr).Str("bus_name", cfg.BusName).Msg("orchestrator started")

	var statusSrv *http.Server
	if cfg.StatusAddr != "" {
		statusSrv = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           orch.StatusHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("status_addr", cfg.StatusAddr).Msg("status endpoint listening")
			if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("status endpoint stopped unexpectedly")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	select {
	case <-orch.Stop():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("timed out waiting for the running job to finish")
	}

	if statusSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = statusSrv.Shutdown(shutdownCtx)
	}

	log.Info().Msg("orchestrator stopped")
	return nil
}
