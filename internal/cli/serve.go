package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/engramdev/engram/internal/observability"
	"github.com/engramdev/engram/pkg/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the maintenance daemon",
	Long: `Run engram as a long-lived process: the expiry sweeper runs on its
schedule and, when enabled, a Prometheus metrics endpoint is exposed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	log := e.log.GetZerolog()

	if !e.cfg.Maintenance.Enabled {
		return fmt.Errorf("maintenance is disabled; nothing to serve")
	}

	sweeper := memory.NewSweeper(e.repo, memory.SweeperConfig{
		Schedule:     e.cfg.Maintenance.Schedule,
		KeepVersions: e.cfg.Versions.MaxPerMemory,
		Logger:       log,
	})
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	var metricsSrv *http.Server
	if e.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		metricsSrv = &http.Server{Addr: e.cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		log.Info().Str("addr", e.cfg.Metrics.Addr).Msg("Metrics endpoint listening")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("Shutting down")
	case <-ctx.Done():
	}

	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	return nil
}
