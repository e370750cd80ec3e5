package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"headsup/internal/aggregate"
	"headsup/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the attention HTTP API",
	Long: `Start an HTTP server exposing the aggregation pipeline.

Endpoints:
  GET /health
  GET /combined/analyzed-items?user=NAME
  GET /github/prs?user=NAME
  GET /jira/issues?user=NAME
  GET /slack/analyzed-messages?user=NAME`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	pipelines, err := buildPipelines(cfg, log)
	if err != nil {
		return err
	}

	engine := aggregate.NewEngine(pipelines,
		cfg.Aggregation.MinScore,
		cfg.Aggregation.SourceTimeout(),
		cfg.Aggregation.GlobalTimeout(),
		log)

	srv := server.New(engine, pipelines, cfg.Aggregation.SourceTimeout(), log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.Timeout(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
