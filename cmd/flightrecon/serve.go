package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yegors/flightrecon/internal/api"
	"github.com/yegors/flightrecon/internal/pipeline"
	"github.com/yegors/flightrecon/internal/refdata"
	"github.com/yegors/flightrecon/internal/websocket"
	"github.com/yegors/flightrecon/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline and serve the results over HTTP",
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting flightrecon server",
		logger.String("version", Version),
		logger.String("config_path", configPath))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run(ctx)

	service := pipeline.NewService(
		pipeline.New(cfg, log, pipeline.WithObserver(websocket.NewRunObserver(wsServer))),
		pipeline.WithReports(cfg.Report, cmd.OutOrStdout()))

	// A failed initial run leaves the server up; POST /api/v1/runs retries it
	if _, err := service.Trigger(ctx); err != nil {
		log.Error("Initial pipeline run failed", logger.Error(err))
	}

	var reference api.ReferenceSource
	if cfg.Reference.Enabled {
		reference = refdata.NewCache(refdata.NewClient(cfg.Reference, log), cfg.Reference, log)
	}

	handler := api.NewHandler(service, reference, wsServer, Version, log)
	router := api.NewRouter(handler, cfg.Report.PDFDir, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
		return err
	}

	log.Info("Server fully stopped")
	return nil
}
