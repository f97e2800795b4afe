package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/skridlevsky/insiders/internal/api"
	"github.com/skridlevsky/insiders/internal/db"
	"github.com/skridlevsky/insiders/internal/refresh"
	"github.com/skridlevsky/insiders/internal/snapshot"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranked backlog over HTTP, refreshing it periodically",
	Long: `Start the API server. The backlog is rebuilt every REFRESH_INTERVAL.
When DATABASE_URL is set, every refresh is saved as a snapshot.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default PORT or 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// an empty namespace list would refresh an empty backlog forever
	cfg, err := loadConfig("GITHUB_TOKEN", "BACKLOG_NAMESPACES")
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	// cmd.Context() is cancelled on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	routerCfg := &api.RouterConfig{
		AllowedOrigins: cfg.CORSOrigins,
		AllowAnyOrigin: cfg.Env == "development",
	}
	var snapshots refresh.SnapshotSaver

	var database *db.Postgres
	if cfg.DatabaseURL != "" {
		// Closed explicitly after the server has drained
		database, err = db.Open(ctx, cfg.DatabaseURL, db.ServerConns)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		store := snapshot.NewStore(database.Pool())
		snapshots = store
		routerCfg.Database = database
		routerCfg.Snapshots = store
	} else {
		slog.Warn("DATABASE_URL not set, snapshots disabled")
	}

	if cfg.ReactionsCacheTTL <= cfg.RefreshInterval {
		slog.Warn("REACTIONS_CACHE_TTL does not exceed REFRESH_INTERVAL, reactions will be refetched every refresh",
			"ttl", cfg.ReactionsCacheTTL, "interval", cfg.RefreshInterval)
	}
	pipeline := newPipeline(ctx, cfg, pipelineOptions{cacheTTL: cfg.ReactionsCacheTTL})
	refresher, err := refresh.NewRefresher(pipeline, cfg.Backlog.Sort, pipeline.Namespaces, cfg.RefreshInterval, snapshots)
	if err != nil {
		if database != nil {
			database.Close()
		}
		return fmt.Errorf("failed to create refresher: %w", err)
	}
	refresher.Run(ctx)
	routerCfg.Backlog = refresher

	routerResult := api.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routerResult.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		slog.Error("Server failed", "error", err)
	}

	slog.Info("Shutting down server...")
	refresher.Stop()
	routerResult.RateLimiters.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Error("Server forced to shutdown", "error", shutdownErr)
	}

	if database != nil {
		database.Close()
	}

	slog.Info("Server exited")
	return err
}
