package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-animator/internal/config"
	"github.com/kozaktomas/face-animator/internal/database/postgres"
	"github.com/kozaktomas/face-animator/internal/engine"
	"github.com/kozaktomas/face-animator/internal/expressionlog"
	"github.com/kozaktomas/face-animator/internal/imagestore"
	"github.com/kozaktomas/face-animator/internal/logging"
	"github.com/kozaktomas/face-animator/internal/session"
	"github.com/kozaktomas/face-animator/internal/web"
	"github.com/kozaktomas/face-animator/internal/web/gateway"
	"github.com/kozaktomas/face-animator/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the animation server",
	Long: `Start the Face Animator server.
The server accepts landmark streams on /ws, broadcasts animation updates to
every viewer of a session, and serves the HTTP API and the browser client.
Expression logs are kept in memory unless DATABASE_URL points at PostgreSQL.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// applyServeFlags lets explicit flags win over environment configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = mustGetString(cmd, "host")
	}
}

// openExpressionStore picks PostgreSQL when configured, memory otherwise.
// The returned close func is never nil.
func openExpressionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (expressionlog.Store, func(), error) {
	if cfg.Database.URL == "" {
		fmt.Println("Expression logs kept in memory (DATABASE_URL not set)")
		return expressionlog.NewMemoryStore(), func() {}, nil
	}

	fmt.Println("Connecting to PostgreSQL database...")
	pool, err := postgres.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	fmt.Println("Expression log persistence enabled (PostgreSQL)")
	return postgres.NewExpressionLogRepository(pool), func() { pool.Close() }, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openExpressionStore(ctx, cfg, logger.Named("postgres"))
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := imagestore.New(cfg.Images.Dir, cfg.Images.MaxSize)
	if err != nil {
		return fmt.Errorf("opening image store: %w", err)
	}

	logs := expressionlog.NewService(store, logger.Named("expressionlog"),
		cfg.Sessions.InactiveThreshold, cfg.Sessions.CleanupInterval)
	logs.Start()
	defer logs.Stop()

	origins := middleware.NewOriginPolicy(cfg.Server.AllowedOrigins)
	eng := engine.New(engine.WithFilters(cfg.EngineFilters()))
	hub := gateway.NewHub(logger.Named("gateway"), origins.Allowed)
	manager := session.NewManager(eng, hub, logger.Named("session"))
	hub.Attach(manager)

	server := web.NewServer(cfg, web.Deps{
		Engine:   eng,
		Sessions: manager,
		Gateway:  hub,
		Images:   images,
		Logs:     logs,
	}, origins)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Animator on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
