package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/songlist/editor/internal/adapters/repository"
	"github.com/songlist/editor/internal/application/services"
	"github.com/songlist/editor/internal/infrastructure/config"
	"github.com/songlist/editor/internal/infrastructure/database"
	"github.com/songlist/editor/internal/infrastructure/logger"
	"github.com/songlist/editor/internal/infrastructure/metrics"
	"github.com/songlist/editor/internal/infrastructure/server"
	"github.com/songlist/editor/internal/infrastructure/watcher"
	"github.com/songlist/editor/internal/ports"
)

// Version is stamped at build time
var Version = "development"

// ConfigFile is set by the root --config flag
var ConfigFile string

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the songlist API server",
		Long:  "Serve GET and PUT on /api/songs backed by the configured storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the documents table of the postgres backend (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print songlist version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "songlist %s\n", Version)
		},
	}
}

func runServer() error {
	cfg, err := config.Load(ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	repo, closeRepo, err := newRepository(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
	}
	defer closeRepo()

	m := metrics.New()
	documents := services.NewDocumentService(repo, m, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Storage.Watch {
		w, err := watcher.New(cfg.Storage.FilePath, m.ExternalChanges, appLogger)
		if err != nil {
			appLogger.Fatalw("Failed to watch document", "path", cfg.Storage.FilePath, "error", err)
		}
		documents.SetWriteObserver(w)
		go w.Run(ctx)
	}

	srv := server.New(cfg, documents, m, appLogger)

	go func() {
		appLogger.Infow("Starting songlist API server",
			"port", cfg.Server.Port,
			"environment", cfg.App.Environment,
			"backend", repo.Name(),
		)

		if err := srv.Start(cfg.Server.GetAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalw("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	appLogger.Infow("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Infow("Server exited gracefully")
	return nil
}

// newRepository builds the configured document backend and its cleanup
func newRepository(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (ports.DocumentRepository, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		appLogger.Infow("Database connected", "pool", db.GetConnectionInfo())
		return repository.NewPostgresRepository(db.DB, repository.DefaultDocumentName), func() { db.Close() }, nil
	case config.BackendS3:
		client, err := repository.NewS3Client(cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewS3Repository(client, cfg.S3.Bucket, cfg.S3.Key), func() {}, nil
	case config.BackendRedis:
		client, err := repository.NewRedisClient(ctx, cfg.Redis, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisRepository(client, cfg.Redis.Key), func() { client.Close() }, nil
	default:
		fileRepo := repository.NewFileRepository(cfg.Storage.FilePath)
		appLogger.Infow("Using file storage", "path", fileRepo.Path())
		return fileRepo, func() {}, nil
	}
}

func newMigrator() (*migrate.Migrate, *database.DB) {
	cfg, err := config.Load(ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+cfg.Database.MigrationsPath,
		"postgres",
		driver,
	)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	return m, db
}

func runMigration(direction string) {
	m, db := newMigrator()
	defer db.Close()

	var err error
	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Migration failed: %v", err)
	}

	if err == migrate.ErrNoChange {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	m, db := newMigrator()
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}
