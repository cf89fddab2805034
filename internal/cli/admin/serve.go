package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citeline/citeline/internal/api/handlers"
	"github.com/citeline/citeline/internal/config"
	"github.com/citeline/citeline/internal/database"
	"github.com/citeline/citeline/internal/docsource"
	"github.com/citeline/citeline/internal/jobs"
	"github.com/citeline/citeline/internal/openai"
	"github.com/citeline/citeline/internal/repository"
	"github.com/citeline/citeline/internal/server"
	"github.com/citeline/citeline/internal/service"
	"github.com/citeline/citeline/internal/storage"
	"github.com/citeline/citeline/internal/telemetry"
	"github.com/citeline/citeline/internal/vertex"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the citeline API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

// provider bundles the two model-facing clients. A single provider serves
// both roles so ingestion-time and query-time embeddings always come from
// the same vector space.
type provider interface {
	service.EmbeddingClient
	service.GenerationClient
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	store, closeStore, err := buildStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	modelProvider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	chunker := service.NewSentenceChunker()
	pipeline := service.NewIngestPipeline(chunker, modelProvider, store, service.IngestConfig{
		Concurrency:  cfg.IngestConcurrency,
		EmbedTimeout: cfg.EmbedTimeout,
		Dimensions:   cfg.EmbeddingDimensions,
	})

	sessions := service.NewSessionManager()
	chatSvc := service.NewChatService(modelProvider, modelProvider, store, service.ChatConfig{
		EmbedTimeout:    cfg.EmbedTimeout,
		SearchTimeout:   cfg.SearchTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
		RetrievalLimit:  cfg.RetrievalLimit,
	})

	source, err := buildDocumentSource(ctx, cfg)
	if err != nil {
		return err
	}

	var watcher *jobs.Worker
	if cfg.IngestWatch {
		watcher = jobs.NewWorker(jobs.NewIngestWatcher(source, pipeline), cfg.WatchInterval)
		go watcher.Start(ctx)
		log.Println("ingest watcher started")
	}

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:      handlers.NewChatHandler(chatSvc, sessions),
		EmbeddingHandler: handlers.NewEmbeddingHandler(modelProvider),
		IngestHandler:    handlers.NewIngestHandler(source, pipeline),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if watcher != nil {
		watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildStore picks the chunk store: Postgres with pgvector when DATABASE_URL
// is set, an in-memory store otherwise.
func buildStore(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (service.ChunkStore, func(), error) {
	if !cfg.HasDatabase() {
		log.Println("no DATABASE_URL set, using in-memory chunk store")
		return repository.NewMemoryChunkStore(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return repository.NewChunkRepository(pool), pool.Close, nil
}

// buildProvider wires the configured embedding and generation backend.
func buildProvider(cfg *config.Config) (provider, error) {
	switch cfg.Provider {
	case "openai":
		if !cfg.HasOpenAI() {
			return nil, fmt.Errorf("provider openai selected but OPENAI_API_KEY not set")
		}
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			Sampling: openai.Sampling{
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxOutputTokens,
				TopP:        cfg.TopP,
			},
		}), nil
	case "vertex":
		if !cfg.HasVertex() {
			return nil, fmt.Errorf("provider vertex selected but GOOGLE_PROJECT or GOOGLE_ACCESS_TOKEN not set")
		}
		return vertex.NewClient(vertex.Config{
			Endpoint:       cfg.GoogleAPIEndpoint,
			Project:        cfg.GoogleProject,
			Location:       cfg.GoogleLocation,
			Publisher:      cfg.GooglePublisher,
			EmbeddingModel: cfg.EmbeddingModel,
			ChatModel:      cfg.ChatModel,
			AccessToken:    cfg.GoogleAccessToken,
			Sampling: vertex.SamplingParams{
				Temperature:     cfg.Temperature,
				MaxOutputTokens: cfg.MaxOutputTokens,
				TopP:            cfg.TopP,
				TopK:            cfg.TopK,
			},
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (expected vertex or openai)", cfg.Provider)
	}
}

// buildDocumentSource prefers the S3 bucket when configured, falling back to
// the local documents directory.
func buildDocumentSource(ctx context.Context, cfg *config.Config) (docsource.Source, error) {
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		return docsource.NewS3Source(s3Client, cfg.S3Prefix), nil
	}

	log.Printf("using local document source: %s", cfg.DocsDir)
	return docsource.NewFSSource(cfg.DocsDir), nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
