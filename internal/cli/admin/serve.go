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

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/whyvarun/support-IQ/internal/api/handlers"
	"github.com/whyvarun/support-IQ/internal/config"
	"github.com/whyvarun/support-IQ/internal/database"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/jobs"
	"github.com/whyvarun/support-IQ/internal/oracle"
	"github.com/whyvarun/support-IQ/internal/repository"
	"github.com/whyvarun/support-IQ/internal/server"
	"github.com/whyvarun/support-IQ/internal/service"
	"github.com/whyvarun/support-IQ/internal/storage"
	"github.com/whyvarun/support-IQ/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the SupportIQ API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-workers", false, "Skip starting the background workers")

	return cmd
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

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	promotionRepo := repository.NewPromotionRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var embeddingOracle service.EmbeddingOracle
	var sentimentOracle service.SentimentOracle
	if cfg.HasOpenAI() {
		embeddingOracle = oracle.NewEmbeddingClientWithConfig(oracle.EmbeddingConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
		sentimentOracle = oracle.NewSentimentClientWithConfig(oracle.SentimentConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.SentimentModel,
		})
	} else {
		log.Println("OPENAI_API_KEY not set: sentiment defaults to neutral, search is keyword-only")
		embeddingOracle = &fallbackEmbeddingOracle{dimensions: cfg.EmbeddingDimensions}
		sentimentOracle = &fallbackSentimentOracle{}
	}

	var storageClient service.StorageClientInterface
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = &S3StorageAdapter{client: s3Client}
	}

	urgencyCalc := service.NewUrgencyCalculator(sentimentOracle, cfg.CriticalKeywordList(), cfg.HighUrgencyKeywordList())
	searchSvc := service.NewSearchService(knowledgeRepo, embeddingOracle, service.SearchConfig{
		SemanticWeight: cfg.SemanticWeight,
		KeywordWeight:  cfg.KeywordWeight,
		TopK:           cfg.TopKResults,
	})
	knowledgeSvc := service.NewKnowledgeService(knowledgeRepo, embeddingOracle, txRunner)
	promotionSvc := service.NewPromotionService(knowledgeRepo, promotionRepo, txRunner, service.PromotionConfig{
		L3ToL2Threshold:  cfg.L3ToL2Threshold,
		L2ToL1Threshold:  cfg.L2ToL1Threshold,
		MinFeedbackScore: cfg.MinFeedbackScore,
	})
	ticketSvc := service.NewTicketService(ticketRepo, urgencyCalc, searchSvc, knowledgeSvc, promotionSvc, embeddingOracle, txRunner)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo)

	var attachmentHandler *handlers.AttachmentHandler
	if storageClient != nil {
		attachmentHandler = handlers.NewAttachmentHandler(service.NewAttachmentService(attachmentRepo, ticketRepo, storageClient))
	} else {
		attachmentHandler = handlers.NewAttachmentHandler(&NoOpAttachmentService{})
	}

	router := server.NewRouter(server.RouterConfig{
		TicketHandler:     handlers.NewTicketHandler(ticketSvc, urgencyCalc),
		SearchHandler:     handlers.NewSearchHandler(searchSvc),
		KnowledgeHandler:  handlers.NewKnowledgeHandler(knowledgeSvc),
		PromotionHandler:  handlers.NewPromotionHandler(promotionSvc),
		AnalyticsHandler:  handlers.NewAnalyticsHandler(analyticsSvc),
		AttachmentHandler: attachmentHandler,
	})

	var workers []*jobs.Worker
	noWorkers, _ := cmd.Flags().GetBool("no-workers")
	if !noWorkers {
		backfillWorker := jobs.NewWorker("backfill", jobs.NewBackfillWorker(knowledgeSvc, 50), 30*time.Second)
		promotionWorker := jobs.NewWorker("promotion", jobs.NewPromotionWorker(promotionSvc), 5*time.Minute)
		workers = append(workers, backfillWorker, promotionWorker)
		for _, w := range workers {
			go w.Start(ctx)
		}
		log.Println("background workers started")
	}

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

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type S3StorageAdapter struct {
	client *storage.S3Client
}

func (a *S3StorageAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *S3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *S3StorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

func (a *S3StorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
	meta, err := a.client.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &service.ObjectMetadata{
		ContentLength: meta.ContentLength,
		ContentType:   meta.ContentType,
		ETag:          meta.ETag,
	}, nil
}

type NoOpAttachmentService struct{}

func (s *NoOpAttachmentService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	return nil, fmt.Errorf("attachment service not configured: S3_ENDPOINT required")
}

func (s *NoOpAttachmentService) CompleteUpload(ctx context.Context, input service.CompleteUploadInput) (*domain.Attachment, error) {
	return nil, fmt.Errorf("attachment service not configured: S3_ENDPOINT required")
}

func (s *NoOpAttachmentService) GetDownloadURL(ctx context.Context, attachmentID string) (string, error) {
	return "", fmt.Errorf("attachment service not configured: S3_ENDPOINT required")
}

func (s *NoOpAttachmentService) ListByTicket(ctx context.Context, ticketID string) ([]*domain.Attachment, error) {
	return nil, fmt.Errorf("attachment service not configured: S3_ENDPOINT required")
}

func (s *NoOpAttachmentService) Delete(ctx context.Context, attachmentID string) error {
	return fmt.Errorf("attachment service not configured: S3_ENDPOINT required")
}

// fallbackEmbeddingOracle yields the zero vector, so hybrid search ranks
// on keyword relevance alone.
type fallbackEmbeddingOracle struct {
	dimensions int
}

func (o *fallbackEmbeddingOracle) Encode(ctx context.Context, text string) ([]float32, error) {
	dims := o.dimensions
	if dims <= 0 {
		dims = oracle.DefaultEmbeddingDimensions
	}
	return make([]float32, dims), nil
}

// fallbackSentimentOracle classifies everything as neutral, leaving the
// keyword and category factors to drive urgency.
type fallbackSentimentOracle struct{}

func (o *fallbackSentimentOracle) Analyze(ctx context.Context, text string) (*oracle.SentimentResult, error) {
	return &oracle.SentimentResult{Label: oracle.SentimentNeutral, Score: 0, Confidence: 0}, nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
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
