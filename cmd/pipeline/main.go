// Command pipeline runs the shipment materialization pipeline's batch
// driver: a ticker-driven polling loop that pulls emails needing
// processing and sequences them through the bounded orchestrator worker
// pool.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	_ "github.com/lib/pq"

	"github.com/intoglo/shipment-pipeline/internal/analytics"
	"github.com/intoglo/shipment-pipeline/internal/config"
	"github.com/intoglo/shipment-pipeline/internal/embedding"
	"github.com/intoglo/shipment-pipeline/internal/llm"
	"github.com/intoglo/shipment-pipeline/internal/pkg/distlock"
	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
	"github.com/intoglo/shipment-pipeline/internal/repository/postgres"
	"github.com/intoglo/shipment-pipeline/internal/service/classification"
	"github.com/intoglo/shipment-pipeline/internal/service/extraction"
	"github.com/intoglo/shipment-pipeline/internal/service/flagging"
	"github.com/intoglo/shipment-pipeline/internal/service/insight"
	"github.com/intoglo/shipment-pipeline/internal/service/linking"
	"github.com/intoglo/shipment-pipeline/internal/service/orchestrator"
	"github.com/intoglo/shipment-pipeline/internal/service/workflow"
	"github.com/intoglo/shipment-pipeline/internal/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to pipeline config file")
	pollInterval := flag.Duration("poll-interval", 30*time.Second, "how often to pull pending emails")
	batchSize := flag.Int("batch-size", 200, "max emails pulled per poll")
	flag.Parse()

	logger.Info("starting shipment pipeline worker")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifeMins) * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("failed to ping database", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, falling back to postgres advisory locks", "error", err.Error())
			redisClient = nil
		}
	}
	lockFactory := func(key string) distlock.DistLock {
		return distlock.NewLock(redisClient, db, key, 30*time.Second)
	}

	svc := wireServices(cfg, db, redisClient, lockFactory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pollLoop(ctx, svc, *pollInterval, *batchSize)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down shipment pipeline worker")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("shipment pipeline worker stopped")
}

// wireServices assembles the six stage services and the orchestrator that
// sequences them, wiring every optional capability behind its configuration
// (Bedrock LLM/embedding and Snowflake analytics behind their Enabled flags,
// S3 blob storage behind a non-empty bucket name) so a bare Postgres
// deployment still runs the deterministic stages.
func wireServices(cfg *config.Config, db *sql.DB, redisClient *redis.Client, lockFactory func(string) distlock.DistLock) *orchestrator.Service {
	var llmClassifier llm.Classifier = llm.NoopCapability{}
	var llmAnalyzer llm.Analyzer = llm.NoopCapability{}
	var embedder embedding.Embedder = embedding.NoopEmbedder{}
	var historicalCollector *analytics.Collector
	var contentSource flagging.ContentSource

	if cfg.Bedrock.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Bedrock.Region))
		if err != nil {
			logger.Warn("bedrock enabled but aws config failed to load, disabling AI capabilities", "error", err.Error())
		} else {
			llmClassifier = llm.NewBedrockCapability(awsCfg, cfg.Bedrock.ClassifierModel, cfg.Bedrock.Timeout())
			llmAnalyzer = llm.NewBedrockCapability(awsCfg, cfg.Bedrock.ClassifierModel, cfg.Bedrock.Timeout())
			embedder = embedding.NewBedrockEmbedder(awsCfg, cfg.Bedrock.EmbeddingModel, cfg.Bedrock.Timeout())
		}
	}
	if cfg.Storage.Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(valueOr(cfg.Storage.Region, "us-east-1")))
		if err != nil {
			logger.Warn("blob storage configured but aws config failed to load", "error", err.Error())
		} else {
			bs, err := storage.NewBlobStorage(awsCfg, storage.Config{Bucket: cfg.Storage.Bucket})
			if err != nil {
				logger.Warn("failed to initialize blob storage", "error", err.Error())
			} else {
				contentSource = bs
			}
		}
	}

	if cfg.Snowflake.Enabled {
		client, err := analytics.NewClient(analytics.Config{
			Account: cfg.Snowflake.Account, User: cfg.Snowflake.User, Password: cfg.Snowflake.Password,
			Database: cfg.Snowflake.Database, Schema: cfg.Snowflake.Schema, Warehouse: cfg.Snowflake.Warehouse,
		})
		if err != nil {
			logger.Warn("failed to initialize snowflake analytics client", "error", err.Error())
		} else {
			historicalCollector = analytics.NewCollector(client, 15*time.Minute)
			go historicalCollector.Start(context.Background())
		}
	}

	flaggingSvc := flagging.NewService(postgres.NewFlaggingRepo(db), contentSource, cfg.Own.Domains, cfg.Batch)

	carrierDomains := postgres.NewCachedCarrierDomainSource(db, cfg.Cache.TTL())
	classificationSvc := classification.NewService(postgres.NewClassificationRepo(db), carrierDomains, cfg.Own.Domains, llmClassifier)

	extractionSvc := extraction.NewService(postgres.NewExtractionRepo(db))

	linkingSvc := linking.NewService(postgres.NewLinkingRepo(db), lockFactory)

	workflowSvc := workflow.NewService(postgres.NewWorkflowRepo(db), postgres.NewWorkflowConfigRepo(db), lockFactory)

	insightSvc := insight.NewService(
		postgres.NewContextGatherer(db, historicalCollector),
		postgres.NewInsightRepo(db),
		insight.DefaultRules(),
		llmAnalyzer,
	)

	return orchestrator.NewService(
		postgres.NewOrchestratorRepo(db),
		flaggingSvc, classificationSvc, extractionSvc, linkingSvc, workflowSvc, insightSvc,
		cfg.Forwarder.CompanyName, cfg.Batch,
		postgres.NewActionRepo(db), embedder,
	)
}

// pollLoop periodically pulls emails needing processing and runs them
// through the orchestrator's bounded worker pool.
func pollLoop(ctx context.Context, svc *orchestrator.Service, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, svc, batchSize)
		}
	}
}

func runOnce(ctx context.Context, svc *orchestrator.Service, batchSize int) {
	ids, err := svc.GetEmailsNeedingProcessing(ctx, batchSize)
	if err != nil {
		logger.Error("failed to list emails needing processing", "error", err.Error())
		return
	}
	if len(ids) == 0 {
		return
	}

	logger.Info("processing email batch", "count", len(ids))
	results := svc.ProcessBatch(ctx, ids, func(r orchestrator.ProcessingResult) {
		if !r.Success {
			logger.Warn("email processing failed", "email_id", r.EmailID, "stage", string(r.Stage), "error", r.Error)
		}
	})

	var succeeded int
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	logger.Info("email batch processed", "succeeded", succeeded, "total", len(results))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
