package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"docingest/config"
	"docingest/internal/adapters/secondary/extractor"
	"docingest/internal/adapters/secondary/llm"
	"docingest/internal/adapters/secondary/memory"
	"docingest/internal/adapters/secondary/redisrepo"
	"docingest/internal/chunking"
	"docingest/internal/ingest"
	"docingest/internal/lifecycle"
	"docingest/internal/metadata"
	"docingest/internal/syncmeta"
	"docingest/pkg/logger"
	"docingest/pkg/metrics"
	"docingest/queue"
	"docingest/worker"
)

var (
	version      = "1.0.0"
	overridePath string

	rootCmd = &cobra.Command{
		Use:   "docingest-worker",
		Short: "Background document ingestion worker",
		Long:  `docingest-worker pulls uploaded documents off the queue, chunks them per format, and indexes each chunk for retrieval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
)

func main() {
	rootCmd.Flags().StringVar(&overridePath, "overrides", "", "path to a JSON config override file (hot-reloaded)")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	manager := config.NewManager()
	if overridePath != "" {
		if err := manager.LoadOverrides(overridePath); err != nil {
			return err
		}
		if err := manager.StartWatching(); err != nil {
			return err
		}
		defer manager.StopWatching()
	}

	cfg := manager.GetConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		Filename:   cfg.Logging.Filename,
		TimeFormat: cfg.Logging.TimeFormat,
	}); err != nil {
		return err
	}
	log := logger.Get()
	log.Info().Str("version", version).Msg("Starting docingest worker")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
		go serveMetrics(cfg, log)
	}

	jobQueue, err := queue.NewRedisQueue(&cfg.Redis, &cfg.Worker)
	if err != nil {
		return err
	}
	defer jobQueue.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	repo := redisrepo.NewDocumentRepository(redisClient)
	ingestLog := redisrepo.NewIngestLog(redisClient, log)

	// The search index and object store run in-process until external
	// services are wired in deployment.
	index := memory.NewSearchIndex()
	store := memory.NewObjectStore()
	log.Warn().Msg("Search index and object store are in-process; indexed chunks and stored objects are lost on restart while document records persist in redis")

	embedder, err := llm.NewEmbedder(&cfg.AI)
	if err != nil {
		return err
	}

	syncer := syncmeta.New(index, log, m)
	lc := lifecycle.NewManager(repo, syncer, ingestLog, log)

	var enricher ingest.Enricher
	if cfg.Metadata.Enabled {
		// No content safety service is wired in this binary yet; refuse to
		// start rather than run the metadata pass ungated.
		if cfg.Metadata.SafetyEnabled {
			return fmt.Errorf("metadata content safety is enabled but no safety service is configured; unset METADATA_SAFETY_ENABLED or wire an analyzer")
		}
		chat, err := llm.NewChatModel(&cfg.AI)
		if err != nil {
			return err
		}
		enricher = metadata.NewExtractor(lc, index, chat, nil, cfg.Metadata, log, m)
	}

	di := extractor.NewHTTPExtractor(cfg.Ingest.DIEndpoint, cfg.Ingest.DITimeout)
	dispatcher := chunking.NewDispatcher(&cfg.Ingest, di, log)
	runner := ingest.NewRunner(dispatcher, lc, ingest.NewWriter(embedder, index, m), store, enricher, cfg.Ingest.TempDir, log, m)

	w := worker.NewWorker(jobQueue, runner, &cfg.Worker, log, m)
	w.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")
	w.Stop()
	return nil
}

func serveMetrics(cfg *config.Config, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	addr := ":" + cfg.Metrics.Port
	log.Info().Str("addr", addr).Str("path", cfg.Metrics.Path).Msg("Metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics listener stopped")
	}
}
