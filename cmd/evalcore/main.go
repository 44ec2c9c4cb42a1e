// evalcore runs the Benchmark Evaluation Core: it loads the Spider 1.0
// question set, wires MetadataStore/QueryExecutor/GenerationPipeline, and
// serves ControlAPI over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/spiderbench/evalcore/pkg/api"
	"github.com/spiderbench/evalcore/pkg/config"
	"github.com/spiderbench/evalcore/pkg/database"
	"github.com/spiderbench/evalcore/pkg/embedding"
	"github.com/spiderbench/evalcore/pkg/executor"
	"github.com/spiderbench/evalcore/pkg/generation"
	"github.com/spiderbench/evalcore/pkg/judge"
	"github.com/spiderbench/evalcore/pkg/llm"
	"github.com/spiderbench/evalcore/pkg/runner"
	"github.com/spiderbench/evalcore/pkg/schemaext"
	"github.com/spiderbench/evalcore/pkg/semantic"
	"github.com/spiderbench/evalcore/pkg/spider"
	"github.com/spiderbench/evalcore/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	log.Printf("Starting evalcore")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	apiKey := os.Getenv(cfg.Defaults.APIKeyEnv)
	if apiKey == "" {
		log.Fatalf("%s must be set", cfg.Defaults.APIKeyEnv)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to metadata database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing metadata database client: %v", err)
		}
	}()
	log.Println("Connected to metadata store")

	metaDSN := getEnv("DATABASE_URL", buildDSN(dbConfig))
	metaPool, err := pgxpool.New(ctx, metaDSN)
	if err != nil {
		log.Fatalf("Failed to open metadata pgx pool: %v", err)
	}
	defer metaPool.Close()

	benchmarkExecutor, err := executor.New(ctx, executor.Config{
		DSN:              getEnv("BENCHMARK_DB_DSN", metaDSN),
		MinConns:         int32(cfg.Defaults.ExecutorPoolMin),
		MaxConns:         int32(cfg.Defaults.ExecutorPoolMax),
		StatementTimeout: cfg.Defaults.StatementTimeout,
		RowCap:           cfg.Defaults.RowCap,
	})
	if err != nil {
		log.Fatalf("Failed to connect query executor: %v", err)
	}
	defer benchmarkExecutor.Close()

	metaStore := store.New(dbClient.DB(), cfg.Defaults.MetadataStoreTimeout)
	schemaExtractor := schemaext.New(dbClient.DB())

	embeddingProvider, err := cfg.GetProvider(cfg.Embedding.Provider)
	if err != nil {
		log.Fatalf("Failed to resolve embedding provider %q: %v", cfg.Embedding.Provider, err)
	}
	vectorIndex := embedding.New(metaPool, cfg.Embedding, embeddingProvider, cfg.Defaults.EmbeddingTimeout)
	retriever := semantic.New(vectorIndex, cfg.Defaults.TopK)

	llmRouter := llm.NewRouter(cfg)
	pipeline := generation.New(schemaExtractor, retriever, llmRouter, cfg.Defaults.TopK)

	execAdapter := &judge.ExecutorAdapter{Exec: benchmarkExecutor}

	spiderPath := getEnv("SPIDER_DEV_PATH", filepath.Join(*configDir, "spider", "dev.json"))
	questions, err := spider.Load(spiderPath)
	if err != nil {
		log.Fatalf("Failed to load Spider question set from %s: %v", spiderPath, err)
	}
	log.Printf("Loaded %d Spider questions from %s", len(questions), spiderPath)

	pool := runner.NewPool(metaStore)

	server := api.NewServer(cfg, dbClient, metaStore, pool, pipeline, execAdapter, questions, apiKey)
	if err := server.ValidateWiring(); err != nil {
		log.Fatalf("Server wiring incomplete: %v", err)
	}

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := server.Start(":" + httpPort); err != nil {
			log.Printf("HTTP server stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

func buildDSN(cfg database.Config) string {
	return "host=" + cfg.Host +
		" port=" + itoa(cfg.Port) +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.Database +
		" sslmode=" + cfg.SSLMode
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
