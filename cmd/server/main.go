package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/cinesync/cinesync/internal/api"
	"github.com/cinesync/cinesync/internal/auth"
	"github.com/cinesync/cinesync/internal/config"
	"github.com/cinesync/cinesync/internal/embedding"
	"github.com/cinesync/cinesync/internal/ingest"
	"github.com/cinesync/cinesync/internal/search"
	"github.com/cinesync/cinesync/internal/tmdb"
	"github.com/cinesync/cinesync/pkg/vectorstore"
)

func main() {
	issueToken := flag.String("issue-admin-token", "",
		"print an admin API token for the named operator and exit")
	flag.Parse()

	// Initialize logger
	logger := log.New(os.Stdout, "CINESYNC: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	cfg := config.Load()

	// Token issuance needs only the signing secret, not the full server config.
	if *issueToken != "" {
		if cfg.AdminJWTSecret == "" {
			logger.Fatalf("Invalid configuration: ADMIN_JWT_SECRET is not set")
		}
		token, err := auth.NewJWTManager(cfg.AdminJWTSecret, 24*time.Hour).
			GenerateToken(*issueToken, auth.RoleAdmin)
		if err != nil {
			logger.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize embedding client
	embedClient, err := embedding.NewClient(cfg.GeminiAPIKey, logger,
		embedding.WithRateLimit(cfg.EmbedRateLimit, cfg.EmbedRateWindow))
	if err != nil {
		logger.Fatalf("Failed to create embedding client: %v", err)
	}

	// Initialize catalog store. Postgres when configured, in-memory otherwise.
	var store vectorstore.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := vectorstore.NewPostgresStore(cfg.DatabaseURL, embedding.Dimensions, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to catalog store: %v", err)
		}
		defer func() { _ = pgStore.Close() }()
		store = pgStore
		logger.Printf("Using Postgres catalog store")
	} else {
		store = vectorstore.NewMemoryStore(embedding.Dimensions)
		logger.Printf("WARNING: DATABASE_URL not set, using in-memory catalog store")
	}

	// Initialize TMDb client
	tmdbClient := tmdb.NewClient(cfg.TMDbAPIKey)

	// Initialize search engine
	engine := search.NewEngine(embedClient, store, cfg.SearchThreshold, cfg.SearchLimit, embedding.Dimensions, logger)

	// Initialize ingestion pipeline for the admin endpoint
	pipeline := ingest.NewPipeline(tmdbClient, embedClient, store, cfg.SeedDelay, cfg.SeedPages, logger)

	// Initialize operator auth
	if cfg.AdminJWTSecret == "" {
		logger.Printf("WARNING: ADMIN_JWT_SECRET not set, admin endpoints will reject all tokens")
	}
	jwtManager := auth.NewJWTManager(cfg.AdminJWTSecret, 24*time.Hour)

	// Initialize handler and router
	handler := api.NewHandler(engine, embedClient, tmdbClient, store, pipeline, logger)
	router := api.NewRouter(handler, jwtManager, logger)

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Printf("Server starting on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}
}
