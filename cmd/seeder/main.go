// Command seeder populates the movie catalog with embeddings. It pages
// through TMDb's popular and top-rated lists, embeds each record and upserts
// the results into the catalog database. The run is idempotent: re-seeding
// the same pages replaces existing records in place.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cinesync/cinesync/internal/config"
	"github.com/cinesync/cinesync/internal/embedding"
	"github.com/cinesync/cinesync/internal/ingest"
	"github.com/cinesync/cinesync/internal/tmdb"
	"github.com/cinesync/cinesync/pkg/vectorstore"
)

func main() {
	logger := log.New(os.Stdout, "SEEDER: ", log.Ldate|log.Ltime)

	pages := flag.Int("pages", 0, "pages to fetch per list (overrides SEED_PAGES)")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.ValidateSeeder(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if *pages > 0 {
		cfg.SeedPages = *pages
	}

	embedClient, err := embedding.NewClient(cfg.GeminiAPIKey, logger,
		embedding.WithRateLimit(cfg.EmbedRateLimit, cfg.EmbedRateWindow))
	if err != nil {
		logger.Fatalf("Failed to create embedding client: %v", err)
	}

	store, err := vectorstore.NewPostgresStore(cfg.DatabaseURL, embedding.Dimensions, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to catalog store: %v", err)
	}
	defer func() { _ = store.Close() }()

	tmdbClient := tmdb.NewClient(cfg.TMDbAPIKey)

	pipeline := ingest.NewPipeline(tmdbClient, embedClient, store, cfg.SeedDelay, cfg.SeedPages, logger)

	// Ctrl-C stops the run between records.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("Seeding %d pages per list, %s between embedding calls", cfg.SeedPages, cfg.SeedDelay)

	report, err := pipeline.Run(ctx)
	logger.Printf("Seeding finished: inserted=%d skipped=%d failed=%d", report.Inserted, report.Skipped, report.Failed)
	for _, f := range report.Failures {
		logger.Printf("  failed: %s (%s): %s", f.Title, f.ID, f.Reason)
	}
	if err != nil {
		logger.Fatalf("Seeding run failed: %v", err)
	}
}
