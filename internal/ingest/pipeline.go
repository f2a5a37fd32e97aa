package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cinesync/cinesync/internal/embedding"
	"github.com/cinesync/cinesync/internal/tmdb"
	"github.com/cinesync/cinesync/pkg/vectorstore"
)

// ErrNoRecordsIngested is returned when a non-empty run produced zero
// successful upserts. That pattern points at a systemic failure (bad
// credentials, provider outage) rather than per-item issues.
var ErrNoRecordsIngested = errors.New("ingestion produced zero successful records")

// Source pages through an external movie catalog.
type Source interface {
	PopularMovies(ctx context.Context, page int) ([]tmdb.SourceMovie, error)
	TopRatedMovies(ctx context.Context, page int) ([]tmdb.SourceMovie, error)
}

// Embedder generates embeddings for catalog records.
type Embedder interface {
	Embed(ctx context.Context, text string) (*embedding.Result, error)
}

// RecordFailure identifies one record that could not be ingested.
type RecordFailure struct {
	ID     string
	Title  string
	Reason string
}

// Report summarizes an ingestion run.
type Report struct {
	Inserted int
	Skipped  int
	Failed   int
	Failures []RecordFailure
}

// Pipeline seeds the movie catalog: it pages through TMDb lists, embeds each
// record and upserts the results. Records are processed sequentially,
// deliberately trading throughput for staying under the provider rate limit.
// One bad record never aborts the batch.
type Pipeline struct {
	source   Source
	embedder Embedder
	store    vectorstore.Store
	pacer    *rate.Limiter
	pages    int
	logger   *log.Logger
}

// NewPipeline creates an ingestion pipeline that fetches the given number of
// pages per list and waits delay between embedding calls.
func NewPipeline(source Source, embedder Embedder, store vectorstore.Store, delay time.Duration, pages int, logger *log.Logger) *Pipeline {
	return &Pipeline{
		source:   source,
		embedder: embedder,
		store:    store,
		pacer:    rate.NewLimiter(rate.Every(delay), 1),
		pages:    pages,
		logger:   logger,
	}
}

// EmbedText builds the text representation a record is embedded from. Title
// and genre list are included alongside the overview to anchor the vector to
// categorical signal, which improves retrieval accuracy over embedding the
// raw overview alone.
func EmbedText(m tmdb.SourceMovie) string {
	genres := "None"
	if len(m.Genres) > 0 {
		genres = strings.Join(m.Genres, ", ")
	}
	return fmt.Sprintf("%s. Genres: %s. Overview: %s", m.Title, genres, m.Description)
}

// Run executes the batch. It returns a report alongside any terminal error;
// the report is valid even when the run was cancelled mid-batch.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	attempted := 0

	lists := []struct {
		name  string
		fetch func(context.Context, int) ([]tmdb.SourceMovie, error)
	}{
		{"popular", p.source.PopularMovies},
		{"top_rated", p.source.TopRatedMovies},
	}

	for _, list := range lists {
		for page := 1; page <= p.pages; page++ {
			movies, err := list.fetch(ctx, page)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				p.logger.Printf("failed to fetch %s page %d: %v", list.name, page, err)
				continue
			}
			p.logger.Printf("fetched %s page %d: %d movies", list.name, page, len(movies))

			var batch []vectorstore.Movie
			for _, movie := range movies {
				// Cooperative cancellation, checked between records.
				if err := ctx.Err(); err != nil {
					return report, err
				}

				if strings.TrimSpace(movie.Description) == "" {
					p.logger.Printf("skipping %q (%s): empty description", movie.Title, movie.ID)
					report.Skipped++
					continue
				}

				// Inter-call pacing keeps a long-lived batch under the
				// provider quota, on top of the client's own limiter.
				if err := p.pacer.Wait(ctx); err != nil {
					return report, err
				}

				attempted++
				result, err := p.embedder.Embed(ctx, EmbedText(movie))
				if err != nil {
					p.logger.Printf("failed to embed %q (%s): %v", movie.Title, movie.ID, err)
					report.Failed++
					report.Failures = append(report.Failures, RecordFailure{
						ID:     movie.ID,
						Title:  movie.Title,
						Reason: err.Error(),
					})
					continue
				}

				batch = append(batch, vectorstore.Movie{
					ID:          movie.ID,
					Title:       movie.Title,
					Genres:      movie.Genres,
					Description: movie.Description,
					PosterURL:   movie.PosterURL,
					ReleaseDate: movie.ReleaseDate,
					Popularity:  movie.Popularity,
					VoteAverage: movie.VoteAverage,
					Embedding:   result.Vector,
				})
			}

			if len(batch) == 0 {
				continue
			}

			if err := p.store.Upsert(ctx, batch); err != nil {
				p.logger.Printf("failed to upsert %s page %d: %v", list.name, page, err)
				report.Failed += len(batch)
				for _, m := range batch {
					report.Failures = append(report.Failures, RecordFailure{
						ID:     m.ID,
						Title:  m.Title,
						Reason: err.Error(),
					})
				}
				continue
			}
			report.Inserted += len(batch)
		}
	}

	if attempted > 0 && report.Inserted == 0 {
		return report, ErrNoRecordsIngested
	}

	return report, nil
}
