package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore is the catalog-backed realization of Store. Ranking is
// delegated to the server-side search_movies_by_embedding function, which
// returns catalog rows plus a similarity column pre-sorted descending (ties
// broken by primary key).
type PostgresStore struct {
	db     *sqlx.DB
	dims   int
	logger *log.Logger
}

// NewPostgresStore opens a connection to the catalog database.
func NewPostgresStore(databaseURL string, dims int, logger *log.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	return &PostgresStore{db: db, dims: dims, logger: logger}, nil
}

// NewPostgresStoreWithDB wraps an existing connection (used by tests).
func NewPostgresStoreWithDB(db *sqlx.DB, dims int, logger *log.Logger) *PostgresStore {
	return &PostgresStore{db: db, dims: dims, logger: logger}
}

const upsertMovieSQL = `
	INSERT INTO movies (id, title, genres, overview, poster_url, release_date, popularity, vote_average, embedding)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		genres = EXCLUDED.genres,
		overview = EXCLUDED.overview,
		poster_url = EXCLUDED.poster_url,
		release_date = EXCLUDED.release_date,
		popularity = EXCLUDED.popularity,
		vote_average = EXCLUDED.vote_average,
		embedding = EXCLUDED.embedding`

// Upsert inserts or replaces records keyed by id inside one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, movies []Movie) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range movies {
		if len(m.Embedding) != s.dims {
			return fmt.Errorf("%w: movie %s has %d dimensions, catalog expects %d",
				ErrDimensionMismatch, m.ID, len(m.Embedding), s.dims)
		}

		_, err := tx.ExecContext(ctx, upsertMovieSQL,
			m.ID, m.Title, pq.Array(m.Genres), m.Description, m.PosterURL,
			m.ReleaseDate, m.Popularity, m.VoteAverage, pgvector.NewVector(m.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert movie %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

const searchMoviesSQL = `
	SELECT id, title, genres, overview, poster_url, release_date, popularity, vote_average, similarity
	FROM search_movies_by_embedding($1, $2, $3)`

// Search delegates nearest-neighbor ranking to the database.
func (s *PostgresStore) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]SearchResult, error) {
	if len(query) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, catalog expects %d",
			ErrDimensionMismatch, len(query), s.dims)
	}

	rows, err := s.db.QueryContext(ctx, searchMoviesSQL, pgvector.NewVector(query), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var releaseDate sql.NullString
		err := rows.Scan(
			&r.ID, &r.Title, pq.Array(&r.Genres), &r.Description, &r.PosterURL,
			&releaseDate, &r.Popularity, &r.VoteAverage, &r.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		r.ReleaseDate = releaseDate.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	return results, nil
}

// Count reports the number of catalog records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM movies"); err != nil {
		return 0, fmt.Errorf("failed to count catalog: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
