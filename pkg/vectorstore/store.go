package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of unequal length are
// compared. Mixing embedding generations is never silently coerced.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Movie is a catalog record with its precomputed embedding.
type Movie struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Genres      []string  `json:"genres"`
	Description string    `json:"description"`
	PosterURL   string    `json:"poster_url"`
	ReleaseDate string    `json:"release_date,omitempty"`
	Popularity  float64   `json:"popularity,omitempty"`
	VoteAverage float64   `json:"vote_average,omitempty"`
	Embedding   []float32 `json:"-"`
}

// SearchResult is a catalog record with its similarity to a query vector.
// Transient, computed per query.
type SearchResult struct {
	Movie
	Similarity float64 `json:"similarity"`
}

// Store is the searchable movie catalog. Two realizations exist: an
// in-process linear scan and a Postgres/pgvector-backed store that delegates
// ranking to a server-side function. Both honor the same threshold, limit and
// ordering semantics.
type Store interface {
	// Upsert inserts or replaces records keyed by id.
	Upsert(ctx context.Context, movies []Movie) error

	// Search returns records with cosine similarity >= threshold against the
	// query vector, ordered by similarity descending, truncated to limit.
	Search(ctx context.Context, query []float32, threshold float64, limit int) ([]SearchResult, error)

	// Count reports the number of catalog records.
	Count(ctx context.Context) (int, error)
}

// CosineSimilarity computes dot(a,b) / (||a|| * ||b||). Vectors of unequal
// length fail with ErrDimensionMismatch; a zero vector scores zero.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
