package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cinesync/cinesync/internal/embedding"
	"github.com/cinesync/cinesync/pkg/vectorstore"
)

var (
	// ErrInvalidQuery means the caller supplied an empty search query.
	ErrInvalidQuery = errors.New("search query must be a non-empty string")

	// ErrEmbeddingFailed means the query could not be embedded. Retry already
	// happened inside the embedding client; this layer does not retry.
	ErrEmbeddingFailed = errors.New("failed to embed search query")

	// ErrSearchFailed means the catalog store query failed.
	ErrSearchFailed = errors.New("failed to search catalog")
)

// Embedder generates a vector embedding for query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (*embedding.Result, error)
}

// Request is one search invocation.
type Request struct {
	Query          string
	SelectedGenres []string
}

// Response is the ranked, genre-filtered result list.
type Response struct {
	Movies []vectorstore.SearchResult `json:"movies"`
	Count  int                        `json:"count"`
}

// Engine composes embedding, similarity search and genre filtering into the
// end-to-end "mood text in, ranked movies out" operation.
type Engine struct {
	embedder  Embedder
	store     vectorstore.Store
	threshold float64
	limit     int
	dims      int
	logger    *log.Logger
}

// NewEngine creates a new search engine
func NewEngine(embedder Embedder, store vectorstore.Store, threshold float64, limit int, dims int, logger *log.Logger) *Engine {
	return &Engine{
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		limit:     limit,
		dims:      dims,
		logger:    logger,
	}
}

// Search embeds the query text and returns the ranked, filtered movie list.
// An empty result list is a valid, non-error outcome.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	result, err := e.embedder.Embed(ctx, query)
	if err != nil {
		// Rate-limit and validation failures keep their kind so the API layer
		// can map them to 429/400; everything else is a provider failure.
		if errors.Is(err, embedding.ErrRateLimited) || errors.Is(err, embedding.ErrInvalidInput) {
			return nil, err
		}
		e.logger.Printf("query embedding failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	return e.SearchByVector(ctx, result.Vector, req.SelectedGenres)
}

// SearchByVector runs similarity search for a caller-supplied embedding,
// skipping the provider. Used when the caller already obtained a vector.
func (e *Engine) SearchByVector(ctx context.Context, vector []float32, selectedGenres []string) (*Response, error) {
	if len(vector) != e.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, catalog expects %d",
			vectorstore.ErrDimensionMismatch, len(vector), e.dims)
	}

	results, err := e.store.Search(ctx, vector, e.threshold, e.limit)
	if err != nil {
		e.logger.Printf("catalog search failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	filtered := FilterByGenres(results, selectedGenres)
	if filtered == nil {
		// Keep the wire shape stable: no matches is an empty array, not null.
		filtered = []vectorstore.SearchResult{}
	}

	return &Response{Movies: filtered, Count: len(filtered)}, nil
}
