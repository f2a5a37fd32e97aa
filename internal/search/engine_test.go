package search

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/cinesync/internal/embedding"
	"github.com/cinesync/cinesync/pkg/vectorstore"
)

// stubEmbedder returns a fixed vector or error without provider traffic.
type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) (*embedding.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.Result{Vector: s.vector, Dimensions: len(s.vector)}, nil
}

func testEngine(t *testing.T, embedder Embedder, store vectorstore.Store) *Engine {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	return NewEngine(embedder, store, 0.1, 10, 3, logger)
}

func TestSearchEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore(3)

	// An embedding placed so that it scores cosine similarity 0.62 against
	// the query vector [1,0,0].
	inception := vectorstore.Movie{
		ID:        "27205",
		Title:     "Inception",
		Genres:    []string{"action", "sci-fi"},
		Embedding: []float32{0.62, float32(math.Sqrt(1 - 0.62*0.62)), 0},
	}
	require.NoError(t, store.Upsert(ctx, []vectorstore.Movie{inception}))

	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	engine := testEngine(t, embedder, store)

	// No genre selection: the record appears.
	resp, err := engine.Search(ctx, Request{Query: "mind-bending sci-fi with a twist"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Inception", resp.Movies[0].Title)
	assert.InDelta(t, 0.62, resp.Movies[0].Similarity, 1e-6)

	// Non-matching genre selection: the record is filtered out.
	resp, err = engine.Search(ctx, Request{
		Query:          "mind-bending sci-fi with a twist",
		SelectedGenres: []string{"romance"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.Movies)
}

func TestSearchEmptyQuery(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	engine := testEngine(t, embedder, vectorstore.NewMemoryStore(3))

	for _, query := range []string{"", "   "} {
		_, err := engine.Search(context.Background(), Request{Query: query})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	}
	assert.Zero(t, embedder.calls, "provider must not be contacted for invalid queries")
}

func TestSearchEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("provider exploded")}
	engine := testEngine(t, embedder, vectorstore.NewMemoryStore(3))

	_, err := engine.Search(context.Background(), Request{Query: "some mood"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestSearchRateLimitKeepsItsKind(t *testing.T) {
	embedder := &stubEmbedder{err: embedding.ErrRateLimited}
	engine := testEngine(t, embedder, vectorstore.NewMemoryStore(3))

	_, err := engine.Search(context.Background(), Request{Query: "some mood"})
	assert.ErrorIs(t, err, embedding.ErrRateLimited)
	assert.NotErrorIs(t, err, ErrEmbeddingFailed)
}

func TestSearchByVectorDimensionGuard(t *testing.T) {
	engine := testEngine(t, &stubEmbedder{}, vectorstore.NewMemoryStore(3))

	_, err := engine.SearchByVector(context.Background(), []float32{1, 0}, nil)
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

// failingStore simulates a store/query failure.
type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, movies []vectorstore.Movie) error { return nil }
func (failingStore) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]vectorstore.SearchResult, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Count(ctx context.Context) (int, error) { return 0, nil }

func TestSearchStoreFailure(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	engine := testEngine(t, embedder, failingStore{})

	_, err := engine.Search(context.Background(), Request{Query: "some mood"})
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	engine := testEngine(t, embedder, vectorstore.NewMemoryStore(3))

	resp, err := engine.Search(context.Background(), Request{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	// Non-nil so the response marshals as an empty array rather than null.
	assert.NotNil(t, resp.Movies)
}
