package vectorstore

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore holds the full catalog in memory and computes similarity with a
// linear scan. Suitable for small catalogs, local development and tests; the
// production path uses PostgresStore.
type MemoryStore struct {
	lock   sync.RWMutex
	items  map[string]Movie
	order  []string // insertion order, used as the ranking tie-break
	dims   int
	closed bool
}

// NewMemoryStore creates an in-memory store whose records must all carry
// embeddings of the given dimensionality.
func NewMemoryStore(dims int) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Movie),
		dims:  dims,
	}
}

// Upsert inserts or replaces records keyed by id. Re-ingesting an existing id
// replaces metadata and embedding in place and keeps its original insertion
// position.
func (s *MemoryStore) Upsert(ctx context.Context, movies []Movie) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return errors.New("store is closed")
	}

	for _, m := range movies {
		if len(m.Embedding) != s.dims {
			return ErrDimensionMismatch
		}
		if _, exists := s.items[m.ID]; !exists {
			s.order = append(s.order, m.ID)
		}
		s.items[m.ID] = m
	}

	return nil
}

// scoredMovie pairs a record with its similarity and insertion rank.
type scoredMovie struct {
	movie Movie
	score float64
	rank  int
}

// Search performs the linear cosine-similarity scan.
func (s *MemoryStore) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]SearchResult, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return nil, errors.New("store is closed")
	}

	var scored []scoredMovie
	for rank, id := range s.order {
		item := s.items[id]
		score, err := CosineSimilarity(query, item.Embedding)
		if err != nil {
			return nil, err
		}
		if score < threshold {
			continue
		}
		scored = append(scored, scoredMovie{movie: item, score: score, rank: rank})
	}

	// Descending by score; ties broken by insertion order for determinism.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].rank < scored[j].rank
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]SearchResult, len(scored))
	for i, sc := range scored {
		results[i] = SearchResult{Movie: sc.movie, Similarity: sc.score}
	}

	return results, nil
}

// Count reports the number of records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.order), nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.items = nil
	s.order = nil
	return nil
}
