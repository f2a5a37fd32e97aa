package vectorstore

import (
	"context"
	"io"
	"log"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, dims int) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	logger := log.New(io.Discard, "", 0)
	return NewPostgresStoreWithDB(db, dims, logger), mock
}

func TestPostgresStoreUpsert(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movies")).
		WithArgs("27205", "Inception", sqlmock.AnyArg(), "A thief who steals corporate secrets.",
			"https://image.tmdb.org/t/p/w500/poster.jpg", "2010-07-16", 83.9, 8.4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Upsert(context.Background(), []Movie{{
		ID:          "27205",
		Title:       "Inception",
		Genres:      []string{"action", "sci-fi"},
		Description: "A thief who steals corporate secrets.",
		PosterURL:   "https://image.tmdb.org/t/p/w500/poster.jpg",
		ReleaseDate: "2010-07-16",
		Popularity:  83.9,
		VoteAverage: 8.4,
		Embedding:   []float32{0.62, 0.78},
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpsertDimensionGuard(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Upsert(context.Background(), []Movie{{
		ID:        "1",
		Embedding: []float32{0.1, 0.2, 0.3},
	}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPostgresStoreSearch(t *testing.T) {
	store, mock := newMockStore(t, 2)

	rows := sqlmock.NewRows([]string{
		"id", "title", "genres", "overview", "poster_url", "release_date", "popularity", "vote_average", "similarity",
	}).
		AddRow("27205", "Inception", "{action,sci-fi}", "A thief.", "poster.jpg", "2010-07-16", 83.9, 8.4, 0.62).
		AddRow("603", "The Matrix", "{action,sci-fi}", "A hacker.", "matrix.jpg", nil, 70.1, 8.2, 0.55)

	mock.ExpectQuery(regexp.QuoteMeta("FROM search_movies_by_embedding($1, $2, $3)")).
		WithArgs(sqlmock.AnyArg(), 0.1, 10).
		WillReturnRows(rows)

	results, err := store.Search(context.Background(), []float32{1, 0}, 0.1, 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Inception", results[0].Title)
	assert.Equal(t, []string{"action", "sci-fi"}, results[0].Genres)
	assert.InDelta(t, 0.62, results[0].Similarity, 1e-6)
	assert.Empty(t, results[1].ReleaseDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSearchDimensionGuard(t *testing.T) {
	store, _ := newMockStore(t, 768)

	_, err := store.Search(context.Background(), []float32{1, 0}, 0.1, 10)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPostgresStoreCount(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM movies")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}
