package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL("test-key", srv.URL)
}

func TestPopularMovies(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/popular", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))

		fmt.Fprint(w, `{"results":[{
			"id": 27205,
			"title": "Inception",
			"overview": "A thief who steals corporate secrets.",
			"poster_path": "/inception.jpg",
			"genre_ids": [28, 878, 99999],
			"release_date": "2010-07-16",
			"popularity": 83.9,
			"vote_average": 8.4
		}]}`)
	})

	movies, err := client.PopularMovies(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, movies, 1)

	m := movies[0]
	assert.Equal(t, "27205", m.ID)
	assert.Equal(t, "Inception", m.Title)
	// Unknown genre ids are dropped, known ones are normalized.
	assert.Equal(t, []string{"action", "sci-fi"}, m.Genres)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/inception.jpg", m.PosterURL)
	assert.Equal(t, "2010-07-16", m.ReleaseDate)
}

func TestMovieListMissingPoster(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"id": 1, "title": "Obscure", "overview": "x", "genre_ids": []}]}`)
	})

	movies, err := client.TopRatedMovies(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, placeholderPoster, movies[0].PosterURL)
}

func TestGenres(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/genre/movie/list", r.URL.Path)
		fmt.Fprint(w, `{"genres":[{"id":28,"name":"Action"},{"id":18,"name":"Drama"}]}`)
	})

	genres, err := client.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Genre{{ID: 28, Name: "Action"}, {ID: 18, Name: "Drama"}}, genres)
}

func TestMovieExtras(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/27205":
			fmt.Fprint(w, `{"tagline":"Your mind is the scene of the crime.","runtime":148}`)
		case "/movie/27205/videos":
			fmt.Fprint(w, `{"results":[
				{"key":"fan-cut","site":"YouTube","type":"Trailer","official":false},
				{"key":"official-key","site":"YouTube","type":"Trailer","official":true}
			]}`)
		case "/movie/27205/watch/providers":
			fmt.Fprint(w, `{"results":{"US":{"link":"https://example.com"}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	extras, err := client.MovieExtras(context.Background(), "27205")
	require.NoError(t, err)
	assert.Equal(t, "Your mind is the scene of the crime.", extras.Tagline)
	assert.Equal(t, 148, extras.Runtime)
	require.NotNil(t, extras.Trailer)
	// The official trailer wins over the earlier unofficial one.
	assert.Equal(t, "official-key", extras.Trailer.Key)
	assert.JSONEq(t, `{"link":"https://example.com"}`, string(extras.Providers))
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Genres(context.Background())
	assert.ErrorContains(t, err, "status 401")
}
