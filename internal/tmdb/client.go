package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	imageBaseURL   = "https://image.tmdb.org/t/p/w500"

	placeholderPoster = "https://via.placeholder.com/500x750?text=No+Poster"
)

// genreNames maps TMDb genre ids to normalized lowercase genre strings.
var genreNames = map[int]string{
	28:    "action",
	12:    "adventure",
	16:    "animation",
	35:    "comedy",
	80:    "crime",
	99:    "documentary",
	18:    "drama",
	10751: "family",
	14:    "fantasy",
	27:    "horror",
	9648:  "mystery",
	10749: "romance",
	878:   "sci-fi",
	53:    "thriller",
}

// SourceMovie is a normalized movie record from TMDb, ready for ingestion.
type SourceMovie struct {
	ID          string
	Title       string
	Genres      []string
	Description string
	PosterURL   string
	ReleaseDate string
	Popularity  float64
	VoteAverage float64
}

// Genre is one entry of TMDb's genre list, passed through unchanged.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Trailer identifies a playable trailer video.
type Trailer struct {
	Key  string `json:"key"`
	Site string `json:"site"`
}

// Extras is supplemental display metadata for one movie.
type Extras struct {
	Tagline   string          `json:"tagline"`
	Runtime   int             `json:"runtime"`
	Trailer   *Trailer        `json:"trailer"`
	Providers json.RawMessage `json:"providers"`
}

// Client is a minimal TMDb REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new TMDb client
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL overrides the API endpoint (used by tests).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// PopularMovies fetches one page of the popular movie list.
func (c *Client) PopularMovies(ctx context.Context, page int) ([]SourceMovie, error) {
	return c.movieList(ctx, "/movie/popular", page)
}

// TopRatedMovies fetches one page of the top-rated movie list.
func (c *Client) TopRatedMovies(ctx context.Context, page int) ([]SourceMovie, error) {
	return c.movieList(ctx, "/movie/top_rated", page)
}

type listResponse struct {
	Results []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		Overview    string  `json:"overview"`
		PosterPath  string  `json:"poster_path"`
		GenreIDs    []int   `json:"genre_ids"`
		ReleaseDate string  `json:"release_date"`
		Popularity  float64 `json:"popularity"`
		VoteAverage float64 `json:"vote_average"`
	} `json:"results"`
}

func (c *Client) movieList(ctx context.Context, path string, page int) ([]SourceMovie, error) {
	var resp listResponse
	params := url.Values{
		"language": {"en-US"},
		"page":     {strconv.Itoa(page)},
	}
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	movies := make([]SourceMovie, 0, len(resp.Results))
	for _, m := range resp.Results {
		var genres []string
		for _, id := range m.GenreIDs {
			if name, ok := genreNames[id]; ok {
				genres = append(genres, name)
			}
		}
		movies = append(movies, SourceMovie{
			ID:          strconv.Itoa(m.ID),
			Title:       m.Title,
			Genres:      genres,
			Description: m.Overview,
			PosterURL:   posterURL(m.PosterPath),
			ReleaseDate: m.ReleaseDate,
			Popularity:  m.Popularity,
			VoteAverage: m.VoteAverage,
		})
	}

	return movies, nil
}

// Genres fetches TMDb's movie genre list.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var resp struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", url.Values{"language": {"en-US"}}, &resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

// MovieExtras fetches tagline, runtime, the first official YouTube trailer
// and US watch providers for one movie.
func (c *Client) MovieExtras(ctx context.Context, movieID string) (*Extras, error) {
	var details struct {
		Tagline string `json:"tagline"`
		Runtime int    `json:"runtime"`
	}
	if err := c.get(ctx, "/movie/"+movieID, url.Values{"language": {"en-US"}}, &details); err != nil {
		return nil, err
	}

	var videos struct {
		Results []struct {
			Key      string `json:"key"`
			Site     string `json:"site"`
			Type     string `json:"type"`
			Official bool   `json:"official"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/movie/"+movieID+"/videos", url.Values{"language": {"en-US"}}, &videos); err != nil {
		return nil, err
	}

	var providers struct {
		Results map[string]json.RawMessage `json:"results"`
	}
	if err := c.get(ctx, "/movie/"+movieID+"/watch/providers", nil, &providers); err != nil {
		return nil, err
	}

	extras := &Extras{
		Tagline:   details.Tagline,
		Runtime:   details.Runtime,
		Providers: providers.Results["US"],
	}

	// Prefer the official YouTube trailer, fall back to any YouTube trailer.
	for _, v := range videos.Results {
		if v.Type != "Trailer" || v.Site != "YouTube" {
			continue
		}
		if v.Official {
			extras.Trailer = &Trailer{Key: v.Key, Site: v.Site}
			break
		}
		if extras.Trailer == nil {
			extras.Trailer = &Trailer{Key: v.Key, Site: v.Site}
		}
	}

	return extras, nil
}

// get performs a GET request against the TMDb API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("TMDb request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TMDb API error for %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode TMDb response: %w", err)
	}

	return nil
}

func posterURL(posterPath string) string {
	if posterPath == "" {
		return placeholderPoster
	}
	return imageBaseURL + posterPath
}
