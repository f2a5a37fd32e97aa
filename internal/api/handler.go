package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cinesync/cinesync/internal/embedding"
	"github.com/cinesync/cinesync/internal/ingest"
	"github.com/cinesync/cinesync/internal/search"
	"github.com/cinesync/cinesync/internal/tmdb"
	"github.com/cinesync/cinesync/pkg/vectorstore"
)

// MetadataProvider is the slice of the TMDb client the API passes through.
type MetadataProvider interface {
	Genres(ctx context.Context) ([]tmdb.Genre, error)
	MovieExtras(ctx context.Context, movieID string) (*tmdb.Extras, error)
}

// IngestRunner runs one catalog seeding batch.
type IngestRunner interface {
	Run(ctx context.Context) (*ingest.Report, error)
}

// ingestRun tracks the lifecycle of the most recent ingestion batch.
type ingestRun struct {
	mu         sync.Mutex
	running    bool
	startedAt  time.Time
	finishedAt time.Time
	report     *ingest.Report
	err        error
}

// Handler handles API requests
type Handler struct {
	engine   *search.Engine
	embedder search.Embedder
	metadata MetadataProvider
	store    vectorstore.Store
	ingester IngestRunner
	logger   *log.Logger

	lastRun ingestRun
}

// NewHandler creates a new handler
func NewHandler(
	engine *search.Engine,
	embedder search.Embedder,
	metadata MetadataProvider,
	store vectorstore.Store,
	ingester IngestRunner,
	logger *log.Logger,
) *Handler {
	return &Handler{
		engine:   engine,
		embedder: embedder,
		metadata: metadata,
		store:    store,
		ingester: ingester,
		logger:   logger,
	}
}

// HealthCheck provides a simple health check endpoint
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// searchRequest accepts either query text or a pre-computed embedding.
type searchRequest struct {
	SearchQuery    string    `json:"searchQuery"`
	Embedding      []float32 `json:"embedding"`
	SelectedGenres []string  `json:"selectedGenres"`
}

// Search handles POST /api/search
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var (
		resp *search.Response
		err  error
	)
	if len(req.Embedding) > 0 {
		resp, err = h.engine.SearchByVector(c.Request.Context(), req.Embedding, req.SelectedGenres)
	} else {
		resp, err = h.engine.Search(c.Request.Context(), search.Request{
			Query:          req.SearchQuery,
			SelectedGenres: req.SelectedGenres,
		})
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Embedding handles POST /api/embedding
func (h *Handler) Embedding(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.embedder.Embed(c.Request.Context(), req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Genres handles GET /api/genres, a pass-through to the metadata provider.
func (h *Handler) Genres(c *gin.Context) {
	genres, err := h.metadata.Genres(c.Request.Context())
	if err != nil {
		h.logger.Printf("genre listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch genres"})
		return
	}

	c.JSON(http.StatusOK, genres)
}

// MovieExtras handles GET /api/movies/:id/extras
func (h *Handler) MovieExtras(c *gin.Context) {
	extras, err := h.metadata.MovieExtras(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Printf("movie extras failed for %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch movie extras"})
		return
	}

	c.JSON(http.StatusOK, extras)
}

// AdminIngest handles POST /api/admin/ingest, starting one seeding batch.
//
// A full batch is paced at one provider call every couple of seconds and runs
// for minutes, far past any request deadline, so it executes in the background
// on a detached context and the caller polls GET /api/admin/ingest/status for
// the outcome. One batch at a time.
func (h *Handler) AdminIngest(c *gin.Context) {
	if h.ingester == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingestion is not configured"})
		return
	}

	h.lastRun.mu.Lock()
	if h.lastRun.running {
		h.lastRun.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "An ingestion run is already in progress"})
		return
	}
	h.lastRun.running = true
	h.lastRun.startedAt = time.Now()
	h.lastRun.finishedAt = time.Time{}
	h.lastRun.report = nil
	h.lastRun.err = nil
	h.lastRun.mu.Unlock()

	go func() {
		report, err := h.ingester.Run(context.Background())
		if err != nil {
			h.logger.Printf("ingestion run failed: %v", err)
		}

		h.lastRun.mu.Lock()
		h.lastRun.running = false
		h.lastRun.finishedAt = time.Now()
		h.lastRun.report = report
		h.lastRun.err = err
		h.lastRun.mu.Unlock()
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// AdminIngestStatus handles GET /api/admin/ingest/status
func (h *Handler) AdminIngestStatus(c *gin.Context) {
	h.lastRun.mu.Lock()
	defer h.lastRun.mu.Unlock()

	status := "idle"
	switch {
	case h.lastRun.running:
		status = "running"
	case h.lastRun.err != nil:
		status = "failed"
	case h.lastRun.report != nil:
		status = "completed"
	}

	resp := gin.H{"status": status}
	if !h.lastRun.startedAt.IsZero() {
		resp["startedAt"] = h.lastRun.startedAt.Format(time.RFC3339)
	}
	if !h.lastRun.finishedAt.IsZero() {
		resp["finishedAt"] = h.lastRun.finishedAt.Format(time.RFC3339)
	}
	if h.lastRun.report != nil {
		resp["inserted"] = h.lastRun.report.Inserted
		resp["skipped"] = h.lastRun.report.Skipped
		resp["failed"] = h.lastRun.report.Failed
	}
	if h.lastRun.err != nil {
		resp["error"] = "Ingestion run failed"
	}

	c.JSON(http.StatusOK, resp)
}

// AdminCatalogStats handles GET /api/admin/catalog/stats
func (h *Handler) AdminCatalogStats(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.logger.Printf("catalog count failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read catalog stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"movies": count})
}

// respondError maps the error taxonomy onto HTTP statuses. Internal failures
// are logged in full but surfaced only as generic, categorized messages.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, embedding.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, vectorstore.ErrDimensionMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Embedding has the wrong dimensionality"})
	case errors.Is(err, embedding.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later."})
	case errors.Is(err, search.ErrSearchFailed):
		h.logger.Printf("search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search movies. Please try again."})
	default:
		h.logger.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request. Please try again."})
	}
}
