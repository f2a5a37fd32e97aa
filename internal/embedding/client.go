package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
)

// Dimensions is the output dimensionality of the canonical embedding model.
// Every stored and compared vector must match it.
const Dimensions = 768

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "text-embedding-004"

	maxTextLength = 2000

	defaultRateLimit  = 30
	defaultRateWindow = 60 * time.Second

	maxRetries     = 2 // 3 attempts total
	initialBackoff = 500 * time.Millisecond

	requestTimeout = 15 * time.Second
)

var (
	// ErrInvalidInput means the caller supplied empty or oversized text.
	ErrInvalidInput = errors.New("input text must be a non-empty string of at most 2000 characters")

	// ErrRateLimited means the local call budget for the current window is spent.
	ErrRateLimited = errors.New("embedding rate limit exceeded")

	// ErrProvider means the provider failed after the retry budget was exhausted.
	ErrProvider = errors.New("embedding provider error")

	// ErrConfiguration means the provider API key is missing.
	ErrConfiguration = errors.New("embedding provider is not configured")
)

// ProviderError carries the provider's HTTP status so the retry loop can
// distinguish transient failures from permanent ones.
type ProviderError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrProvider }

// Result is a generated embedding plus its dimensionality.
type Result struct {
	Vector     []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
}

// Client generates text embeddings via the Gemini embedding API. It validates
// input, enforces a process-wide sliding-window rate limit, and retries
// transient provider failures with exponential backoff.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *slidingWindow
	logger     *log.Logger

	retries     uint64
	backoffBase time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint (used by tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithRateLimit overrides the call budget per rolling window.
func WithRateLimit(max int, window time.Duration) Option {
	return func(c *Client) { c.limiter = newSlidingWindow(max, window) }
}

// WithBackoff overrides the initial retry backoff (used by tests).
func WithBackoff(base time.Duration) Option {
	return func(c *Client) { c.backoffBase = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new embedding client
func NewClient(apiKey string, logger *log.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrConfiguration
	}

	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter:     newSlidingWindow(defaultRateLimit, defaultRateWindow),
		logger:      logger,
		retries:     maxRetries,
		backoffBase: initialBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Embed generates an embedding for the given text.
//
// Validation and rate limiting happen before any provider traffic: empty or
// oversized text fails with ErrInvalidInput, an exhausted window fails with
// ErrRateLimited. Transient provider failures (429, 5xx, network errors,
// empty responses) are retried with exponential backoff; permanent failures
// propagate immediately.
func (c *Client) Embed(ctx context.Context, text string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}
	// The cap counts characters, not bytes, so multi-byte text is not
	// penalized.
	if n := utf8.RuneCountInString(trimmed); n > maxTextLength {
		return nil, fmt.Errorf("%w: got %d characters", ErrInvalidInput, n)
	}

	if !c.limiter.allow() {
		return nil, ErrRateLimited
	}

	var result *Result
	operation := func() error {
		vec, err := c.embedOnce(ctx, trimmed)
		if err != nil {
			var pe *ProviderError
			if errors.As(err, &pe) && !pe.Retryable {
				return backoff.Permanent(err)
			}
			c.logger.Printf("embedding attempt failed, will retry: %v", err)
			return err
		}
		result = vec
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoffBase
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx))
	if err != nil {
		return nil, err
	}

	return result, nil
}

// geminiRequest is the embedContent request body.
type geminiRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// embedOnce performs a single provider call.
func (c *Client) embedOnce(ctx context.Context, text string) (*Result, error) {
	body := geminiRequest{
		Model: "models/" + c.model,
		Content: geminiContent{
			Parts: []geminiPart{{Text: text}},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network and timeout failures are transient.
		return nil, &ProviderError{Message: err.Error(), Retryable: true}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    string(msg),
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Message: "malformed response: " + err.Error(), Retryable: true}
	}

	values := parsed.Embedding.Values
	if len(values) == 0 {
		return nil, &ProviderError{Message: "provider returned empty embedding", Retryable: true}
	}
	if len(values) != Dimensions {
		// A wrong-width vector points at model misconfiguration, not a
		// transient fault, so retrying cannot help.
		return nil, &ProviderError{
			Message:   fmt.Sprintf("provider returned %d dimensions, want %d", len(values), Dimensions),
			Retryable: false,
		}
	}

	return &Result{Vector: values, Dimensions: len(values)}, nil
}
