package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/engagestory/engagestory/pkg/types"
	"github.com/engagestory/engagestory/server/internal/config"
)

// ErrUnavailable is the single failure outcome of a remote attempt. Timeouts,
// transport errors, non-2xx statuses and bad bodies all wrap it.
var ErrUnavailable = errors.New("inference: remote unavailable")

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 10

// RequestIDHeader carries the submission id to the scoring endpoint.
const RequestIDHeader = "X-Request-ID"

// scoreResponse is the success body of the scoring endpoint.
type scoreResponse struct {
	PredictedEngagement *float64 `json:"predicted_engagement"`
}

// Client issues scoring requests against one configured endpoint.
// It is safe for concurrent use.
type Client struct {
	endpoint string
	deadline time.Duration
	client   *http.Client
}

// New builds a Client from cfg. The HTTP client is built once and reused.
func New(cfg config.InferenceConfig) *Client {
	if cfg.Deadline <= 0 {
		cfg.Deadline = config.DefaultDeadline
	}
	return &Client{
		endpoint: cfg.Endpoint,
		deadline: cfg.Deadline,
		client:   buildHTTPClient(cfg),
	}
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string { return c.endpoint }

// Deadline returns the hard bound on one attempt.
func (c *Client) Deadline() time.Duration { return c.deadline }

// Request sends in to the scoring endpoint and returns the predicted
// engagement. It makes exactly one attempt bounded by the client deadline.
// Any failure is returned wrapped in ErrUnavailable.
func (c *Client) Request(ctx context.Context, in types.PredictionInput) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	score, err := c.do(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return score, nil
}

func (c *Client) do(ctx context.Context, in types.PredictionInput) (float64, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := RequestIDFrom(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes)) //nolint:errcheck
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if out.PredictedEngagement == nil {
		return 0, errors.New("response missing predicted_engagement")
	}
	v := *out.PredictedEngagement
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite score %v", v)
	}
	return v, nil
}

// Offline is a remote that is always unavailable. It stands in when no
// endpoint is configured so every result is simulated.
type Offline struct{}

// Request implements the remote contract by failing immediately.
func (Offline) Request(context.Context, types.PredictionInput) (float64, error) {
	return 0, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the submission id sent as
// X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the submission id stored in ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
