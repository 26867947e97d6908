package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardledger/internal/cards/models"
	"cardledger/pkg/platform/circuit"
)

const maxResponseBytes = 1 << 20

type Config struct {
	URL     string
	Timeout time.Duration
	// Breaker is optional; a default breaker is created when nil.
	Breaker *circuit.Breaker
	// Client is optional; tests inject httptest clients here.
	Client *http.Client
}

// HTTPClient posts images as data URIs to the grading service.
type HTTPClient struct {
	gradeURL  string
	healthURL string
	client    *http.Client
	breaker   *circuit.Breaker
}

type gradeRequest struct {
	Image string `json:"image"`
}

type gradeResponse struct {
	Status       string   `json:"status"`
	Grade        string   `json:"grade"`
	Confidence   *float64 `json:"confidence"`
	ErrorMessage string   `json:"error_message"`
}

// NewHTTPClient fails fast on a missing or malformed URL.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("grading: URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("grading: invalid URL %q", cfg.URL)
	}
	health := *u
	health.Path = "/health"
	health.RawQuery = ""

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuit.New("grading", circuit.WithFailureThreshold(5), circuit.WithCooldown(10*time.Second))
	}
	return &HTTPClient{
		gradeURL:  u.String(),
		healthURL: health.String(),
		client:    client,
		breaker:   breaker,
	}, nil
}

func (c *HTTPClient) Grade(ctx context.Context, image models.Image) (Result, error) {
	if !c.breaker.Allow() {
		return Result{}, fmt.Errorf("%w: circuit open", ErrUnavailable)
	}

	body, err := json.Marshal(gradeRequest{Image: image.DataURI()})
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode request: %v", ErrRejected, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gradeURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.breaker.RecordFailure()
		}
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	c.breaker.RecordSuccess()

	var out gradeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: malformed response: %v", ErrRejected, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || out.Status == "error" {
		msg := out.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Result{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	if out.Status != "success" || strings.TrimSpace(out.Grade) == "" || out.Confidence == nil {
		return Result{}, fmt.Errorf("%w: incomplete result", ErrRejected)
	}
	if *out.Confidence < 0 || *out.Confidence > 1 {
		return Result{}, fmt.Errorf("%w: confidence %v out of range", ErrRejected, *out.Confidence)
	}
	return Result{Grade: out.Grade, Confidence: *out.Confidence}, nil
}

// Ping checks GET /health on the grading host.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
