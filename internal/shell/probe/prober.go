// Package probe implements the readiness gate for candidate slots. A new
// slot may receive traffic only after a probe reports Healthy; there is no
// partial or time-based promotion.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// =============================================================================
// Config
// =============================================================================

// Config bounds a single probe run.
type Config struct {
	// Timeout is the per-attempt request timeout. Default: 5 seconds.
	Timeout time.Duration

	// MaxAttempts is the number of attempts before giving up. Default: 5.
	MaxAttempts int

	// Backoff is the delay before the second attempt; it doubles after each
	// failure, capped at 30 seconds. Default: 1 second.
	Backoff time.Duration
}

// DefaultConfig returns the default probe configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:     5 * time.Second,
		MaxAttempts: 5,
		Backoff:     time.Second,
	}
}

const maxBackoff = 30 * time.Second

// =============================================================================
// Result
// =============================================================================

// Result reports the outcome of a probe run.
type Result struct {
	// Healthy is true when at least one attempt saw a ready response.
	Healthy bool

	// Attempts is how many attempts were made.
	Attempts int

	// Version is the application version reported by the health endpoint,
	// when available.
	Version string
}

// healthResponse is the JSON body served by the application's health
// endpoint.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// =============================================================================
// Prober
// =============================================================================

// Prober issues bounded, retried readiness checks against candidate slots.
type Prober struct {
	client *http.Client
	logger *slog.Logger
}

// New creates a prober.
func New(logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		// Per-attempt timeouts come from the probe config.
		client: &http.Client{},
		logger: logger.With("component", "probe"),
	}
}

// Probe checks url until one attempt succeeds or cfg.MaxAttempts are
// exhausted. An attempt succeeds on a 2xx response whose body reports
// status "healthy". The returned error is non-nil only when the context is
// cancelled; exhausting attempts yields Result.Healthy == false.
func (p *Prober) Probe(ctx context.Context, url string, cfg Config) (Result, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Second
	}

	backoff := cfg.Backoff
	result := Result{}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		version, err := p.attempt(ctx, url, cfg.Timeout)
		if err == nil {
			result.Healthy = true
			result.Version = version
			p.logger.Info("slot ready", "url", url, "attempt", attempt, "version", version)
			return result, nil
		}

		p.logger.Debug("probe attempt failed",
			"url", url,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"error", err,
		)

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	p.logger.Warn("probe exhausted attempts", "url", url, "attempts", result.Attempts)
	return result, nil
}

// attempt performs a single health request.
func (p *Prober) attempt(ctx context.Context, url string, timeout time.Duration) (version string, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode health response: %w", err)
	}

	if body.Status != "healthy" {
		return "", fmt.Errorf("health endpoint reports status %q", body.Status)
	}

	return body.Version, nil
}
