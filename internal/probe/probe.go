// Package probe implements the bounded readiness poll against the backend
// health endpoint.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/smart-compressor/compressor-go/internal/config"
)

// Prober polls the backend health endpoint until it reports ready or the
// attempt budget is exhausted. Each attempt is bounded by the per-request
// timeout; there is no backoff, only a fixed pause between attempts.
type Prober struct {
	healthURL string
	attempts  int
	interval  time.Duration
	logger    *zap.SugaredLogger

	httpClient *http.Client
}

// New creates a prober from the backend configuration.
func New(cfg *config.BackendConfig, logger *zap.SugaredLogger) *Prober {
	return &Prober{
		healthURL: cfg.HealthURL(),
		attempts:  cfg.ProbeAttempts,
		interval:  cfg.ProbeInterval,
		logger:    logger,
		httpClient: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
	}
}

// WaitForReady polls the health endpoint up to the configured attempt count.
// It returns nil on the first 2xx response. A non-2xx response or a request
// failure (connection refused, timeout) logs the outcome and retries after
// the inter-attempt pause; the pause is never applied after the final
// attempt. Exhausting all attempts returns a descriptive error.
func (p *Prober) WaitForReady(ctx context.Context) error {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		p.logger.Infow("Checking backend health",
			"attempt", attempt,
			"max_attempts", p.attempts,
			"url", p.healthURL)

		ready, detail := p.check(ctx)
		if ready {
			p.logger.Infow("Backend is ready", "attempt", attempt)
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("readiness probe cancelled: %w", ctx.Err())
		}

		p.logger.Infow("Backend not ready yet", "attempt", attempt, "reason", detail)

		if attempt < p.attempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("readiness probe cancelled: %w", ctx.Err())
			case <-time.After(p.interval):
			}
		}
	}

	return fmt.Errorf("backend failed to become ready after %d attempts", p.attempts)
}

// check performs a single health request. Success is any 2xx status; the
// response body is ignored.
func (p *Prober) check(ctx context.Context) (ready bool, detail string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, http.NoBody)
	if err != nil {
		return false, fmt.Sprintf("failed to create request: %v", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, ""
	}

	return false, fmt.Sprintf("non-success status: %s", resp.Status)
}
