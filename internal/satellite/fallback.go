package satellite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// FallbackProvider tries the breaker-gated primary first, then each secondary
// in order. The breaker consults only the primary; secondaries are assumed to
// be lower-volume endpoints that do not need isolation.
type FallbackProvider struct {
	primary     Provider
	secondaries []Provider
	breaker     *CircuitBreaker
}

// NewFallbackProvider composes a primary and optional secondaries behind a
// circuit breaker.
func NewFallbackProvider(primary Provider, breaker *CircuitBreaker, secondaries ...Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondaries: secondaries, breaker: breaker}
}

func (p *FallbackProvider) SearchScenes(ctx context.Context, req SearchRequest) ([]Scene, error) {
	var lastErr error

	if p.breaker.Allow() {
		scenes, err := p.primary.SearchScenes(ctx, req)
		if err == nil {
			p.breaker.RecordSuccess()
			return scenes, nil
		}
		p.breaker.RecordFailure()
		lastErr = err
		slog.Warn("primary scene search failed, trying fallback", "error", err)
	} else {
		lastErr = fmt.Errorf("%w: circuit breaker open", ErrProviderUnavailable)
		slog.Debug("circuit breaker open, skipping primary")
	}

	for _, secondary := range p.secondaries {
		scenes, err := secondary.SearchScenes(ctx, req)
		if err == nil {
			return scenes, nil
		}
		lastErr = err
		slog.Warn("secondary scene search failed", "error", err)
	}

	return nil, lastErr
}

func (p *FallbackProvider) DownloadBand(ctx context.Context, href string, geometry json.RawMessage, outPath string) (string, error) {
	var lastErr error

	if p.breaker.Allow() {
		path, err := p.primary.DownloadBand(ctx, href, geometry, outPath)
		if err == nil {
			p.breaker.RecordSuccess()
			return path, nil
		}
		p.breaker.RecordFailure()
		lastErr = err
	} else {
		lastErr = fmt.Errorf("%w: circuit breaker open", ErrProviderUnavailable)
	}

	for _, secondary := range p.secondaries {
		path, err := secondary.DownloadBand(ctx, href, geometry, outPath)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}

	return "", lastErr
}

func (p *FallbackProvider) HealthCheck(ctx context.Context) bool {
	if p.primary.HealthCheck(ctx) {
		return true
	}
	for _, secondary := range p.secondaries {
		if secondary.HealthCheck(ctx) {
			return true
		}
	}
	return false
}

var _ Provider = (*FallbackProvider)(nil)
