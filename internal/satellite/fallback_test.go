package satellite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// fakeProvider is a Provider with per-call function fields.
type fakeProvider struct {
	searchFn   func(ctx context.Context, req SearchRequest) ([]Scene, error)
	downloadFn func(ctx context.Context, href string, geometry json.RawMessage, outPath string) (string, error)
	healthy    bool
	calls      int
}

func (f *fakeProvider) SearchScenes(ctx context.Context, req SearchRequest) ([]Scene, error) {
	f.calls++
	return f.searchFn(ctx, req)
}

func (f *fakeProvider) DownloadBand(ctx context.Context, href string, geometry json.RawMessage, outPath string) (string, error) {
	if f.downloadFn != nil {
		return f.downloadFn(ctx, href, geometry, outPath)
	}
	return outPath, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) bool { return f.healthy }

func scenesNamed(ids ...string) []Scene {
	scenes := make([]Scene, len(ids))
	for i, id := range ids {
		scenes[i] = Scene{ID: id}
	}
	return scenes
}

func succeeding(ids ...string) *fakeProvider {
	return &fakeProvider{searchFn: func(ctx context.Context, req SearchRequest) ([]Scene, error) {
		return scenesNamed(ids...), nil
	}}
}

func failing(err error) *fakeProvider {
	return &fakeProvider{searchFn: func(ctx context.Context, req SearchRequest) ([]Scene, error) {
		return nil, err
	}}
}

func TestFallback_PrimarySuccess(t *testing.T) {
	primary := succeeding("p1", "p2")
	secondary := succeeding("s1")
	p := NewFallbackProvider(primary, NewCircuitBreaker(3, time.Minute), secondary)

	scenes, err := p.SearchScenes(context.Background(), SearchRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 2 || scenes[0].ID != "p1" {
		t.Errorf("expected primary scenes, got %+v", scenes)
	}
	if secondary.calls != 0 {
		t.Error("secondary should not be called when primary succeeds")
	}
}

func TestFallback_SecondaryOnPrimaryFailure(t *testing.T) {
	primary := failing(ErrSearchFailed)
	secondary := succeeding("s1")
	p := NewFallbackProvider(primary, NewCircuitBreaker(3, time.Minute), secondary)

	scenes, err := p.SearchScenes(context.Background(), SearchRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 1 || scenes[0].ID != "s1" {
		t.Errorf("expected secondary scenes, got %+v", scenes)
	}
}

func TestFallback_AllFailReturnsLastError(t *testing.T) {
	sentinelErr := errors.New("secondary down")
	p := NewFallbackProvider(failing(ErrSearchFailed), NewCircuitBreaker(3, time.Minute), failing(sentinelErr))

	_, err := p.SearchScenes(context.Background(), SearchRequest{})
	if !errors.Is(err, sentinelErr) {
		t.Errorf("expected last error %v, got %v", sentinelErr, err)
	}
}

func TestFallback_BreakerSkipsPrimary(t *testing.T) {
	primary := failing(ErrSearchFailed)
	secondary := succeeding("s1")
	breaker := NewCircuitBreaker(2, time.Hour)
	p := NewFallbackProvider(primary, breaker, secondary)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := p.SearchScenes(ctx, SearchRequest{}); err != nil {
			t.Fatalf("secondary should keep the chain alive: %v", err)
		}
	}
	if primary.calls != 2 {
		t.Fatalf("primary calls = %d, want 2 before breaker opens", primary.calls)
	}

	// Breaker now open; primary must be skipped.
	if _, err := p.SearchScenes(ctx, SearchRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.calls != 2 {
		t.Errorf("primary calls = %d, want 2 while breaker open", primary.calls)
	}
}

func TestFallback_BreakerOpenNoSecondaries(t *testing.T) {
	breaker := NewCircuitBreaker(1, time.Hour)
	p := NewFallbackProvider(failing(ErrSearchFailed), breaker)

	ctx := context.Background()
	p.SearchScenes(ctx, SearchRequest{})

	_, err := p.SearchScenes(ctx, SearchRequest{})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable with breaker open, got %v", err)
	}
}

func TestFallback_HealthCheck(t *testing.T) {
	p := NewFallbackProvider(
		&fakeProvider{healthy: false, searchFn: nil},
		NewCircuitBreaker(3, time.Minute),
		&fakeProvider{healthy: true, searchFn: nil},
	)
	if !p.HealthCheck(context.Background()) {
		t.Error("any healthy provider should report healthy")
	}
}
