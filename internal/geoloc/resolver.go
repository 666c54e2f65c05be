package geoloc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/waveafterwave69/weather-app/internal/models"
)

// Classified resolution failures. Unsupported is kept as its own
// classification rather than collapsed into the generic failure so the
// UI can hide the retry affordance when no provider exists at all.
var (
	ErrPermissionDenied = errors.New("location access is denied, allow access to continue")
	ErrUnavailable      = errors.New("location information is unavailable")
	ErrTimeout          = errors.New("timed out waiting for a location fix")
	ErrUnsupported      = errors.New("location detection is not supported")
)

// Request carries what the resolver needs for a one-shot position fix.
// Allowed mirrors the client's location-permission grant: a session that
// did not grant access fails with ErrPermissionDenied without touching
// the provider.
type Request struct {
	IP      string
	Allowed bool
}

// Provider turns a client address into coordinates. Implementations are
// expected to be a single network round trip.
type Provider interface {
	Locate(ctx context.Context, ip string) (models.Coordinates, error)
}

type cachedFix struct {
	coords     models.Coordinates
	observedAt time.Time
}

// Resolver wraps a Provider in a result-or-error operation with a
// bounded wait and an acceptable age for a previously observed fix.
type Resolver struct {
	provider Provider
	timeout  time.Duration
	maxAge   time.Duration

	mu    sync.Mutex
	fixes map[string]cachedFix
}

// NewResolver builds a resolver around provider. A nil provider yields a
// resolver whose Resolve always fails with ErrUnsupported. Zero timeout
// and maxAge fall back to 5s and 5m.
func NewResolver(provider Provider, timeout, maxAge time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxAge < 0 {
		maxAge = 0
	} else if maxAge == 0 {
		maxAge = 5 * time.Minute
	}
	return &Resolver{
		provider: provider,
		timeout:  timeout,
		maxAge:   maxAge,
		fixes:    make(map[string]cachedFix),
	}
}

// Resolve returns coordinates for the request or a classified error. A
// fix observed for the same address within the max-age bound is reused
// without hitting the provider.
func (r *Resolver) Resolve(ctx context.Context, req Request) (models.Coordinates, error) {
	if r.provider == nil {
		return models.Coordinates{}, ErrUnsupported
	}
	if !req.Allowed {
		return models.Coordinates{}, ErrPermissionDenied
	}

	r.mu.Lock()
	if fix, ok := r.fixes[req.IP]; ok && time.Since(fix.observedAt) <= r.maxAge {
		r.mu.Unlock()
		return fix.coords, nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	coords, err := r.provider.Locate(ctx, req.IP)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Coordinates{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.mu.Lock()
	r.fixes[req.IP] = cachedFix{coords: coords, observedAt: time.Now()}
	r.mu.Unlock()

	return coords, nil
}
