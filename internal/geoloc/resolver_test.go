package geoloc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/waveafterwave69/weather-app/internal/models"
)

type countingProvider struct {
	calls  int
	coords models.Coordinates
	err    error
	delay  time.Duration
}

func (p *countingProvider) Locate(ctx context.Context, ip string) (models.Coordinates, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return models.Coordinates{}, ctx.Err()
		}
	}
	if p.err != nil {
		return models.Coordinates{}, p.err
	}
	return p.coords, nil
}

func TestResolveDenied(t *testing.T) {
	r := NewResolver(&countingProvider{}, 0, 0)
	_, err := r.Resolve(context.Background(), Request{IP: "1.2.3.4", Allowed: false})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestResolveUnsupported(t *testing.T) {
	r := NewResolver(nil, 0, 0)
	_, err := r.Resolve(context.Background(), Request{IP: "1.2.3.4", Allowed: true})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestResolveTimeout(t *testing.T) {
	p := &countingProvider{delay: 200 * time.Millisecond}
	r := NewResolver(p, 20*time.Millisecond, 5*time.Minute)
	_, err := r.Resolve(context.Background(), Request{IP: "1.2.3.4", Allowed: true})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestResolveUnavailable(t *testing.T) {
	p := &countingProvider{err: errors.New("no fix for address")}
	r := NewResolver(p, 0, 0)
	_, err := r.Resolve(context.Background(), Request{IP: "1.2.3.4", Allowed: true})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolveReusesRecentFix(t *testing.T) {
	p := &countingProvider{coords: models.Coordinates{Lat: 55.75, Lon: 37.62}}
	r := NewResolver(p, 0, 5*time.Minute)
	req := Request{IP: "1.2.3.4", Allowed: true}

	first, err := r.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if p.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", p.calls)
	}
	if first != second {
		t.Fatalf("cached fix differs: %+v vs %+v", first, second)
	}
}

func TestResolveDistinctAddressesNotShared(t *testing.T) {
	p := &countingProvider{coords: models.Coordinates{Lat: 1, Lon: 2}}
	r := NewResolver(p, 0, 5*time.Minute)

	if _, err := r.Resolve(context.Background(), Request{IP: "1.1.1.1", Allowed: true}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := r.Resolve(context.Background(), Request{IP: "2.2.2.2", Allowed: true}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", p.calls)
	}
}

func TestIPProviderParsesFix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/203.0.113.9" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","lat":48.8566,"lon":2.3522}`))
	}))
	defer server.Close()

	p := NewIPProvider(server.URL)
	coords, err := p.Locate(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if coords.Lat != 48.8566 || coords.Lon != 2.3522 {
		t.Fatalf("unexpected coordinates: %+v", coords)
	}
}

func TestIPProviderFailStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer server.Close()

	p := NewIPProvider(server.URL)
	if _, err := p.Locate(context.Background(), "10.0.0.1"); err == nil {
		t.Fatal("expected error for fail status")
	}
}
