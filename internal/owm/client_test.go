package owm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/waveafterwave69/weather-app/internal/models"
)

func TestCurrentByCitySendsFixedParams(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(models.CurrentWeather{Name: "Paris"})
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "en")
	got, err := client.CurrentByCity(context.Background(), "paris")
	if err != nil {
		t.Fatalf("CurrentByCity() error = %v", err)
	}

	if got.Name != "Paris" {
		t.Errorf("expected canonical name Paris, got %q", got.Name)
	}
	if gotQuery["q"] != "paris" {
		t.Errorf("expected q=paris, got %q", gotQuery["q"])
	}
	if gotQuery["units"] != "metric" {
		t.Errorf("expected units=metric, got %q", gotQuery["units"])
	}
	if gotQuery["lang"] != "en" {
		t.Errorf("expected lang=en, got %q", gotQuery["lang"])
	}
	if gotQuery["appid"] != "test-key" {
		t.Errorf("expected appid=test-key, got %q", gotQuery["appid"])
	}
	if _, ok := gotQuery["cnt"]; ok {
		t.Errorf("current weather request must not carry cnt")
	}
}

func TestForecastByCoordsSendsCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("cnt") != "40" {
			t.Errorf("expected cnt=40, got %q", q.Get("cnt"))
		}
		if q.Get("lat") != "48.85" || q.Get("lon") != "2.35" {
			t.Errorf("unexpected coordinates: lat=%q lon=%q", q.Get("lat"), q.Get("lon"))
		}
		json.NewEncoder(w).Encode(models.WeeklyForecast{
			City: models.ForecastCity{Name: "Paris", Country: "FR"},
			List: []models.ForecastItem{{DT: 1}, {DT: 2}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "en")
	got, err := client.ForecastByCoords(context.Background(), 48.85, 2.35)
	if err != nil {
		t.Fatalf("ForecastByCoords() error = %v", err)
	}
	if len(got.List) != 2 {
		t.Fatalf("expected 2 forecast items, got %d", len(got.List))
	}
	if got.City.Name != "Paris" {
		t.Errorf("city metadata not preserved: %+v", got.City)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    Kind
		wantMsg string
	}{
		{name: "not found", status: http.StatusNotFound, want: KindNotFound, wantMsg: "city not found"},
		{name: "unauthorized", status: http.StatusUnauthorized, want: KindUnauthorized, wantMsg: "invalid API key"},
		{name: "rate limited", status: http.StatusTooManyRequests, want: KindRateLimited, wantMsg: "too many requests, try again later"},
		{name: "bad request", status: http.StatusBadRequest, want: KindBadRequest, wantMsg: "invalid coordinates"},
		{name: "server error", status: http.StatusInternalServerError, want: KindNetwork, wantMsg: "network error: API returned status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := New(server.URL, "test-key", "en")
			_, err := client.CurrentByCity(context.Background(), "nowhere")
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if KindOf(err) != tt.want {
				t.Errorf("KindOf() = %v, want %v", KindOf(err), tt.want)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

// Unauthorized and rate-limited apply to every operation, not just the
// current-weather-by-city path.
func TestErrorClassificationUniformAcrossOperations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "en")
	ctx := context.Background()

	if _, err := client.CurrentByCoords(ctx, 1, 2); KindOf(err) != KindRateLimited {
		t.Errorf("CurrentByCoords: KindOf() = %v, want KindRateLimited", KindOf(err))
	}
	if _, err := client.ForecastByCity(ctx, "paris"); KindOf(err) != KindRateLimited {
		t.Errorf("ForecastByCity: KindOf() = %v, want KindRateLimited", KindOf(err))
	}
	if _, err := client.ForecastByCoords(ctx, 1, 2); KindOf(err) != KindRateLimited {
		t.Errorf("ForecastByCoords: KindOf() = %v, want KindRateLimited", KindOf(err))
	}
}

func TestForecastNotFoundWording(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "en")
	_, err := client.ForecastByCity(context.Background(), "nowhere")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "city not found, check the spelling" {
		t.Errorf("unexpected forecast not-found wording: %q", err.Error())
	}
}

func TestNetworkErrorWrapsCause(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := New(server.URL, "test-key", "en")
	_, err := client.CurrentByCity(context.Background(), "paris")
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("KindOf() = %v, want KindNetwork", KindOf(err))
	}
}
