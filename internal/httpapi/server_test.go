package httpapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/waveafterwave69/weather-app/internal/auth"
	"github.com/waveafterwave69/weather-app/internal/dashboard"
	"github.com/waveafterwave69/weather-app/internal/geoloc"
	"github.com/waveafterwave69/weather-app/internal/models"
	"github.com/waveafterwave69/weather-app/internal/realtime"
	"github.com/waveafterwave69/weather-app/internal/users"
)

type fakeWeather struct{}

func (fakeWeather) CurrentByCity(_ context.Context, city string) (models.CurrentWeather, error) {
	return models.CurrentWeather{
		Name: city,
		Main: models.MainMetrics{Temp: 21.4},
		Weather: []models.Condition{
			{Description: "clear sky", Icon: "01d"},
		},
		Wind: models.Wind{Speed: 3, Deg: 90},
	}, nil
}

func (f fakeWeather) CurrentByCoords(ctx context.Context, _, _ float64) (models.CurrentWeather, error) {
	return f.CurrentByCity(ctx, "Geotown")
}

func (fakeWeather) ForecastByCity(_ context.Context, city string) (models.WeeklyForecast, error) {
	return models.WeeklyForecast{City: models.ForecastCity{Name: city}}, nil
}

func (f fakeWeather) ForecastByCoords(ctx context.Context, _, _ float64) (models.WeeklyForecast, error) {
	return f.ForecastByCity(ctx, "Geotown")
}

type denyingResolver struct{}

func (denyingResolver) Resolve(_ context.Context, _ geoloc.Request) (models.Coordinates, error) {
	return models.Coordinates{}, geoloc.ErrPermissionDenied
}

type testEnv struct {
	router chi.Router
	users  *users.Repo
	auth   *auth.Service
	hub    *realtime.Hub
	reg    *dashboard.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:httpapi_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := users.New(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	authSvc := auth.NewService(nil, auth.Options{PrivateKey: key})

	reg := dashboard.NewRegistry()
	hub := realtime.NewHub()
	srv := NewServer(
		slog.New(slog.NewTextHandler(testWriter{t}, nil)),
		repo, authSvc, nil, nil,
		fakeWeather{}, denyingResolver{},
		reg, hub,
		Options{DefaultCity: "Moscow", SearchDebounce: 10 * time.Millisecond},
	)

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return &testEnv{router: r, users: repo, auth: authSvc, hub: hub, reg: reg}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	u, err := e.users.Create(context.Background(), email, "hash", "Tester")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := e.auth.IssueAccessToken(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	State     View   `json:"state"`
}

func decodeSession(t *testing.T, rr *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// waitForCity polls the session until the current city matches or the
// deadline passes.
func (e *testEnv) waitForCity(t *testing.T, token, sessionID, city string) View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rr := e.do(t, http.MethodGet, "/api/weather/sessions/"+sessionID, token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("get session: status %d", rr.Code)
		}
		state := decodeSession(t, rr).State
		if state.Current != nil && state.Current.City == city && !state.Loading && !state.LocationLoading {
			return state
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session never reached city %q", city)
	return View{}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestSessionRequiresAuth(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPost, "/api/weather/sessions/", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.token(t, "alice@example.com")

	// Location is denied, so the first activation falls back to Moscow.
	rr := e.do(t, http.MethodPost, "/api/weather/sessions/", token, createSessionRequest{AllowGeolocation: false})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", rr.Code, rr.Body.String())
	}
	sessionID := decodeSession(t, rr).SessionID
	if sessionID == "" {
		t.Fatal("empty session id")
	}

	state := e.waitForCity(t, token, sessionID, "moscow")
	if !state.LocationDenied {
		t.Error("location denial not reflected in state")
	}
	if state.Current.Description != "Clear sky" {
		t.Errorf("description = %q, want capitalized", state.Current.Description)
	}
	if state.Current.Icon != "wb_sunny" || state.Current.IconColor != "warm" {
		t.Errorf("icon mapping = %s/%s", state.Current.Icon, state.Current.IconColor)
	}
	if state.Current.WindDirection != "E" {
		t.Errorf("wind direction = %q, want E", state.Current.WindDirection)
	}

	// Typed input triggers a debounced fetch.
	rr = e.do(t, http.MethodPut, "/api/weather/sessions/"+sessionID+"/search", token, searchRequest{Value: "  Paris  "})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("search: status %d", rr.Code)
	}
	e.waitForCity(t, token, sessionID, "paris")

	// Submit bypasses the debounce window entirely.
	rr = e.do(t, http.MethodPut, "/api/weather/sessions/"+sessionID+"/search", token, searchRequest{Value: "London"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("search: status %d", rr.Code)
	}
	rr = e.do(t, http.MethodPost, "/api/weather/sessions/"+sessionID+"/search/submit", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit: status %d", rr.Code)
	}
	e.waitForCity(t, token, sessionID, "london")

	rr = e.do(t, http.MethodDelete, "/api/weather/sessions/"+sessionID, token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rr.Code)
	}
	rr = e.do(t, http.MethodGet, "/api/weather/sessions/"+sessionID, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", rr.Code)
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry still holds %d sessions", e.reg.Len())
	}
}

func TestSessionOwnership(t *testing.T) {
	e := newTestEnv(t)
	owner := e.token(t, "owner@example.com")
	intruder := e.token(t, "intruder@example.com")

	rr := e.do(t, http.MethodPost, "/api/weather/sessions/", owner, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", rr.Code)
	}
	sessionID := decodeSession(t, rr).SessionID

	rr = e.do(t, http.MethodGet, "/api/weather/sessions/"+sessionID, intruder, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign session access: status %d, want 404", rr.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/api/auth/signup", "", signupRequest{Email: "not-an-email", Password: "longenough"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad email: status %d, want 400", rr.Code)
	}
	rr = e.do(t, http.MethodPost, "/api/auth/signup", "", signupRequest{Email: "a@example.com", Password: "short"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("short password: status %d, want 400", rr.Code)
	}
}
