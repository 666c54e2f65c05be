// Package dashboard holds the weather orchestration store: the state
// machine driving location detection, city search, and the chained
// current-weather and forecast fetches behind the dashboard view.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waveafterwave69/weather-app/internal/geoloc"
	"github.com/waveafterwave69/weather-app/internal/models"
)

// WeatherClient is the slice of the weather API the store drives.
type WeatherClient interface {
	CurrentByCity(ctx context.Context, city string) (models.CurrentWeather, error)
	CurrentByCoords(ctx context.Context, lat, lon float64) (models.CurrentWeather, error)
	ForecastByCity(ctx context.Context, city string) (models.WeeklyForecast, error)
	ForecastByCoords(ctx context.Context, lat, lon float64) (models.WeeklyForecast, error)
}

// LocationResolver yields coordinates for a session or a classified error.
type LocationResolver interface {
	Resolve(ctx context.Context, req geoloc.Request) (models.Coordinates, error)
}

// State is one consistent snapshot of the store. The weather and
// forecast pointers reference immutable response snapshots; they are
// replaced wholesale on every successful fetch and safe to share.
type State struct {
	SearchValue  string
	Weather      *models.CurrentWeather
	Forecast     *models.WeeklyForecast
	UserLocation *models.Coordinates

	Loading         bool
	LocationLoading bool
	ForecastLoading bool

	Err            string
	ForecastErr    string
	LocationErr    string
	LocationDenied bool
}

type Options struct {
	// DefaultCity is fetched when location detection fails during the
	// first activation.
	DefaultCity string
	// Debounce is the quiet window applied to search input changes.
	Debounce time.Duration
	Logger   *slog.Logger
	// OnChange, when set, receives a snapshot after every transition.
	OnChange func(State)
}

const (
	defaultCity     = "Moscow"
	defaultDebounce = 500 * time.Millisecond
)

// Store is created per dashboard session and torn down with Close. All
// mutations happen under one mutex; network calls never hold it.
type Store struct {
	weather  WeatherClient
	resolver LocationResolver
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc

	// chain numbers each primary weather fetch. A completion whose
	// token is no longer the latest is discarded, so a slow stale
	// response can never overwrite a fresher one.
	chain atomic.Uint64

	mu          sync.Mutex
	state       State
	initialLoad bool
	debounce    *time.Timer
	closed      bool
}

func NewStore(weather WeatherClient, resolver LocationResolver, opts Options) *Store {
	if opts.DefaultCity == "" {
		opts.DefaultCity = defaultCity
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		weather:     weather,
		resolver:    resolver,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		initialLoad: true,
	}
}

// Context returns the store's lifecycle context; it is canceled by Close.
func (s *Store) Context() context.Context { return s.ctx }

// Close tears the store down: the pending debounce timer is stopped and
// any in-flight request is canceled.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()
	s.cancel()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	notify := s.opts.OnChange
	s.mu.Unlock()
	if notify != nil {
		notify(snapshot)
	}
}

// mutateIfCurrent applies fn only while token is still the latest
// chain. The check and the write share the mutex, so a completion that
// was superseded mid-flight can never slip its result in after passing
// a separate check. Reports whether the mutation was applied.
func (s *Store) mutateIfCurrent(token uint64, fn func(*State)) bool {
	s.mu.Lock()
	if s.chain.Load() != token {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	snapshot := s.state
	notify := s.opts.OnChange
	s.mu.Unlock()
	if notify != nil {
		notify(snapshot)
	}
	return true
}

// normalizeQuery trims the input, collapses internal whitespace runs,
// and lowercases it; "  New   York " becomes "new york".
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// DetectLocation runs the activation sequence: resolve the session's
// position, then fetch weather and forecast for it. On failure the
// classified message lands in the location error field; a permission
// denial additionally sets the denied flag. The default-city fallback
// runs only during the first activation, so repeated denials do not
// keep resetting the view.
func (s *Store) DetectLocation(ctx context.Context, req geoloc.Request) error {
	s.mutate(func(st *State) {
		st.LocationLoading = true
		st.LocationDenied = false
		st.LocationErr = ""
		st.Err = ""
	})

	s.mu.Lock()
	firstLoad := s.initialLoad
	s.initialLoad = false
	s.mu.Unlock()

	coords, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		denied := errors.Is(err, geoloc.ErrPermissionDenied)
		s.mutate(func(st *State) {
			st.LocationErr = err.Error()
			st.Err = err.Error()
			st.LocationDenied = denied
		})
		s.opts.Logger.Warn("location detection failed", "error", err, "first_load", firstLoad)
		if firstLoad {
			if ferr := s.FetchWeatherByCity(ctx, s.opts.DefaultCity); ferr != nil {
				s.mutate(func(st *State) { st.LocationLoading = false })
				return ferr
			}
		}
		s.mutate(func(st *State) { st.LocationLoading = false })
		return err
	}

	err = s.FetchWeatherByCoords(ctx, coords.Lat, coords.Lon)
	s.mutate(func(st *State) { st.LocationLoading = false })
	return err
}

// RetryLocation clears the denied and error flags and re-runs detection
// as a non-first activation: a second denial leaves the error visible
// instead of falling back to the default city again.
func (s *Store) RetryLocation(ctx context.Context, req geoloc.Request) error {
	s.mu.Lock()
	s.initialLoad = false
	s.mu.Unlock()
	s.mutate(func(st *State) {
		st.LocationDenied = false
		st.LocationErr = ""
		st.Err = ""
	})
	return s.DetectLocation(ctx, req)
}

// SetSearchValue records the typed input and arms the debounce timer,
// resetting rather than stacking it. Once the quiet window elapses a
// non-empty input triggers a by-city fetch; an empty input clears the
// weather and forecast state.
func (s *Store) SetSearchValue(q string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.SearchValue = q
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.opts.Debounce, func() {
		if normalizeQuery(q) == "" {
			s.clearData()
			return
		}
		if err := s.FetchWeatherByCity(s.ctx, q); err != nil {
			s.opts.Logger.Warn("debounced fetch failed", "query", q, "error", err)
		}
	})
	s.mu.Unlock()
}

// Submit fetches immediately for the current search value, bypassing
// the debounce window.
func (s *Store) Submit(ctx context.Context) error {
	s.mu.Lock()
	q := s.state.SearchValue
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()
	if normalizeQuery(q) == "" {
		return nil
	}
	return s.FetchWeatherByCity(ctx, q)
}

func (s *Store) clearData() {
	s.mutate(func(st *State) {
		st.Weather = nil
		st.Forecast = nil
		st.Err = ""
		st.ForecastErr = ""
		st.Loading = false
		st.ForecastLoading = false
	})
}

// FetchWeatherByCity fetches current weather for the normalized city
// name and, on success, the forecast for the same locus. The stored
// display name comes from the API response, not the raw input.
func (s *Store) FetchWeatherByCity(ctx context.Context, city string) error {
	city = normalizeQuery(city)
	if city == "" {
		s.clearData()
		return nil
	}

	token := s.chain.Add(1)
	s.mutate(func(st *State) {
		st.Loading = true
		st.Err = ""
		st.Weather = nil
	})

	result, err := s.weather.CurrentByCity(ctx, city)
	if err != nil {
		if !s.mutateIfCurrent(token, func(st *State) {
			st.Loading = false
			st.Err = err.Error()
			st.Weather = nil
			st.Forecast = nil
		}) {
			return nil
		}
		return err
	}

	if !s.mutateIfCurrent(token, func(st *State) {
		st.Weather = &result
		st.SearchValue = result.Name
	}) {
		return nil
	}

	ferr := s.fetchForecast(ctx, token, func(ctx context.Context) (models.WeeklyForecast, error) {
		return s.weather.ForecastByCity(ctx, city)
	})

	s.mutateIfCurrent(token, func(st *State) { st.Loading = false })
	return ferr
}

// FetchWeatherByCoords is the coordinate variant of the primary fetch;
// it additionally records the resolved position.
func (s *Store) FetchWeatherByCoords(ctx context.Context, lat, lon float64) error {
	token := s.chain.Add(1)
	s.mutate(func(st *State) {
		st.Loading = true
		st.Err = ""
		st.Weather = nil
	})

	result, err := s.weather.CurrentByCoords(ctx, lat, lon)
	if err != nil {
		if !s.mutateIfCurrent(token, func(st *State) {
			st.Loading = false
			st.Err = err.Error()
			st.Weather = nil
			st.Forecast = nil
		}) {
			return nil
		}
		return err
	}

	if !s.mutateIfCurrent(token, func(st *State) {
		st.Weather = &result
		st.SearchValue = result.Name
		st.UserLocation = &models.Coordinates{Lat: lat, Lon: lon}
	}) {
		return nil
	}

	ferr := s.fetchForecast(ctx, token, func(ctx context.Context) (models.WeeklyForecast, error) {
		return s.weather.ForecastByCoords(ctx, lat, lon)
	})

	s.mutateIfCurrent(token, func(st *State) { st.Loading = false })
	return ferr
}

// fetchForecast runs the dependent half of a fetch chain. A failure
// clears the forecast only; the weather value fetched a moment earlier
// stays on screen.
func (s *Store) fetchForecast(ctx context.Context, token uint64, fetch func(context.Context) (models.WeeklyForecast, error)) error {
	if !s.mutateIfCurrent(token, func(st *State) {
		st.ForecastLoading = true
		st.ForecastErr = ""
		st.Forecast = nil
	}) {
		return nil
	}

	result, err := fetch(ctx)
	if err != nil {
		if !s.mutateIfCurrent(token, func(st *State) {
			st.ForecastLoading = false
			st.ForecastErr = err.Error()
			st.Forecast = nil
		}) {
			return nil
		}
		return err
	}

	s.mutateIfCurrent(token, func(st *State) {
		st.ForecastLoading = false
		st.Forecast = &result
	})
	return nil
}
