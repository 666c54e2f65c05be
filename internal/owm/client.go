package owm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/waveafterwave69/weather-app/internal/models"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// The 5-day/3-hour forecast returns at most 40 samples.
	forecastCount = 40
)

// Client issues parameterized GET requests against the OpenWeatherMap
// /data/2.5 endpoints. Every request uses metric units and a fixed
// response language. No retries and no caching: each call hits the
// network exactly once and surfaces its classified failure to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	lang       string
	httpClient *http.Client
}

func New(baseURL, apiKey, lang string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if lang == "" {
		lang = "en"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		lang:    lang,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CurrentByCity(ctx context.Context, city string) (models.CurrentWeather, error) {
	var out models.CurrentWeather
	params := c.params()
	params.Set("q", city)
	if err := c.get(ctx, "/weather", params, opCurrent, &out); err != nil {
		return models.CurrentWeather{}, err
	}
	return out, nil
}

func (c *Client) CurrentByCoords(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	var out models.CurrentWeather
	params := c.params()
	setCoords(params, lat, lon)
	if err := c.get(ctx, "/weather", params, opCurrent, &out); err != nil {
		return models.CurrentWeather{}, err
	}
	return out, nil
}

func (c *Client) ForecastByCity(ctx context.Context, city string) (models.WeeklyForecast, error) {
	var out models.WeeklyForecast
	params := c.params()
	params.Set("q", city)
	params.Set("cnt", strconv.Itoa(forecastCount))
	if err := c.get(ctx, "/forecast", params, opForecast, &out); err != nil {
		return models.WeeklyForecast{}, err
	}
	return out, nil
}

func (c *Client) ForecastByCoords(ctx context.Context, lat, lon float64) (models.WeeklyForecast, error) {
	var out models.WeeklyForecast
	params := c.params()
	setCoords(params, lat, lon)
	params.Set("cnt", strconv.Itoa(forecastCount))
	if err := c.get(ctx, "/forecast", params, opForecast, &out); err != nil {
		return models.WeeklyForecast{}, err
	}
	return out, nil
}

type operation int

const (
	opCurrent operation = iota
	opForecast
)

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	params.Set("lang", c.lang)
	return params
}

func setCoords(params url.Values, lat, lon float64) {
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
}

func (c *Client) get(ctx context.Context, path string, params url.Values, op operation, v any) error {
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "network error", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, op)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &Error{Kind: KindNetwork, Message: "network error", Err: err}
	}
	return nil
}

// classifyStatus maps an HTTP status to a domain error. The mapping is
// the same for every operation; only the not-found wording differs
// between the current-weather and forecast variants.
func classifyStatus(status int, op operation) *Error {
	switch status {
	case http.StatusNotFound:
		msg := "city not found"
		if op == opForecast {
			msg = "city not found, check the spelling"
		}
		return &Error{Kind: KindNotFound, Message: msg, Status: status}
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Message: "invalid API key", Status: status}
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Message: "too many requests, try again later", Status: status}
	case http.StatusBadRequest:
		return &Error{Kind: KindBadRequest, Message: "invalid coordinates", Status: status}
	default:
		return &Error{
			Kind:    KindNetwork,
			Message: "network error",
			Status:  status,
			Err:     fmt.Errorf("API returned status %d", status),
		}
	}
}
