package geoloc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/waveafterwave69/weather-app/internal/models"
)

// IPProvider geolocates a client by its IP address through an
// ip-api.com compatible JSON endpoint.
type IPProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewIPProvider(baseURL string) *IPProvider {
	if baseURL == "" {
		baseURL = "http://ip-api.com/json"
	}
	return &IPProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *IPProvider) Locate(ctx context.Context, ip string) (models.Coordinates, error) {
	u := p.baseURL + "/" + url.PathEscape(ip) + "?fields=status,message,lat,lon"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Coordinates{}, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Coordinates{}, err
	}
	if result.Status != "success" {
		return models.Coordinates{}, fmt.Errorf("no fix for address: %s", result.Message)
	}

	return models.Coordinates{Lat: result.Lat, Lon: result.Lon}, nil
}
