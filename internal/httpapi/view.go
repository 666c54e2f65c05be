package httpapi

import (
	"math"
	"time"

	"github.com/waveafterwave69/weather-app/internal/dashboard"
	"github.com/waveafterwave69/weather-app/internal/forecast"
	"github.com/waveafterwave69/weather-app/internal/models"
)

// View is the rendered dashboard state returned to clients. Derived
// fields (daily cards, hourly rows, wind direction, icon hints) are
// recomputed from the snapshot on every render.
type View struct {
	SearchValue string `json:"search_value"`

	Loading         bool `json:"loading"`
	LocationLoading bool `json:"location_loading"`
	ForecastLoading bool `json:"forecast_loading"`

	Error          string `json:"error,omitempty"`
	ForecastError  string `json:"forecast_error,omitempty"`
	LocationError  string `json:"location_error,omitempty"`
	LocationDenied bool   `json:"location_denied"`

	UserLocation *models.Coordinates `json:"user_location,omitempty"`
	Current      *CurrentView        `json:"current,omitempty"`
	Daily        []ForecastCard      `json:"daily,omitempty"`
	Hourly       []HourlyRow         `json:"hourly,omitempty"`
}

type CurrentView struct {
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Temp          int     `json:"temp"`
	FeelsLike     int     `json:"feels_like"`
	TempMin       int     `json:"temp_min"`
	TempMax       int     `json:"temp_max"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
	IconColor     string  `json:"icon_color"`
	Humidity      int     `json:"humidity"`
	Pressure      int     `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection string  `json:"wind_direction"`
	VisibilityKM  float64 `json:"visibility_km"`
	Sunrise       string  `json:"sunrise"`
	Sunset        string  `json:"sunset"`
}

type ForecastCard struct {
	Date        string  `json:"date"`
	Weekday     string  `json:"weekday"`
	Temp        int     `json:"temp"`
	TempMin     int     `json:"temp_min"`
	TempMax     int     `json:"temp_max"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	IconColor   string  `json:"icon_color"`
	POP         int     `json:"pop"`
	WindSpeed   float64 `json:"wind_speed"`
}

type HourlyRow struct {
	Time        string  `json:"time"`
	Temp        int     `json:"temp"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	IconColor   string  `json:"icon_color"`
	POP         int     `json:"pop"`
	WindSpeed   float64 `json:"wind_speed"`
}

func renderView(st dashboard.State, now time.Time) View {
	v := View{
		SearchValue:     st.SearchValue,
		Loading:         st.Loading,
		LocationLoading: st.LocationLoading,
		ForecastLoading: st.ForecastLoading,
		Error:           st.Err,
		ForecastError:   st.ForecastErr,
		LocationError:   st.LocationErr,
		LocationDenied:  st.LocationDenied,
		UserLocation:    st.UserLocation,
	}

	if st.Weather != nil {
		v.Current = renderCurrent(st.Weather)
	}
	if st.Forecast != nil {
		tz := st.Forecast.City.Timezone
		for _, item := range forecast.Daily(st.Forecast.List, tz) {
			v.Daily = append(v.Daily, renderCard(item, tz))
		}
		for _, item := range forecast.Hourly(st.Forecast.List, tz, now) {
			v.Hourly = append(v.Hourly, renderHour(item, tz))
		}
	}
	return v
}

func renderCurrent(w *models.CurrentWeather) *CurrentView {
	cv := &CurrentView{
		City:         w.Name,
		Country:      w.Sys.Country,
		Temp:         roundTemp(w.Main.Temp),
		FeelsLike:    roundTemp(w.Main.FeelsLike),
		TempMin:      roundTemp(w.Main.TempMin),
		TempMax:      roundTemp(w.Main.TempMax),
		Humidity:     w.Main.Humidity,
		Pressure:     w.Main.Pressure,
		WindSpeed:    w.Wind.Speed,
		VisibilityKM: float64(w.Visibility) / 1000,
		Sunrise:      forecast.FormatLocalTime(w.Sys.Sunrise, w.Timezone),
		Sunset:       forecast.FormatLocalTime(w.Sys.Sunset, w.Timezone),
	}
	cv.WindDirection = forecast.WindDirection(w.Wind.Deg)
	if len(w.Weather) > 0 {
		cv.Description = forecast.Capitalize(w.Weather[0].Description)
		cv.Icon = forecast.Icon(w.Weather[0].Icon)
		cv.IconColor = forecast.IconColor(w.Weather[0].Icon)
	}
	return cv
}

func renderCard(item models.ForecastItem, tz int64) ForecastCard {
	local := time.Unix(item.DT+tz, 0).UTC()
	card := ForecastCard{
		Date:      local.Format("2006-01-02"),
		Weekday:   local.Format("Monday"),
		Temp:      roundTemp(item.Main.Temp),
		TempMin:   roundTemp(item.Main.TempMin),
		TempMax:   roundTemp(item.Main.TempMax),
		POP:       int(math.Round(item.POP * 100)),
		WindSpeed: item.Wind.Speed,
	}
	if len(item.Weather) > 0 {
		card.Description = forecast.Capitalize(item.Weather[0].Description)
		card.Icon = forecast.Icon(item.Weather[0].Icon)
		card.IconColor = forecast.IconColor(item.Weather[0].Icon)
	}
	return card
}

func renderHour(item models.ForecastItem, tz int64) HourlyRow {
	row := HourlyRow{
		Time:      forecast.FormatLocalTime(item.DT, tz),
		Temp:      roundTemp(item.Main.Temp),
		POP:       int(math.Round(item.POP * 100)),
		WindSpeed: item.Wind.Speed,
	}
	if len(item.Weather) > 0 {
		row.Description = forecast.Capitalize(item.Weather[0].Description)
		row.Icon = forecast.Icon(item.Weather[0].Icon)
		row.IconColor = forecast.IconColor(item.Weather[0].Icon)
	}
	return row
}

func roundTemp(v float64) int {
	return int(math.Round(v))
}
