package models

// Wire shapes for the OpenWeatherMap /data/2.5 endpoints. Decoded
// responses are treated as immutable snapshots and replaced wholesale,
// never mutated in place.

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	// Accuracy in meters, when the position came from a location
	// provider rather than the weather API.
	Accuracy float64 `json:"accuracy,omitempty"`
}

type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type MainMetrics struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
	Pressure  int     `json:"pressure"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

type Sys struct {
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

type CurrentWeather struct {
	Name       string       `json:"name"`
	Sys        Sys          `json:"sys"`
	Main       MainMetrics  `json:"main"`
	Weather    []Condition  `json:"weather"`
	Wind       Wind         `json:"wind"`
	Visibility int          `json:"visibility"`
	DT         int64        `json:"dt"`
	// Timezone is the UTC offset of the location in seconds.
	Timezone int64        `json:"timezone"`
	Coord    *Coordinates `json:"coord,omitempty"`
}

// Precipitation volume over the preceding 3 hours.
type Precipitation struct {
	ThreeHours float64 `json:"3h"`
}

type Clouds struct {
	All int `json:"all"`
}

// ForecastItem is one 3-hour-resolution sample of the 5-day forecast.
type ForecastItem struct {
	DT      int64       `json:"dt"`
	Main    MainMetrics `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    Wind        `json:"wind"`
	// POP is the probability of precipitation, 0.0 to 1.0.
	POP        float64        `json:"pop"`
	Rain       *Precipitation `json:"rain,omitempty"`
	Snow       *Precipitation `json:"snow,omitempty"`
	Clouds     Clouds         `json:"clouds"`
	Visibility int            `json:"visibility,omitempty"`
}

type ForecastCity struct {
	Name     string      `json:"name"`
	Country  string      `json:"country"`
	Timezone int64       `json:"timezone"`
	Coord    Coordinates `json:"coord"`
}

// WeeklyForecast is the 5-day/3-hour forecast: up to 40 items in
// chronological order plus city metadata. Consumers must not assume a
// fixed count.
type WeeklyForecast struct {
	List []ForecastItem `json:"list"`
	City ForecastCity   `json:"city"`
}
