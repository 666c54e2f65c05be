// Package forecast derives the daily and hourly dashboard views from the
// flat 3-hour forecast list, plus the small formatting helpers rendered
// next to them. Everything here is a pure function of the latest
// snapshot; nothing is cached or invalidated.
package forecast

import (
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/waveafterwave69/weather-app/internal/models"
)

const (
	maxDailyEntries  = 7
	maxHourlyEntries = 8

	// The representative daily sample is the first one whose local hour
	// falls in this window.
	middayStartHour = 12
	middayEndHour   = 15
)

func localTime(ts, tzOffset int64) time.Time {
	return time.Unix(ts+tzOffset, 0).UTC()
}

// Daily keeps one midday sample per distinct calendar day, in
// chronological order, capped at 7 entries. Days without a sample in the
// midday window are omitted rather than back-filled.
func Daily(list []models.ForecastItem, tzOffset int64) []models.ForecastItem {
	daily := make([]models.ForecastItem, 0, maxDailyEntries)
	seen := make(map[string]bool)

	for _, item := range list {
		t := localTime(item.DT, tzOffset)
		if t.Hour() < middayStartHour || t.Hour() > middayEndHour {
			continue
		}
		dayKey := t.Format("2006-01-02")
		if seen[dayKey] {
			continue
		}
		seen[dayKey] = true
		daily = append(daily, item)
		if len(daily) >= maxDailyEntries {
			break
		}
	}
	return daily
}

// Hourly filters the list to the samples that fall on the same local
// calendar date as now, preserving order and capping at 8 entries.
func Hourly(list []models.ForecastItem, tzOffset int64, now time.Time) []models.ForecastItem {
	today := now.UTC().Add(time.Duration(tzOffset) * time.Second).Format("2006-01-02")

	hourly := make([]models.ForecastItem, 0, maxHourlyEntries)
	for _, item := range list {
		if localTime(item.DT, tzOffset).Format("2006-01-02") != today {
			continue
		}
		hourly = append(hourly, item)
		if len(hourly) >= maxHourlyEntries {
			break
		}
	}
	return hourly
}

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindDirection maps degrees to one of 8 compass points. The mapping is
// total and cyclic: 45-degree sectors with wraparound at 360, so 44
// stays N and 404 wraps back to N.
func WindDirection(degrees float64) string {
	sector := int(degrees/45) % 8
	if sector < 0 {
		sector += 8
	}
	return compassPoints[sector]
}

// FormatLocalTime renders a UTC timestamp as HH:MM in the location's
// local time, given its UTC offset in seconds.
func FormatLocalTime(ts, tzOffset int64) string {
	return localTime(ts, tzOffset).Format("15:04")
}

const (
	defaultIcon      = "help_outline"
	defaultIconColor = "grey"
)

var iconByCode = map[string]string{
	"01d": "wb_sunny",
	"01n": "brightness_3",
	"02d": "partly_cloudy_day",
	"02n": "partly_cloudy_night",
	"03d": "cloud",
	"03n": "cloud",
	"04d": "cloud_queue",
	"04n": "cloud_queue",
	"09d": "grain",
	"09n": "grain",
	"10d": "rainy",
	"10n": "rainy",
	"11d": "thunderstorm",
	"11n": "thunderstorm",
	"13d": "ac_unit",
	"13n": "ac_unit",
	"50d": "foggy",
	"50n": "foggy",
}

// Icon maps a provider icon code like "01d" to a semantic icon
// identifier, falling back to a neutral icon for unknown codes.
func Icon(code string) string {
	if icon, ok := iconByCode[code]; ok {
		return icon
	}
	return defaultIcon
}

// IconColor maps a provider icon code to a color category: clear skies
// are warm, clouds grey, rain blue, thunderstorms purple, snow
// blue-grey. Unknown codes stay grey.
func IconColor(code string) string {
	if len(code) < 2 {
		return defaultIconColor
	}
	switch code[:2] {
	case "01", "02":
		return "warm"
	case "03", "04":
		return "grey"
	case "09", "10":
		return "blue"
	case "11":
		return "purple"
	case "13":
		return "blue-grey"
	default:
		return defaultIconColor
	}
}

// Capitalize upper-cases the first letter of a condition description.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
