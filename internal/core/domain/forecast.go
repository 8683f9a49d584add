package domain

import (
	"math/rand/v2"
	"time"
)

// ForecastDays is the number of synthetic forecasts produced per request.
const ForecastDays = 5

// Temperature bounds for synthetic forecasts, in Celsius. Max is exclusive.
const (
	MinTemperatureC = -20
	MaxTemperatureC = 55
)

// Summaries are the textual descriptions picked for synthetic forecasts.
var Summaries = []string{
	"Freezing", "Bracing", "Chilly", "Cool", "Mild", "Warm", "Balmy", "Hot", "Sweltering", "Scorching",
}

// Address is a postal address returned by the address API.
type Address struct {
	City          string `json:"city"`
	StreetName    string `json:"street_name"`
	StreetAddress string `json:"street_address"`
}

// Line joins the street name and number the way forecasts display them.
func (a Address) Line() string {
	if a.StreetName == "" && a.StreetAddress == "" {
		return ""
	}
	return a.StreetName + " " + a.StreetAddress
}

// Forecast is a single day weather forecast.
type Forecast struct {
	City         string    `json:"city"`
	Address      string    `json:"address"`
	Date         time.Time `json:"date"`
	TemperatureC int       `json:"temperatureC"`
	TemperatureF int       `json:"temperatureF"`
	Summary      string    `json:"summary,omitempty"`
}

// TemperatureF converts Celsius to Fahrenheit with integer truncation.
func TemperatureF(c int) int {
	return 32 + int(float64(c)/0.5556)
}

// NewForecast builds a Forecast, deriving the Fahrenheit temperature.
func NewForecast(addr Address, date time.Time, tempC int, summary string) Forecast {
	return Forecast{
		City:         addr.City,
		Address:      addr.Line(),
		Date:         date,
		TemperatureC: tempC,
		TemperatureF: TemperatureF(tempC),
		Summary:      summary,
	}
}

// GenerateForecasts returns ForecastDays random forecasts starting the day after now.
func GenerateForecasts(now time.Time, addr Address, rnd *rand.Rand) []Forecast {
	out := make([]Forecast, 0, ForecastDays)
	for day := 1; day <= ForecastDays; day++ {
		tempC := MinTemperatureC + rnd.IntN(MaxTemperatureC-MinTemperatureC)
		summary := Summaries[rnd.IntN(len(Summaries))]
		out = append(out, NewForecast(addr, now.AddDate(0, 0, day), tempC, summary))
	}
	return out
}
