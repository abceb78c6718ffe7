package models

import (
	"database/sql"
	"time"
)

// Metric names an hourly variable as the forecast provider keys it.
type Metric string

const (
	MetricTemperature   Metric = "temperature_2m"
	MetricWeatherCode   Metric = "weather_code"
	MetricPressure      Metric = "surface_pressure"
	MetricCloudCover    Metric = "cloud_cover"
	MetricPrecipitation Metric = "precipitation_probability"
	MetricWindSpeed     Metric = "wind_speed_10m"
)

// TrackedMetrics lists every metric sampled into snapshots, in display order.
var TrackedMetrics = []Metric{
	MetricTemperature,
	MetricWeatherCode,
	MetricPressure,
	MetricCloudCover,
	MetricPrecipitation,
	MetricWindSpeed,
}

// ChartMetrics are the metrics offered as chart tabs. Weather codes are
// categorical and never charted.
var ChartMetrics = []Metric{
	MetricTemperature,
	MetricPrecipitation,
	MetricPressure,
	MetricCloudCover,
	MetricWindSpeed,
}

// Samples is one metric's hourly sequence. Invalid entries are provider nulls.
type Samples []sql.NullFloat64

// HourlySeries is a provider's hourly forecast starting at hour 0 of its "today".
type HourlySeries struct {
	Start     time.Time // local midnight of index 0; zero if unknown
	Timezone  string
	UTCOffset int // provider offset in seconds, used when Timezone is not a known zone
	Latitude  float64
	Longitude float64
	Units     map[Metric]string
	Metrics   map[Metric]Samples
}

// Samples returns the sequence for m and whether the provider sent it at all.
func (s *HourlySeries) Samples(m Metric) (Samples, bool) {
	if s == nil || s.Metrics == nil {
		return nil, false
	}
	samples, ok := s.Metrics[m]
	return samples, ok
}

// Hours returns the longest metric length in the series.
func (s *HourlySeries) Hours() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, samples := range s.Metrics {
		if len(samples) > n {
			n = len(samples)
		}
	}
	return n
}

// Unit returns the provider unit for m, or "" when not reported.
func (s *HourlySeries) Unit(m Metric) string {
	if s == nil || s.Units == nil {
		return ""
	}
	return s.Units[m]
}

// ForecastWindow splits one metric at "now" into observed and synthesized parts.
type ForecastWindow struct {
	Metric    Metric    `json:"metric"`
	Unit      string    `json:"unit,omitempty"`
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
}

// Snapshot holds every tracked metric at a single hour of the series.
type Snapshot struct {
	Index         int     `json:"index"`
	IsDaytime     bool    `json:"is_daytime"`
	Temperature   float64 `json:"temperature"`
	WeatherCode   int     `json:"weather_code"`
	Description   string  `json:"description"`
	Condition     string  `json:"condition"`
	Pressure      float64 `json:"surface_pressure"`
	CloudCover    float64 `json:"cloud_cover"`
	Precipitation float64 `json:"precipitation_probability"`
	WindSpeed     float64 `json:"wind_speed"`
}

// DailyRecord is one calendar day of the weekly view.
type DailyRecord struct {
	Date    time.Time `json:"date"`
	Weekday string    `json:"weekday"`
	Day     Snapshot  `json:"day"`
	Night   Snapshot  `json:"night"`
}

// Place is a geocoding candidate.
type Place struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Location is a saved place, optionally the one currently selected.
type Location struct {
	Place
	Selected  bool      `json:"selected"`
	CreatedAt time.Time `json:"created_at"`
}
