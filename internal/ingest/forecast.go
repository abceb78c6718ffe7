package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lox/hourlyweather/internal/forecast"
	"github.com/lox/hourlyweather/internal/models"
)

const (
	SourceOpenMeteo     = "open-meteo"
	EndpointForecast    = "v1/forecast"
	DefaultForecastURL  = "https://api.open-meteo.com"
	DefaultForecastDays = 16
)

// ForecastClient fetches hourly series from the Open-Meteo forecast API.
type ForecastClient struct {
	baseURL string
	days    int
	fetch   *fetcher
}

func NewForecastClient(baseURL string, days int, client *http.Client) *ForecastClient {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	if days <= 0 || days > DefaultForecastDays {
		days = DefaultForecastDays
	}
	return &ForecastClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		days:    days,
		fetch:   newFetcher(SourceOpenMeteo, client),
	}
}

// Days is the number of forecast days requested per fetch.
func (f *ForecastClient) Days() int {
	return f.days
}

type forecastResponse struct {
	Latitude         float64                    `json:"latitude"`
	Longitude        float64                    `json:"longitude"`
	Timezone         string                     `json:"timezone"`
	UTCOffsetSeconds int                        `json:"utc_offset_seconds"`
	HourlyUnits      map[string]string          `json:"hourly_units"`
	Hourly           map[string]json.RawMessage `json:"hourly"`
}

const openMeteoTimeLayout = "2006-01-02T15:04"

// FetchHourly requests every tracked metric for lat/lon. An empty timezone
// lets the provider pick the zone of the coordinates. The raw body is
// returned for archiving whenever one was received.
func (f *ForecastClient) FetchHourly(ctx context.Context, lat, lon float64, timezone string) (*models.HourlySeries, string, *FetchResult, error) {
	if timezone == "" {
		timezone = "auto"
	}
	metricNames := make([]string, len(models.TrackedMetrics))
	for i, m := range models.TrackedMetrics {
		metricNames[i] = string(m)
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("hourly", strings.Join(metricNames, ","))
	q.Set("timezone", timezone)
	q.Set("forecast_days", strconv.Itoa(f.days))

	result := &FetchResult{}
	body, err := f.fetch.get(ctx, EndpointForecast, f.baseURL+"/v1/forecast?"+q.Encode(), result)
	if err != nil {
		return nil, "", result, err
	}

	requested := timezone
	if requested == "auto" {
		requested = ""
	}
	series, err := parseForecast(body, requested)
	if err != nil {
		result.Error = err
		return nil, string(body), result, err
	}
	result.Hours = series.Hours()
	return series, string(body), result, nil
}

// parseForecast decodes body, parsing times in the zone the series will be
// read in (see forecast.SeriesZone); fallback applies when the provider
// names no zone.
func parseForecast(body []byte, fallback string) (*models.HourlySeries, error) {
	var data forecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal forecast: %w", err)
	}

	series := &models.HourlySeries{
		Timezone:  data.Timezone,
		UTCOffset: data.UTCOffsetSeconds,
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
		Units:     make(map[models.Metric]string),
		Metrics:   make(map[models.Metric]models.Samples),
	}

	loc := forecast.SeriesZone(series, fallback)

	if raw, ok := data.Hourly["time"]; ok {
		var times []string
		if err := json.Unmarshal(raw, &times); err != nil {
			return nil, fmt.Errorf("unmarshal hourly time: %w", err)
		}
		if len(times) > 0 {
			start, err := time.ParseInLocation(openMeteoTimeLayout, times[0], loc)
			if err != nil {
				return nil, fmt.Errorf("parse start time %q: %w", times[0], err)
			}
			series.Start = start
		}
	}

	for _, m := range models.TrackedMetrics {
		raw, ok := data.Hourly[string(m)]
		if !ok {
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, fmt.Errorf("unmarshal hourly %s: %w", m, err)
		}
		samples := make(models.Samples, len(vals))
		for i, v := range vals {
			if v != nil {
				samples[i] = sql.NullFloat64{Float64: *v, Valid: true}
			}
		}
		series.Metrics[m] = samples
		if unit, ok := data.HourlyUnits[string(m)]; ok {
			series.Units[m] = unit
		}
	}

	return series, nil
}
