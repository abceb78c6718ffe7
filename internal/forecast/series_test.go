package forecast

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lox/hourlyweather/internal/models"
)

func samples(vals ...float64) models.Samples {
	out := make(models.Samples, len(vals))
	for i, v := range vals {
		out[i] = sql.NullFloat64{Float64: v, Valid: true}
	}
	return out
}

func newSeries(start time.Time, metrics map[models.Metric]models.Samples) *models.HourlySeries {
	return &models.HourlySeries{
		Start:    start,
		Timezone: "UTC",
		Units:    map[models.Metric]string{models.MetricTemperature: "°C"},
		Metrics:  metrics,
	}
}

var testDescriptions = Descriptions{
	Day:   CodeTable{0: "Sunny", 3: "Overcast", 61: "Slight rain"},
	Night: CodeTable{0: "Clear", 3: "Overcast", 61: "Slight rain"},
}

func TestRead(t *testing.T) {
	series := newSeries(time.Time{}, map[models.Metric]models.Samples{
		models.MetricTemperature: samples(10, 11.5, 12),
		models.MetricCloudCover:  {{Float64: 40, Valid: true}, {}, {Float64: 60, Valid: true}},
	})

	tests := []struct {
		name   string
		series *models.HourlySeries
		metric models.Metric
		index  int
		want   float64
	}{
		{"first sample", series, models.MetricTemperature, 0, 10},
		{"middle sample", series, models.MetricTemperature, 1, 11.5},
		{"last sample", series, models.MetricTemperature, 2, 12},
		{"past end", series, models.MetricTemperature, 3, 0},
		{"negative index", series, models.MetricTemperature, -1, 0},
		{"absent metric", series, models.MetricWindSpeed, 0, 0},
		{"null sample", series, models.MetricCloudCover, 1, 0},
		{"present after null", series, models.MetricCloudCover, 2, 60},
		{"nil series", nil, models.MetricTemperature, 0, 0},
		{"nil metric map", &models.HourlySeries{}, models.MetricTemperature, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Read(tt.series, tt.metric, tt.index))
		})
	}
}

func TestSnapshotAt(t *testing.T) {
	series := newSeries(time.Time{}, map[models.Metric]models.Samples{
		models.MetricTemperature:   samples(14, 18),
		models.MetricWeatherCode:   samples(0, 61),
		models.MetricPressure:      samples(1012, 1009),
		models.MetricCloudCover:    samples(5, 90),
		models.MetricPrecipitation: samples(0, 70),
		models.MetricWindSpeed:     samples(3.2, 11),
	})

	day := SnapshotAt(series, 0, true, testDescriptions)
	assert.Equal(t, models.Snapshot{
		Index:         0,
		IsDaytime:     true,
		Temperature:   14,
		WeatherCode:   0,
		Description:   "Sunny",
		Condition:     "clear_day",
		Pressure:      1012,
		CloudCover:    5,
		Precipitation: 0,
		WindSpeed:     3.2,
	}, day)

	night := SnapshotAt(series, 0, false, testDescriptions)
	assert.Equal(t, "Clear", night.Description)
	assert.Equal(t, "clear_night", night.Condition)

	rain := SnapshotAt(series, 1, false, testDescriptions)
	assert.Equal(t, "Slight rain", rain.Description)
	assert.Equal(t, "rain", rain.Condition)

	missing := SnapshotAt(series, 40, true, testDescriptions)
	assert.Equal(t, 0.0, missing.Temperature)
	assert.Equal(t, "Sunny", missing.Description, "missing code reads as 0")
}
