package ingest

import (
	"github.com/lox/hourlyweather/internal/models"
)

const (
	FlagMetricMissing   = "metric_missing"
	FlagLengthMismatch  = "length_mismatch"
	FlagNullSamples     = "null_samples"
	FlagValueOutOfRange = "value_out_of_range"
)

// plausible bounds per metric in the provider's default units.
var metricRanges = map[models.Metric][2]float64{
	models.MetricTemperature:   {-90, 60},
	models.MetricWeatherCode:   {0, 99},
	models.MetricPressure:      {300, 1100},
	models.MetricCloudCover:    {0, 100},
	models.MetricPrecipitation: {0, 100},
	models.MetricWindSpeed:     {0, 400},
}

// ValidateSeries returns quality flags for a fetched series. Each flag
// appears at most once. An expectedHours of zero or less skips the length
// check against a fixed size and only compares metrics with each other.
func ValidateSeries(series *models.HourlySeries, expectedHours int) []string {
	var missing, mismatch, nulls, outOfRange bool

	want := expectedHours
	for _, m := range models.TrackedMetrics {
		samples, ok := series.Samples(m)
		if !ok {
			missing = true
			continue
		}
		if want <= 0 {
			want = len(samples)
		}
		if len(samples) != want {
			mismatch = true
		}
		r := metricRanges[m]
		for _, s := range samples {
			if !s.Valid {
				nulls = true
				continue
			}
			if s.Float64 < r[0] || s.Float64 > r[1] {
				outOfRange = true
			}
		}
	}

	var flags []string
	if missing {
		flags = append(flags, FlagMetricMissing)
	}
	if mismatch {
		flags = append(flags, FlagLengthMismatch)
	}
	if nulls {
		flags = append(flags, FlagNullSamples)
	}
	if outOfRange {
		flags = append(flags, FlagValueOutOfRange)
	}
	return flags
}
