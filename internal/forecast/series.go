package forecast

import (
	"github.com/lox/hourlyweather/internal/models"
)

// Read returns the sample for metric at index, or 0 when the metric is absent,
// the index is out of bounds, or the provider sent null for that hour.
func Read(series *models.HourlySeries, metric models.Metric, index int) float64 {
	samples, ok := series.Samples(metric)
	if !ok || index < 0 || index >= len(samples) {
		return 0
	}
	if !samples[index].Valid {
		return 0
	}
	return samples[index].Float64
}

// inBounds reports whether index addresses a sample the provider delivered,
// null or not.
func inBounds(series *models.HourlySeries, metric models.Metric, index int) bool {
	samples, ok := series.Samples(metric)
	return ok && index >= 0 && index < len(samples)
}

// SnapshotAt reads every tracked metric at index. isDaytime selects which
// description table resolves the weather code.
func SnapshotAt(series *models.HourlySeries, index int, isDaytime bool, desc Descriptions) models.Snapshot {
	code := int(Read(series, models.MetricWeatherCode, index))
	return models.Snapshot{
		Index:         index,
		IsDaytime:     isDaytime,
		Temperature:   Read(series, models.MetricTemperature, index),
		WeatherCode:   code,
		Description:   desc.Describe(code, isDaytime),
		Condition:     string(ConditionWithTime(ConditionFromCode(code), isDaytime)),
		Pressure:      Read(series, models.MetricPressure, index),
		CloudCover:    Read(series, models.MetricCloudCover, index),
		Precipitation: Read(series, models.MetricPrecipitation, index),
		WindSpeed:     Read(series, models.MetricWindSpeed, index),
	}
}
