package forecast

import (
	"github.com/lox/hourlyweather/internal/models"
)

// Split partitions metric at nowIndex into the observed prefix [0, nowIndex]
// and horizon predicted hours after it. When the provider has fewer than
// horizon future samples the remainder is extrapolated as
// actual[last] + slope*k, k = 1..missing, where slope is the last
// first-difference of the actual values. With fewer than two actual values
// the remainder repeats actual[last].
//
// len(Actual)+len(Predicted) is always nowIndex+1+horizon.
func Split(series *models.HourlySeries, metric models.Metric, nowIndex, horizon int) models.ForecastWindow {
	if nowIndex < 0 {
		nowIndex = 0
	}
	if horizon < 0 {
		horizon = 0
	}

	window := models.ForecastWindow{
		Metric:    metric,
		Unit:      series.Unit(metric),
		Actual:    make([]float64, nowIndex+1),
		Predicted: make([]float64, 0, horizon),
	}

	samples, ok := series.Samples(metric)
	if !ok || len(samples) == 0 {
		window.Predicted = window.Predicted[:horizon]
		return window
	}

	for i := range window.Actual {
		window.Actual[i] = Read(series, metric, i)
	}

	for i := nowIndex + 1; i <= nowIndex+horizon; i++ {
		if !inBounds(series, metric, i) {
			break
		}
		window.Predicted = append(window.Predicted, Read(series, metric, i))
	}

	missing := horizon - len(window.Predicted)
	if missing == 0 {
		return window
	}

	// The synthesized tail is anchored on the last actual value even when
	// the provider delivered some future hours.
	last := window.Actual[len(window.Actual)-1]

	var slope float64
	if n := len(window.Actual); n >= 2 {
		slope = window.Actual[n-1] - window.Actual[n-2]
	}

	for k := 1; k <= missing; k++ {
		window.Predicted = append(window.Predicted, last+slope*float64(k))
	}
	return window
}

// Windows splits every chart metric at nowIndex.
func Windows(series *models.HourlySeries, nowIndex, horizon int) map[models.Metric]models.ForecastWindow {
	out := make(map[models.Metric]models.ForecastWindow, len(models.ChartMetrics))
	for _, m := range models.ChartMetrics {
		out[m] = Split(series, m, nowIndex, horizon)
	}
	return out
}
