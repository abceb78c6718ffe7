package api

import (
	"time"

	"github.com/lox/hourlyweather/internal/forecast"
	"github.com/lox/hourlyweather/internal/metrics"
	"github.com/lox/hourlyweather/internal/models"
)

type CurrentView struct {
	Location  models.Location          `json:"location"`
	Language  string                   `json:"language"`
	LocalTime time.Time                `json:"local_time"`
	Units     map[models.Metric]string `json:"units"`
	Current   models.Snapshot          `json:"current"`
}

type WeekView struct {
	Location models.Location          `json:"location"`
	Language string                   `json:"language"`
	Units    map[models.Metric]string `json:"units"`
	Days     []models.DailyRecord     `json:"days"`
}

type ChartView struct {
	Location models.Location       `json:"location"`
	NowIndex int                   `json:"now_index"`
	Horizon  int                   `json:"horizon"`
	Window   models.ForecastWindow `json:"window"`
}

// WeatherView is everything the single-page UI renders at once.
type WeatherView struct {
	Location  models.Location          `json:"location"`
	Language  string                   `json:"language"`
	LocalTime time.Time                `json:"local_time"`
	NowIndex  int                      `json:"now_index"`
	Horizon   int                      `json:"horizon"`
	Units     map[models.Metric]string `json:"units"`
	Labels    map[string]string        `json:"labels"`
	Current   models.Snapshot          `json:"current"`
	Week      []models.DailyRecord     `json:"week"`
	Charts    []models.ForecastWindow  `json:"charts"`
}

// viewContext pins one request to a series, a zone and an instant so every
// derived view agrees on "now".
type viewContext struct {
	location models.Location
	series   *models.HourlySeries
	loc      *time.Location
	now      time.Time
	lang     string
	desc     forecast.Descriptions
}

func newViewContext(location models.Location, series *models.HourlySeries, now time.Time, lang string, desc forecast.Descriptions) viewContext {
	return viewContext{
		location: location,
		series:   series,
		loc:      forecast.SeriesZone(series, location.Timezone),
		now:      now,
		lang:     lang,
		desc:     desc,
	}
}

func (v viewContext) units() map[models.Metric]string {
	units := make(map[models.Metric]string, len(models.TrackedMetrics))
	for _, m := range models.TrackedMetrics {
		if u := v.series.Unit(m); u != "" {
			units[m] = u
		}
	}
	return units
}

func (v viewContext) nowIndex() int {
	return forecast.HourIndex(v.series, v.now, v.loc)
}

func (v viewContext) current() CurrentView {
	metrics.ViewsRendered.WithLabelValues("current").Inc()
	return CurrentView{
		Location:  v.location,
		Language:  v.lang,
		LocalTime: v.now.In(v.loc),
		Units:     v.units(),
		Current:   forecast.Current(v.series, v.now, v.loc, v.desc),
	}
}

func (v viewContext) week(days int) WeekView {
	metrics.ViewsRendered.WithLabelValues("week").Inc()
	return WeekView{
		Location: v.location,
		Language: v.lang,
		Units:    v.units(),
		Days:     forecast.BuildWeek(v.series, v.loc, v.now, days, v.desc),
	}
}

func (v viewContext) chart(metric models.Metric, horizon int) ChartView {
	metrics.ViewsRendered.WithLabelValues("chart").Inc()
	now := v.nowIndex()
	return ChartView{
		Location: v.location,
		NowIndex: now,
		Horizon:  horizon,
		Window:   forecast.Split(v.series, metric, now, horizon),
	}
}

func (v viewContext) weather(days, horizon int, labels map[string]string) WeatherView {
	metrics.ViewsRendered.WithLabelValues("weather").Inc()
	now := v.nowIndex()
	windows := forecast.Windows(v.series, now, horizon)
	charts := make([]models.ForecastWindow, 0, len(models.ChartMetrics))
	for _, m := range models.ChartMetrics {
		charts = append(charts, windows[m])
	}
	return WeatherView{
		Location:  v.location,
		Language:  v.lang,
		LocalTime: v.now.In(v.loc),
		NowIndex:  now,
		Horizon:   horizon,
		Units:     v.units(),
		Labels:    labels,
		Current:   forecast.Current(v.series, v.now, v.loc, v.desc),
		Week:      forecast.BuildWeek(v.series, v.loc, v.now, days, v.desc),
		Charts:    charts,
	}
}
