package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/hourlyweather/internal/models"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

// hourlyRamp returns a series of days*24 hours where every metric's value
// encodes its own index, so tests can see exactly which hour was read.
func hourlyRamp(start time.Time, days int) *models.HourlySeries {
	n := days * 24
	vals := make([]float64, n)
	codes := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i)
		codes[i] = 3
	}
	return newSeries(start, map[models.Metric]models.Samples{
		models.MetricTemperature:   samples(vals...),
		models.MetricWeatherCode:   samples(codes...),
		models.MetricPressure:      samples(vals...),
		models.MetricCloudCover:    samples(vals...),
		models.MetricPrecipitation: samples(vals...),
		models.MetricWindSpeed:     samples(vals...),
	})
}

func TestBuildWeek(t *testing.T) {
	loc := mustZone(t, "Europe/Warsaw")
	start := time.Date(2026, 3, 24, 0, 0, 0, 0, loc)
	now := time.Date(2026, 3, 24, 15, 30, 0, 0, loc)
	series := hourlyRamp(start, 16)

	week := BuildWeek(series, loc, now, 7, testDescriptions)
	require.Len(t, week, 7)

	for i, rec := range week {
		assert.Equal(t, i*24+12, rec.Day.Index)
		assert.Equal(t, float64(i*24+12), rec.Day.Temperature)
		assert.Equal(t, i*24, rec.Night.Index)
		assert.Equal(t, float64(i*24), rec.Night.WindSpeed)
		assert.True(t, rec.Day.IsDaytime)
		assert.False(t, rec.Night.IsDaytime)
		assert.Equal(t, "Overcast", rec.Day.Description)
		assert.Equal(t, rec.Date.Weekday().String(), rec.Weekday)

		assert.Equal(t, loc, rec.Date.Location())
		assert.Equal(t, 0, rec.Date.Hour())
		if i > 0 {
			prev := week[i-1].Date
			assert.True(t, rec.Date.After(prev))
			assert.Equal(t, 1, DaysBetween(prev, rec.Date))
		}
	}

	// The spring DST change in Warsaw falls inside this week.
	assert.Equal(t, time.Date(2026, 3, 30, 0, 0, 0, 0, loc), week[6].Date)
}

func TestBuildWeek_EvaluatesTodayInTargetZone(t *testing.T) {
	// 23:30 UTC on the 17th is already the 18th in Auckland.
	auckland := mustZone(t, "Pacific/Auckland")
	now := time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC)

	week := BuildWeek(hourlyRamp(time.Time{}, 7), auckland, now, 7, testDescriptions)
	require.Len(t, week, 7)
	y, m, d := week[0].Date.Date()
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.October, m)
	assert.Equal(t, 18, d)

	// And still the 17th in Los Angeles.
	la := mustZone(t, "America/Los_Angeles")
	week = BuildWeek(hourlyRamp(time.Time{}, 7), la, now, 7, testDescriptions)
	_, _, d = week[0].Date.Date()
	assert.Equal(t, 17, d)
}

func TestBuildWeek_ShortSeriesDegradesToZero(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, loc)
	series := hourlyRamp(time.Date(2026, 10, 17, 0, 0, 0, 0, loc), 3)

	week := BuildWeek(series, loc, now, 7, testDescriptions)
	require.Len(t, week, 7)
	assert.Equal(t, 60.0, week[2].Day.Temperature)
	for _, rec := range week[3:] {
		assert.Zero(t, rec.Day.Temperature)
		assert.Zero(t, rec.Night.Pressure)
		assert.Equal(t, "Sunny", rec.Day.Description)
		assert.Equal(t, "Clear", rec.Night.Description)
	}
}

func TestBuildWeek_SeriesStartedYesterday(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 10, 16, 0, 0, 0, 0, loc)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, loc)

	week := BuildWeek(hourlyRamp(start, 8), loc, now, 2, testDescriptions)
	require.Len(t, week, 2)
	assert.Equal(t, 36, week[0].Day.Index)
	assert.Equal(t, 24, week[0].Night.Index)
}

func TestBuildWeek_ZeroDays(t *testing.T) {
	week := BuildWeek(hourlyRamp(time.Time{}, 1), time.UTC, time.Now(), 0, testDescriptions)
	assert.NotNil(t, week)
	assert.Empty(t, week)
}

func TestBuildWeek_Idempotent(t *testing.T) {
	loc := mustZone(t, "Asia/Kolkata")
	now := time.Date(2026, 10, 17, 4, 0, 0, 0, time.UTC)
	series := hourlyRamp(time.Date(2026, 10, 17, 0, 0, 0, 0, loc), 7)

	assert.Equal(t,
		BuildWeek(series, loc, now, 7, testDescriptions),
		BuildWeek(series, loc, now, 7, testDescriptions))
}

func TestCurrent(t *testing.T) {
	loc := mustZone(t, "America/New_York")
	start := time.Date(2026, 10, 17, 0, 0, 0, 0, loc)
	series := hourlyRamp(start, 7)

	// 2026-10-18 21:15 New York time: one day in, hour 21.
	now := time.Date(2026, 10, 19, 1, 15, 0, 0, time.UTC)
	snap := Current(series, now, loc, testDescriptions)
	assert.Equal(t, 45, snap.Index)
	assert.Equal(t, 45.0, snap.Temperature)
	assert.False(t, snap.IsDaytime)
	assert.Equal(t, "Overcast", snap.Description)

	now = time.Date(2026, 10, 17, 13, 0, 0, 0, loc)
	snap = Current(series, now, loc, testDescriptions)
	assert.Equal(t, 13, snap.Index)
	assert.True(t, snap.IsDaytime)
}
