package forecast

import (
	"time"

	"github.com/lox/hourlyweather/internal/models"
)

// Sample hours within each 24-hour block of the series.
const (
	dayHour   = 12
	nightHour = 0
)

// Current returns the snapshot for the hour containing now in loc.
func Current(series *models.HourlySeries, now time.Time, loc *time.Location, desc Descriptions) models.Snapshot {
	idx := HourIndex(series, now, loc)
	return SnapshotAt(series, idx, IsDaytime(now.In(loc).Hour()), desc)
}

// BuildWeek returns dayCount records starting at today in loc. Each record
// samples local noon as its day snapshot and local midnight as its night
// snapshot. Days past the end of the series read as zero.
func BuildWeek(series *models.HourlySeries, loc *time.Location, now time.Time, dayCount int, desc Descriptions) []models.DailyRecord {
	if dayCount <= 0 {
		return []models.DailyRecord{}
	}

	offset := dayOffset(series, now, loc)
	records := make([]models.DailyRecord, 0, dayCount)
	for i := 0; i < dayCount; i++ {
		date := LocalDay(now, loc, i)
		base := (offset + i) * 24

		records = append(records, models.DailyRecord{
			Date:    date,
			Weekday: date.Weekday().String(),
			Day:     SnapshotAt(series, base+dayHour, true, desc),
			Night:   SnapshotAt(series, base+nightHour, false, desc),
		})
	}
	return records
}
