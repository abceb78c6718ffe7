package forecast

import (
	"log"
	"time"
	_ "time/tzdata"

	"github.com/lox/hourlyweather/internal/models"
)

// FallbackTimezone is used when a place has no zone or the zone is unknown.
const FallbackTimezone = "GMT"

// LoadZone resolves an IANA zone name, falling back to GMT.
func LoadZone(name string) *time.Location {
	if name == "" {
		name = FallbackTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	log.Printf("forecast: unknown timezone %q, using %s: %v", name, FallbackTimezone, err)
	if loc, err := time.LoadLocation(FallbackTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// SeriesZone resolves the zone a series is indexed in. A known IANA name wins;
// an unknown name becomes a fixed zone at the provider's UTC offset; a series
// without a zone name uses fallback via LoadZone.
func SeriesZone(series *models.HourlySeries, fallback string) *time.Location {
	if series != nil {
		if series.Timezone != "" {
			if loc, err := time.LoadLocation(series.Timezone); err == nil {
				return loc
			}
			return time.FixedZone(series.Timezone, series.UTCOffset)
		}
		if series.UTCOffset != 0 {
			return time.FixedZone("", series.UTCOffset)
		}
	}
	return LoadZone(fallback)
}

// LocalDay returns midnight of the calendar day containing t in loc, offset
// by days. Calendar arithmetic happens in loc so the caller's own zone never
// decides which day it is.
func LocalDay(t time.Time, loc *time.Location, days int) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, loc)
}

// DaysBetween counts whole calendar days from a to b, ignoring time of day
// and DST length changes.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// dayOffset is the number of calendar days between the series start and
// "today" in loc. Series without a known start are assumed to begin today.
func dayOffset(series *models.HourlySeries, now time.Time, loc *time.Location) int {
	if series == nil || series.Start.IsZero() {
		return 0
	}
	return DaysBetween(series.Start.In(loc), now.In(loc))
}

// HourIndex maps the wall-clock instant now onto the series: whole days
// elapsed since the series start times 24, plus the local hour-of-day.
func HourIndex(series *models.HourlySeries, now time.Time, loc *time.Location) int {
	return dayOffset(series, now, loc)*24 + now.In(loc).Hour()
}
