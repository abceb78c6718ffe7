package forecast

// Daylight hours are [DayStartHour, NightStartHour) local time.
const (
	DayStartHour   = 6
	NightStartHour = 18
)

// UnknownCondition is returned for weather codes missing from both tables.
const UnknownCondition = "Unknown weather condition"

// IsDaytime reports whether a local hour-of-day counts as day.
func IsDaytime(hour int) bool {
	return hour >= DayStartHour && hour < NightStartHour
}

// CodeTable maps a WMO weather code to a human description.
type CodeTable map[int]string

// Descriptions holds the day and night code tables. The tables are loaded
// from configuration and never modified after construction.
type Descriptions struct {
	Day     CodeTable
	Night   CodeTable
	Unknown string
}

// Describe resolves code using the day or night table.
func (d Descriptions) Describe(code int, isDaytime bool) string {
	table := d.Night
	if isDaytime {
		table = d.Day
	}
	if desc, ok := table[code]; ok {
		return desc
	}
	if d.Unknown != "" {
		return d.Unknown
	}
	return UnknownCondition
}
