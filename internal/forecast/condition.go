package forecast

import (
	"fmt"
)

// WeatherCondition is a coarse weather category used for icons and theming.
type WeatherCondition string

const (
	ConditionClear        WeatherCondition = "clear"
	ConditionPartlyCloudy WeatherCondition = "partly_cloudy"
	ConditionOvercast     WeatherCondition = "overcast"
	ConditionFog          WeatherCondition = "fog"
	ConditionDrizzle      WeatherCondition = "drizzle"
	ConditionRain         WeatherCondition = "rain"
	ConditionHeavyRain    WeatherCondition = "heavy_rain"
	ConditionSnow         WeatherCondition = "snow"
	ConditionStorm        WeatherCondition = "storm"
	ConditionUnknown      WeatherCondition = "unknown"
)

// TimeOfDay is the lighting period a condition is shown for.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeNight TimeOfDay = "night"
)

// ConditionFromCode buckets a WMO weather code.
func ConditionFromCode(code int) WeatherCondition {
	switch {
	case code == 0 || code == 1:
		return ConditionClear
	case code == 2:
		return ConditionPartlyCloudy
	case code == 3:
		return ConditionOvercast
	case code == 45 || code == 48:
		return ConditionFog
	case code >= 51 && code <= 57:
		return ConditionDrizzle
	case code == 65 || code == 67 || code == 82:
		return ConditionHeavyRain
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95 && code <= 99:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}

// ConditionWithTime combines a condition with day/night, e.g. "clear_night".
// Conditions that look the same day and night are returned unchanged.
func ConditionWithTime(condition WeatherCondition, isDaytime bool) WeatherCondition {
	switch condition {
	case ConditionClear, ConditionPartlyCloudy:
		tod := TimeNight
		if isDaytime {
			tod = TimeDay
		}
		return WeatherCondition(fmt.Sprintf("%s_%s", condition, tod))
	default:
		return condition
	}
}
