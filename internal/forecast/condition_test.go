package forecast

import "testing"

func TestIsDaytime(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{0, false},
		{5, false},
		{6, true},
		{12, true},
		{17, true},
		{18, false},
		{23, false},
	}

	for _, tt := range tests {
		if got := IsDaytime(tt.hour); got != tt.want {
			t.Errorf("IsDaytime(%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		desc  Descriptions
		code  int
		isDay bool
		want  string
	}{
		{"day table", testDescriptions, 0, true, "Sunny"},
		{"night table", testDescriptions, 0, false, "Clear"},
		{"unknown code by day", testDescriptions, 999, true, UnknownCondition},
		{"unknown code by night", testDescriptions, 999, false, UnknownCondition},
		{"custom sentinel", Descriptions{Unknown: "?"}, 1, true, "?"},
		{"empty tables", Descriptions{}, 0, false, UnknownCondition},
		{"code only in day table", Descriptions{Day: CodeTable{2: "Partly cloudy"}}, 2, false, UnknownCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.Describe(tt.code, tt.isDay); got != tt.want {
				t.Errorf("Describe(%d, %v) = %q, want %q", tt.code, tt.isDay, got, tt.want)
			}
		})
	}
}

func TestConditionFromCode(t *testing.T) {
	tests := []struct {
		code int
		want WeatherCondition
	}{
		{0, ConditionClear},
		{1, ConditionClear},
		{2, ConditionPartlyCloudy},
		{3, ConditionOvercast},
		{45, ConditionFog},
		{48, ConditionFog},
		{51, ConditionDrizzle},
		{57, ConditionDrizzle},
		{61, ConditionRain},
		{63, ConditionRain},
		{65, ConditionHeavyRain},
		{66, ConditionRain},
		{67, ConditionHeavyRain},
		{80, ConditionRain},
		{82, ConditionHeavyRain},
		{71, ConditionSnow},
		{77, ConditionSnow},
		{86, ConditionSnow},
		{95, ConditionStorm},
		{99, ConditionStorm},
		{4, ConditionUnknown},
		{-1, ConditionUnknown},
		{999, ConditionUnknown},
	}

	for _, tt := range tests {
		if got := ConditionFromCode(tt.code); got != tt.want {
			t.Errorf("ConditionFromCode(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestConditionWithTime(t *testing.T) {
	tests := []struct {
		condition WeatherCondition
		isDay     bool
		want      WeatherCondition
	}{
		{ConditionClear, true, "clear_day"},
		{ConditionClear, false, "clear_night"},
		{ConditionPartlyCloudy, true, "partly_cloudy_day"},
		{ConditionPartlyCloudy, false, "partly_cloudy_night"},
		{ConditionRain, false, ConditionRain},
		{ConditionStorm, true, ConditionStorm},
	}

	for _, tt := range tests {
		if got := ConditionWithTime(tt.condition, tt.isDay); got != tt.want {
			t.Errorf("ConditionWithTime(%q, %v) = %q, want %q", tt.condition, tt.isDay, got, tt.want)
		}
	}
}
