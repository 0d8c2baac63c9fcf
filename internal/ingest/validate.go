package ingest

import (
	"database/sql"
	"encoding/json"

	"github.com/lox/vcweather/pkg/weather"
)

// Checks are unit-independent so they hold for every unitGroup.
const (
	FlagPercentInvalid    = "percent_out_of_range"
	FlagWindDirInvalid    = "wind_dir_invalid"
	FlagWindNegative      = "wind_negative"
	FlagPrecipNegative    = "precip_negative"
	FlagSnowNegative      = "snow_negative"
	FlagSolarNegative     = "solar_negative"
	FlagUVNegative        = "uv_negative"
	FlagMoonPhaseInvalid  = "moon_phase_invalid"
	FlagTempRangeInverted = "temp_range_inverted"
)

func ValidateDay(d *weather.Day) []string {
	var flags []string

	if outsidePercent(d.Humidity, d.CloudCover, d.PrecipProb, d.PrecipCover) {
		flags = append(flags, FlagPercentInvalid)
	}
	if outside(d.WindDir, 0, 360) {
		flags = append(flags, FlagWindDirInvalid)
	}
	if negative(d.WindSpeed, d.WindGust) {
		flags = append(flags, FlagWindNegative)
	}
	if negative(d.Precip) {
		flags = append(flags, FlagPrecipNegative)
	}
	if negative(d.Snow, d.SnowDepth) {
		flags = append(flags, FlagSnowNegative)
	}
	if negative(d.SolarRadiation, d.SolarEnergy) {
		flags = append(flags, FlagSolarNegative)
	}
	if negative(d.UVIndex) {
		flags = append(flags, FlagUVNegative)
	}
	if outside(d.MoonPhase, 0, 1) {
		flags = append(flags, FlagMoonPhaseInvalid)
	}
	if inverted(d.TempMin, d.TempMax) || inverted(d.FeelsLikeMin, d.FeelsLikeMax) {
		flags = append(flags, FlagTempRangeInverted)
	}

	return flags
}

func ValidateHour(h *weather.Hour) []string {
	var flags []string

	if outsidePercent(h.Humidity, h.CloudCover, h.PrecipProb) {
		flags = append(flags, FlagPercentInvalid)
	}
	if outside(h.WindDir, 0, 360) {
		flags = append(flags, FlagWindDirInvalid)
	}
	if negative(h.WindSpeed, h.WindGust) {
		flags = append(flags, FlagWindNegative)
	}
	if negative(h.Precip) {
		flags = append(flags, FlagPrecipNegative)
	}
	if negative(h.Snow, h.SnowDepth) {
		flags = append(flags, FlagSnowNegative)
	}
	if negative(h.SolarRadiation, h.SolarEnergy) {
		flags = append(flags, FlagSolarNegative)
	}
	if negative(h.UVIndex) {
		flags = append(flags, FlagUVNegative)
	}

	return flags
}

func outside(v sql.NullFloat64, lo, hi float64) bool {
	return v.Valid && (v.Float64 < lo || v.Float64 > hi)
}

func outsidePercent(vs ...sql.NullFloat64) bool {
	for _, v := range vs {
		if outside(v, 0, 100) {
			return true
		}
	}
	return false
}

func negative(vs ...sql.NullFloat64) bool {
	for _, v := range vs {
		if v.Valid && v.Float64 < 0 {
			return true
		}
	}
	return false
}

func inverted(lo, hi sql.NullFloat64) bool {
	return lo.Valid && hi.Valid && lo.Float64 > hi.Float64
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}

// QualityChecker flags archived records with the Validate checks.
type QualityChecker struct{}

func (QualityChecker) DayFlags(d *weather.Day) string {
	return QualityFlagsToJSON(ValidateDay(d))
}

func (QualityChecker) HourFlags(h *weather.Hour) string {
	return QualityFlagsToJSON(ValidateHour(h))
}
