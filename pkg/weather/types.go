package weather

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

const (
	// DateLayout is the calendar-date format used by day and event records.
	DateLayout = "2006-01-02"
	// TimeOfDayLayout is the format of an hourly record's datetime.
	TimeOfDayLayout = "15:04:05"
)

// NullStrings is a string list that may be absent. A present list may be empty.
type NullStrings struct {
	Strings []string
	Valid   bool
}

// Value stores the list as JSON text so archived rows keep the absent/empty distinction.
func (n NullStrings) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	list := n.Strings
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (n *NullStrings) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*n = NullStrings{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan NullStrings: unsupported type %T", src)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("scan NullStrings: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	*n = NullStrings{Strings: list, Valid: true}
	return nil
}

func (n NullStrings) clone() NullStrings {
	if !n.Valid {
		return NullStrings{}
	}
	return NullStrings{Strings: slices.Clone(n.Strings), Valid: true}
}

// TimeOfDay is a wall-clock time without a date, as reported for hourly records.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On returns the instant this time of day falls on for the given calendar date.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, t.Second, 0, loc)
}

// Station is a weather-observing station contributing to a location's data.
type Station struct {
	Distance     sql.NullFloat64
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64
	UseCount     sql.NullInt64
	ID           sql.NullString
	Name         sql.NullString
	Quality      sql.NullInt64
	Contribution sql.NullFloat64
}

// Event is a discrete historical weather event such as hail or a tornado.
type Event struct {
	Date          time.Time
	DatetimeEpoch sql.NullInt64
	Type          sql.NullString
	Latitude      sql.NullFloat64
	Longitude     sql.NullFloat64
	Distance      sql.NullFloat64
	Description   sql.NullString
	Size          sql.NullFloat64
}

// Hour is one hour of observations or forecast within a Day.
type Hour struct {
	Time           TimeOfDay
	DatetimeEpoch  sql.NullInt64
	Temp           sql.NullFloat64
	FeelsLike      sql.NullFloat64
	Humidity       sql.NullFloat64
	Dew            sql.NullFloat64
	Precip         sql.NullFloat64
	PrecipProb     sql.NullFloat64
	Snow           sql.NullFloat64
	SnowDepth      sql.NullFloat64
	PrecipType     NullStrings
	WindGust       sql.NullFloat64
	WindSpeed      sql.NullFloat64
	WindDir        sql.NullFloat64
	Pressure       sql.NullFloat64
	Visibility     sql.NullFloat64
	CloudCover     sql.NullFloat64
	SolarRadiation sql.NullFloat64
	SolarEnergy    sql.NullFloat64
	UVIndex        sql.NullFloat64
	SevereRisk     sql.NullFloat64
	Conditions     sql.NullString
	Icon           sql.NullString
	Stations       NullStrings
	Source         sql.NullString
}

func (h Hour) clone() Hour {
	h.PrecipType = h.PrecipType.clone()
	h.Stations = h.Stations.clone()
	return h
}

// Day is one calendar day of weather at a location. Hours and Events are nil
// when the response did not include them.
type Day struct {
	Date           time.Time
	DatetimeEpoch  sql.NullInt64
	TempMax        sql.NullFloat64
	TempMin        sql.NullFloat64
	Temp           sql.NullFloat64
	FeelsLikeMax   sql.NullFloat64
	FeelsLikeMin   sql.NullFloat64
	FeelsLike      sql.NullFloat64
	Dew            sql.NullFloat64
	Humidity       sql.NullFloat64
	Precip         sql.NullFloat64
	PrecipProb     sql.NullFloat64
	PrecipCover    sql.NullFloat64
	PrecipType     NullStrings
	Snow           sql.NullFloat64
	SnowDepth      sql.NullFloat64
	WindGust       sql.NullFloat64
	WindSpeed      sql.NullFloat64
	WindDir        sql.NullFloat64
	Pressure       sql.NullFloat64
	CloudCover     sql.NullFloat64
	Visibility     sql.NullFloat64
	SolarRadiation sql.NullFloat64
	SolarEnergy    sql.NullFloat64
	UVIndex        sql.NullFloat64
	SevereRisk     sql.NullFloat64
	Sunrise        sql.NullString
	SunriseEpoch   sql.NullInt64
	Sunset         sql.NullString
	SunsetEpoch    sql.NullInt64
	MoonPhase      sql.NullFloat64
	Conditions     sql.NullString
	Description    sql.NullString
	Icon           sql.NullString
	Stations       NullStrings
	Source         sql.NullString
	Hours          []Hour
	Events         []Event
}

func (d Day) clone() Day {
	d.PrecipType = d.PrecipType.clone()
	d.Stations = d.Stations.clone()
	if d.Hours != nil {
		hours := make([]Hour, len(d.Hours))
		for i, h := range d.Hours {
			hours[i] = h.clone()
		}
		d.Hours = hours
	}
	d.Events = slices.Clone(d.Events)
	return d
}

// QueryResult is the deserialized outcome of one timeline request.
type QueryResult struct {
	QueryCost       sql.NullInt64
	Latitude        sql.NullFloat64
	Longitude       sql.NullFloat64
	ResolvedAddress sql.NullString
	Address         sql.NullString
	Timezone        sql.NullString
	TZOffset        sql.NullFloat64
	Days            []Day
	Stations        map[string]Station
}

// Location resolves the result's timezone, falling back to the reported
// offset and then to UTC.
func (r *QueryResult) Location() *time.Location {
	if r.Timezone.Valid {
		if loc, err := time.LoadLocation(r.Timezone.String); err == nil {
			return loc
		}
	}
	if r.TZOffset.Valid {
		name := r.Timezone.String
		if name == "" {
			name = fmt.Sprintf("UTC%+g", r.TZOffset.Float64)
		}
		return time.FixedZone(name, int(r.TZOffset.Float64*3600))
	}
	return time.UTC
}

func (r *QueryResult) clone() QueryResult {
	out := *r
	if r.Days != nil {
		out.Days = make([]Day, len(r.Days))
		for i, d := range r.Days {
			out.Days[i] = d.clone()
		}
	}
	out.Stations = maps.Clone(r.Stations)
	if out.Stations == nil {
		out.Stations = map[string]Station{}
	}
	return out
}
