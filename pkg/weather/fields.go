package weather

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// field maps one JSON key of a record. Scalar fields never fail to decode: a
// missing, null or mistyped value leaves the field absent.
type field[R any] struct {
	key    string
	decode func(r *R, obj gjson.Result, path string) error
	encode func(r *R, out map[string]any)
	reset  func(r *R)
}

func decodeFields[R any](r *R, obj gjson.Result, path string, fields []field[R]) error {
	for _, f := range fields {
		if err := f.decode(r, obj, path); err != nil {
			return err
		}
	}
	return nil
}

func encodeFields[R any](r *R, out map[string]any, fields []field[R]) {
	for _, f := range fields {
		f.encode(r, out)
	}
}

// nullFloat treats numbers that overflow float64 as absent.
func nullFloat(v gjson.Result) sql.NullFloat64 {
	if v.Type != gjson.Number || math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.Num, Valid: true}
}

// nullInt accepts integral numbers within int64 only; 1.5 and 1e19 read as
// absent.
func nullInt(v gjson.Result) sql.NullInt64 {
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return sql.NullInt64{}
	}
	if v.Num < math.MinInt64 || v.Num >= math.MaxInt64 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v.Int(), Valid: true}
}

func nullString(v gjson.Result) sql.NullString {
	if v.Type != gjson.String {
		return sql.NullString{}
	}
	return sql.NullString{String: v.Str, Valid: true}
}

// nullStringList decodes a present array element-wise. Unlike scalars, a
// present value that is not an array of strings is a structural error.
func nullStringList(v gjson.Result, path string) (NullStrings, error) {
	if v.Type == gjson.Null {
		return NullStrings{}, nil
	}
	if !v.IsArray() {
		return NullStrings{}, fmt.Errorf("%w: %s is not an array", ErrParse, path)
	}
	elems := v.Array()
	list := make([]string, 0, len(elems))
	for i, e := range elems {
		if e.Type != gjson.String {
			return NullStrings{}, fmt.Errorf("%w: %s[%d] is not a string", ErrParse, path, i)
		}
		list = append(list, e.Str)
	}
	return NullStrings{Strings: list, Valid: true}, nil
}

func floatField[R any](key string, p func(*R) *sql.NullFloat64) field[R] {
	return field[R]{
		key: key,
		decode: func(r *R, obj gjson.Result, _ string) error {
			*p(r) = nullFloat(obj.Get(key))
			return nil
		},
		encode: func(r *R, out map[string]any) {
			if v := *p(r); v.Valid {
				out[key] = v.Float64
			}
		},
		reset: func(r *R) { *p(r) = sql.NullFloat64{} },
	}
}

func intField[R any](key string, p func(*R) *sql.NullInt64) field[R] {
	return field[R]{
		key: key,
		decode: func(r *R, obj gjson.Result, _ string) error {
			*p(r) = nullInt(obj.Get(key))
			return nil
		},
		encode: func(r *R, out map[string]any) {
			if v := *p(r); v.Valid {
				out[key] = v.Int64
			}
		},
		reset: func(r *R) { *p(r) = sql.NullInt64{} },
	}
}

func stringField[R any](key string, p func(*R) *sql.NullString) field[R] {
	return field[R]{
		key: key,
		decode: func(r *R, obj gjson.Result, _ string) error {
			*p(r) = nullString(obj.Get(key))
			return nil
		},
		encode: func(r *R, out map[string]any) {
			if v := *p(r); v.Valid {
				out[key] = v.String
			}
		},
		reset: func(r *R) { *p(r) = sql.NullString{} },
	}
}

func listField[R any](key string, p func(*R) *NullStrings) field[R] {
	return field[R]{
		key: key,
		decode: func(r *R, obj gjson.Result, path string) error {
			list, err := nullStringList(obj.Get(key), path+"."+key)
			if err != nil {
				return err
			}
			*p(r) = list
			return nil
		},
		encode: func(r *R, out map[string]any) {
			if v := *p(r); v.Valid {
				list := v.Strings
				if list == nil {
					list = []string{}
				}
				out[key] = list
			}
		},
		reset: func(r *R) { *p(r) = NullStrings{} },
	}
}

var resultFields = []field[QueryResult]{
	intField("queryCost", func(r *QueryResult) *sql.NullInt64 { return &r.QueryCost }),
	floatField("latitude", func(r *QueryResult) *sql.NullFloat64 { return &r.Latitude }),
	floatField("longitude", func(r *QueryResult) *sql.NullFloat64 { return &r.Longitude }),
	stringField("resolvedAddress", func(r *QueryResult) *sql.NullString { return &r.ResolvedAddress }),
	stringField("address", func(r *QueryResult) *sql.NullString { return &r.Address }),
	stringField("timezone", func(r *QueryResult) *sql.NullString { return &r.Timezone }),
	floatField("tzoffset", func(r *QueryResult) *sql.NullFloat64 { return &r.TZOffset }),
}

var dayFields = []field[Day]{
	intField("datetimeEpoch", func(d *Day) *sql.NullInt64 { return &d.DatetimeEpoch }),
	floatField("tempmax", func(d *Day) *sql.NullFloat64 { return &d.TempMax }),
	floatField("tempmin", func(d *Day) *sql.NullFloat64 { return &d.TempMin }),
	floatField("temp", func(d *Day) *sql.NullFloat64 { return &d.Temp }),
	floatField("feelslikemax", func(d *Day) *sql.NullFloat64 { return &d.FeelsLikeMax }),
	floatField("feelslikemin", func(d *Day) *sql.NullFloat64 { return &d.FeelsLikeMin }),
	floatField("feelslike", func(d *Day) *sql.NullFloat64 { return &d.FeelsLike }),
	floatField("dew", func(d *Day) *sql.NullFloat64 { return &d.Dew }),
	floatField("humidity", func(d *Day) *sql.NullFloat64 { return &d.Humidity }),
	floatField("precip", func(d *Day) *sql.NullFloat64 { return &d.Precip }),
	floatField("precipprob", func(d *Day) *sql.NullFloat64 { return &d.PrecipProb }),
	floatField("precipcover", func(d *Day) *sql.NullFloat64 { return &d.PrecipCover }),
	listField("preciptype", func(d *Day) *NullStrings { return &d.PrecipType }),
	floatField("snow", func(d *Day) *sql.NullFloat64 { return &d.Snow }),
	floatField("snowdepth", func(d *Day) *sql.NullFloat64 { return &d.SnowDepth }),
	floatField("windgust", func(d *Day) *sql.NullFloat64 { return &d.WindGust }),
	floatField("windspeed", func(d *Day) *sql.NullFloat64 { return &d.WindSpeed }),
	floatField("winddir", func(d *Day) *sql.NullFloat64 { return &d.WindDir }),
	floatField("pressure", func(d *Day) *sql.NullFloat64 { return &d.Pressure }),
	floatField("cloudcover", func(d *Day) *sql.NullFloat64 { return &d.CloudCover }),
	floatField("visibility", func(d *Day) *sql.NullFloat64 { return &d.Visibility }),
	floatField("solarradiation", func(d *Day) *sql.NullFloat64 { return &d.SolarRadiation }),
	floatField("solarenergy", func(d *Day) *sql.NullFloat64 { return &d.SolarEnergy }),
	floatField("uvindex", func(d *Day) *sql.NullFloat64 { return &d.UVIndex }),
	floatField("severerisk", func(d *Day) *sql.NullFloat64 { return &d.SevereRisk }),
	stringField("sunrise", func(d *Day) *sql.NullString { return &d.Sunrise }),
	intField("sunriseEpoch", func(d *Day) *sql.NullInt64 { return &d.SunriseEpoch }),
	stringField("sunset", func(d *Day) *sql.NullString { return &d.Sunset }),
	intField("sunsetEpoch", func(d *Day) *sql.NullInt64 { return &d.SunsetEpoch }),
	floatField("moonphase", func(d *Day) *sql.NullFloat64 { return &d.MoonPhase }),
	stringField("conditions", func(d *Day) *sql.NullString { return &d.Conditions }),
	stringField("description", func(d *Day) *sql.NullString { return &d.Description }),
	stringField("icon", func(d *Day) *sql.NullString { return &d.Icon }),
	listField("stations", func(d *Day) *NullStrings { return &d.Stations }),
	stringField("source", func(d *Day) *sql.NullString { return &d.Source }),
}

var hourFields = []field[Hour]{
	intField("datetimeEpoch", func(h *Hour) *sql.NullInt64 { return &h.DatetimeEpoch }),
	floatField("temp", func(h *Hour) *sql.NullFloat64 { return &h.Temp }),
	floatField("feelslike", func(h *Hour) *sql.NullFloat64 { return &h.FeelsLike }),
	floatField("humidity", func(h *Hour) *sql.NullFloat64 { return &h.Humidity }),
	floatField("dew", func(h *Hour) *sql.NullFloat64 { return &h.Dew }),
	floatField("precip", func(h *Hour) *sql.NullFloat64 { return &h.Precip }),
	floatField("precipprob", func(h *Hour) *sql.NullFloat64 { return &h.PrecipProb }),
	floatField("snow", func(h *Hour) *sql.NullFloat64 { return &h.Snow }),
	floatField("snowdepth", func(h *Hour) *sql.NullFloat64 { return &h.SnowDepth }),
	listField("preciptype", func(h *Hour) *NullStrings { return &h.PrecipType }),
	floatField("windgust", func(h *Hour) *sql.NullFloat64 { return &h.WindGust }),
	floatField("windspeed", func(h *Hour) *sql.NullFloat64 { return &h.WindSpeed }),
	floatField("winddir", func(h *Hour) *sql.NullFloat64 { return &h.WindDir }),
	floatField("pressure", func(h *Hour) *sql.NullFloat64 { return &h.Pressure }),
	floatField("visibility", func(h *Hour) *sql.NullFloat64 { return &h.Visibility }),
	floatField("cloudcover", func(h *Hour) *sql.NullFloat64 { return &h.CloudCover }),
	floatField("solarradiation", func(h *Hour) *sql.NullFloat64 { return &h.SolarRadiation }),
	floatField("solarenergy", func(h *Hour) *sql.NullFloat64 { return &h.SolarEnergy }),
	floatField("uvindex", func(h *Hour) *sql.NullFloat64 { return &h.UVIndex }),
	floatField("severerisk", func(h *Hour) *sql.NullFloat64 { return &h.SevereRisk }),
	stringField("conditions", func(h *Hour) *sql.NullString { return &h.Conditions }),
	stringField("icon", func(h *Hour) *sql.NullString { return &h.Icon }),
	listField("stations", func(h *Hour) *NullStrings { return &h.Stations }),
	stringField("source", func(h *Hour) *sql.NullString { return &h.Source }),
}

var eventFields = []field[Event]{
	intField("datetimeEpoch", func(e *Event) *sql.NullInt64 { return &e.DatetimeEpoch }),
	stringField("type", func(e *Event) *sql.NullString { return &e.Type }),
	floatField("latitude", func(e *Event) *sql.NullFloat64 { return &e.Latitude }),
	floatField("longitude", func(e *Event) *sql.NullFloat64 { return &e.Longitude }),
	floatField("distance", func(e *Event) *sql.NullFloat64 { return &e.Distance }),
	{
		// The service emits "desc"; older payloads used "description".
		key: "desc",
		decode: func(e *Event, obj gjson.Result, _ string) error {
			e.Description = nullString(obj.Get("desc"))
			if !e.Description.Valid {
				e.Description = nullString(obj.Get("description"))
			}
			return nil
		},
		encode: func(e *Event, out map[string]any) {
			if e.Description.Valid {
				out["desc"] = e.Description.String
			}
		},
		reset: func(e *Event) { e.Description = sql.NullString{} },
	},
	floatField("size", func(e *Event) *sql.NullFloat64 { return &e.Size }),
}

var stationFields = []field[Station]{
	floatField("distance", func(s *Station) *sql.NullFloat64 { return &s.Distance }),
	floatField("latitude", func(s *Station) *sql.NullFloat64 { return &s.Latitude }),
	floatField("longitude", func(s *Station) *sql.NullFloat64 { return &s.Longitude }),
	intField("useCount", func(s *Station) *sql.NullInt64 { return &s.UseCount }),
	stringField("id", func(s *Station) *sql.NullString { return &s.ID }),
	stringField("name", func(s *Station) *sql.NullString { return &s.Name }),
	intField("quality", func(s *Station) *sql.NullInt64 { return &s.Quality }),
	floatField("contribution", func(s *Station) *sql.NullFloat64 { return &s.Contribution }),
}
