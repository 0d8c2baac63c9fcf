package weather

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Parse maps a timeline response body to a QueryResult. A missing days array,
// a malformed stations entry or an unparseable required datetime fails the
// whole response with an error matching ErrParse.
func Parse(body []byte) (*QueryResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed json", ErrParse)
	}
	doc := gjson.ParseBytes(body)

	var result QueryResult
	if err := decodeFields(&result, doc, "", resultFields); err != nil {
		return nil, err
	}

	days := doc.Get("days")
	if !days.IsArray() {
		return nil, fmt.Errorf("%w: missing days field", ErrParse)
	}
	elems := days.Array()
	result.Days = make([]Day, 0, len(elems))
	for i, elem := range elems {
		day, err := parseDay(elem, fmt.Sprintf("days[%d]", i))
		if err != nil {
			return nil, err
		}
		result.Days = append(result.Days, day)
	}

	stations, err := parseStations(doc.Get("stations"))
	if err != nil {
		return nil, err
	}
	result.Stations = stations

	return &result, nil
}

func parseDay(obj gjson.Result, path string) (Day, error) {
	date, err := requiredDatetime(obj, path, DateLayout)
	if err != nil {
		return Day{}, err
	}

	day := Day{Date: date}
	if err := decodeFields(&day, obj, path, dayFields); err != nil {
		return Day{}, err
	}

	day.Events, err = parseList(obj.Get("events"), path+".events", parseEvent)
	if err != nil {
		return Day{}, err
	}
	day.Hours, err = parseList(obj.Get("hours"), path+".hours", parseHour)
	if err != nil {
		return Day{}, err
	}

	return day, nil
}

func parseHour(obj gjson.Result, path string) (Hour, error) {
	field := path + ".datetime"
	v := obj.Get("datetime")
	if v.Type != gjson.String {
		return Hour{}, &DateFormatError{Field: field, Value: v.Raw, Err: errMissingField}
	}
	tod, err := ParseTimeOfDay(v.Str)
	if err != nil {
		return Hour{}, &DateFormatError{Field: field, Value: v.Str, Err: err}
	}

	hour := Hour{Time: tod}
	if err := decodeFields(&hour, obj, path, hourFields); err != nil {
		return Hour{}, err
	}
	return hour, nil
}

func parseEvent(obj gjson.Result, path string) (Event, error) {
	date, err := requiredDatetime(obj, path, DateLayout)
	if err != nil {
		return Event{}, err
	}

	event := Event{Date: date}
	if err := decodeFields(&event, obj, path, eventFields); err != nil {
		return Event{}, err
	}
	return event, nil
}

// parseList maps a nested record array. Null or missing yields nil.
func parseList[R any](v gjson.Result, path string, parse func(gjson.Result, string) (R, error)) ([]R, error) {
	if v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s is not an array", ErrParse, path)
	}
	elems := v.Array()
	out := make([]R, 0, len(elems))
	for i, elem := range elems {
		rec, err := parse(elem, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseStations(v gjson.Result) (map[string]Station, error) {
	stations := map[string]Station{}
	if v.Type == gjson.Null {
		return stations, nil
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("%w: invalid stations field format", ErrParse)
	}

	var err error
	v.ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		if !value.IsObject() {
			err = fmt.Errorf("%w: invalid stations field format: %q is not an object", ErrParse, id)
			return false
		}
		var station Station
		if err = decodeFields(&station, value, "stations."+id, stationFields); err != nil {
			return false
		}
		stations[id] = station
		return true
	})
	if err != nil {
		return nil, err
	}
	return stations, nil
}

func requiredDatetime(obj gjson.Result, path, layout string) (time.Time, error) {
	field := path + ".datetime"
	v := obj.Get("datetime")
	if v.Type != gjson.String {
		return time.Time{}, &DateFormatError{Field: field, Value: v.Raw, Err: errMissingField}
	}
	t, err := time.Parse(layout, v.Str)
	if err != nil {
		return time.Time{}, &DateFormatError{Field: field, Value: v.Str, Err: err}
	}
	return t, nil
}

// ParseDay maps a single daily record such as one produced by Day.MarshalJSON.
func ParseDay(body []byte) (Day, error) {
	if !gjson.ValidBytes(body) {
		return Day{}, fmt.Errorf("%w: malformed json", ErrParse)
	}
	obj := gjson.ParseBytes(body)
	if !obj.IsObject() {
		return Day{}, fmt.Errorf("%w: day record is not an object", ErrParse)
	}
	return parseDay(obj, "day")
}
