package weather

import "encoding/json"

// The MarshalJSON methods emit the service's response shape, omitting absent
// fields, so Parse(json.Marshal(r)) reproduces r.

func (r QueryResult) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	encodeFields(&r, out, resultFields)
	days := r.Days
	if days == nil {
		days = []Day{}
	}
	out["days"] = days
	if len(r.Stations) > 0 {
		out["stations"] = r.Stations
	}
	return json.Marshal(out)
}

func (d Day) MarshalJSON() ([]byte, error) {
	out := map[string]any{"datetime": d.Date.Format(DateLayout)}
	encodeFields(&d, out, dayFields)
	if d.Hours != nil {
		out["hours"] = d.Hours
	}
	if d.Events != nil {
		out["events"] = d.Events
	}
	return json.Marshal(out)
}

func (h Hour) MarshalJSON() ([]byte, error) {
	out := map[string]any{"datetime": h.Time.String()}
	encodeFields(&h, out, hourFields)
	return json.Marshal(out)
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{"datetime": e.Date.Format(DateLayout)}
	encodeFields(&e, out, eventFields)
	return json.Marshal(out)
}

func (s Station) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	encodeFields(&s, out, stationFields)
	return json.Marshal(out)
}
