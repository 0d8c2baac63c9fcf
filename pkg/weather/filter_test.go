package weather

import (
	"testing"

	"github.com/matryer/is"
)

func TestFilterDay(t *testing.T) {
	r, err := Parse(loadFixture(t))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	src := r.Days[0]

	d := FilterDay(src, "tempmax", "preciptype")
	if d.Date.Format(DateLayout) != "2020-07-10" {
		t.Errorf("Date = %v, want 2020-07-10", d.Date)
	}
	if !d.TempMax.Valid || d.TempMax.Float64 != 91.4 {
		t.Errorf("TempMax = %+v, want 91.4", d.TempMax)
	}
	if !d.PrecipType.Valid || len(d.PrecipType.Strings) != 1 {
		t.Errorf("PrecipType = %+v, want [rain]", d.PrecipType)
	}
	if d.TempMin.Valid || d.Conditions.Valid || d.DatetimeEpoch.Valid || d.Stations.Valid {
		t.Errorf("unselected fields kept: %+v", d)
	}
	if d.Hours != nil || d.Events != nil {
		t.Errorf("nested records kept without hours/events: %d hours, %d events", len(d.Hours), len(d.Events))
	}

	if !src.TempMin.Valid || len(src.Hours) != 2 {
		t.Error("FilterDay modified its input")
	}

	nested := FilterDay(src, "hours", "events")
	if len(nested.Hours) != 2 || len(nested.Events) != 1 {
		t.Errorf("got %d hours, %d events, want 2 and 1", len(nested.Hours), len(nested.Events))
	}
	if nested.TempMax.Valid {
		t.Errorf("TempMax = %+v, want absent", nested.TempMax)
	}
}

func TestFilterDay_NoElements(t *testing.T) {
	r, err := Parse(loadFixture(t))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	d := FilterDay(r.Days[0])
	if d.Date.IsZero() {
		t.Error("date must always be kept")
	}
	if d.TempMax.Valid || d.Source.Valid || d.Hours != nil {
		t.Errorf("empty element list kept fields: %+v", d)
	}
}

func TestFilterHour(t *testing.T) {
	r, err := Parse(loadFixture(t))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	h := FilterHour(r.Days[0].Hours[0], "temp", "unknown")
	if h.Time.String() != "05:00:00" {
		t.Errorf("Time = %s, want 05:00:00", h.Time)
	}
	if !h.Temp.Valid || h.Temp.Float64 != 72.3 {
		t.Errorf("Temp = %+v, want 72.3", h.Temp)
	}
	if h.Humidity.Valid || h.Conditions.Valid || h.Stations.Valid {
		t.Errorf("unselected fields kept: %+v", h)
	}
}

func TestClientElements(t *testing.T) {
	is := is.New(t)
	c := NewClient("K", WithHTTPClient(&countingDoer{}))
	is.Equal(len(c.DailyElements("tempmax")), 0) // nothing before a fetch
	is.NoErr(c.Load(loadFixture(t)))

	days := c.DailyElements("tempmax")
	is.Equal(len(days), 2)
	is.Equal(days[1].TempMax.Float64, 93.0)
	is.True(!days[1].TempMin.Valid)

	hours := c.HourlyElements("conditions")
	is.Equal(len(hours), 2)
	is.Equal(hours[1].Conditions.String, "Partially cloudy")
	is.True(!hours[1].Temp.Valid)

	day, ok := c.DayElements("2020-07-10", "description")
	is.True(ok)
	is.Equal(day.Description.String, "Partly cloudy throughout the day with rain.")
	is.True(!day.Icon.Valid)

	_, ok = c.DayElements("2020-07-12", "description")
	is.True(!ok)

	full, _ := c.Day("2020-07-10")
	is.True(full.TempMin.Valid) // stored result untouched
}
