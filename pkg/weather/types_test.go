package weather

import (
	"database/sql"
	"testing"
	"time"
)

func TestNullStrings_ValueScan(t *testing.T) {
	tests := []struct {
		name  string
		in    NullStrings
		value any
	}{
		{"absent", NullStrings{}, nil},
		{"empty", NullStrings{Valid: true}, "[]"},
		{"values", NullStrings{Strings: []string{"rain", "snow"}, Valid: true}, `["rain","snow"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.in.Value()
			if err != nil {
				t.Fatalf("Value() error = %v", err)
			}
			if v != tt.value {
				t.Fatalf("Value() = %v, want %v", v, tt.value)
			}

			var out NullStrings
			if err := out.Scan(v); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if out.Valid != tt.in.Valid || len(out.Strings) != len(tt.in.Strings) {
				t.Errorf("Scan() = %+v, want %+v", out, tt.in)
			}
		})
	}
}

func TestNullStrings_ScanRejectsUnknownTypes(t *testing.T) {
	var n NullStrings
	if err := n.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("05:00:00")
	if err != nil {
		t.Fatal(err)
	}
	if tod != (TimeOfDay{Hour: 5}) {
		t.Errorf("ParseTimeOfDay() = %+v", tod)
	}
	if tod.String() != "05:00:00" {
		t.Errorf("String() = %q", tod.String())
	}

	for _, bad := range []string{"", "5:00", "25:00:00", "05:00:00Z"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Errorf("ParseTimeOfDay(%q) should fail", bad)
		}
	}
}

func TestTimeOfDay_On(t *testing.T) {
	date := time.Date(2020, 7, 10, 0, 0, 0, 0, time.UTC)
	loc := time.FixedZone("CDT", -5*3600)

	got := TimeOfDay{Hour: 13, Minute: 30}.On(date, loc)
	want := time.Date(2020, 7, 10, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("On() = %v, want %v", got, want)
	}
}

func TestQueryResult_Location(t *testing.T) {
	tests := []struct {
		name       string
		result     QueryResult
		wantOffset int
	}{
		{"none", QueryResult{}, 0},
		{"offset only", QueryResult{TZOffset: sql.NullFloat64{Float64: 5.5, Valid: true}}, 19800},
		{"unknown zone uses offset", QueryResult{
			Timezone: sql.NullString{String: "Nowhere/Special", Valid: true},
			TZOffset: sql.NullFloat64{Float64: -3, Valid: true},
		}, -10800},
	}

	ref := time.Date(2020, 1, 15, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, off := ref.In(tt.result.Location()).Zone()
			if off != tt.wantOffset {
				t.Errorf("offset = %d, want %d", off, tt.wantOffset)
			}
		})
	}
}

func TestQueryResult_CloneIsDeep(t *testing.T) {
	r, err := Parse([]byte(`{"days": [{"datetime": "2020-07-10", "stations": ["A"], "hours": [{"datetime": "01:00:00", "preciptype": ["rain"]}]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	c := r.clone()
	c.Days[0].Stations.Strings[0] = "B"
	c.Days[0].Hours[0].PrecipType.Strings[0] = "snow"

	if r.Days[0].Stations.Strings[0] != "A" || r.Days[0].Hours[0].PrecipType.Strings[0] != "rain" {
		t.Error("clone shares backing arrays with the original")
	}
}
