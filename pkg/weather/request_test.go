package weather

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildURL(t *testing.T) {
	base := DefaultBaseURL

	tests := []struct {
		name     string
		location string
		opts     []QueryOption
		want     string
	}{
		{
			name:     "forecast",
			location: "38.96,-96.02",
			want:     base + "38.96,-96.02?key=K",
		},
		{
			name:     "full range query",
			location: "38.96,-96.02",
			opts: []QueryOption{
				DateRange("2020-7-10", "2020-7-12"),
				UnitGroup(UnitsUS),
				Include("events", "hours"),
				Elements(),
			},
			want: base + "38.96,-96.02/2020-7-10/2020-7-12?key=K&unitGroup=us&include=events,hours&elements=",
		},
		{
			name:     "from without to",
			location: "London,UK",
			opts:     []QueryOption{From("last30days")},
			want:     base + "London,UK/last30days/?key=K",
		},
		{
			name:     "to without from is ignored",
			location: "London,UK",
			opts:     []QueryOption{To("2020-7-12")},
			want:     base + "London,UK?key=K",
		},
		{
			name:     "parameter order is fixed",
			location: "Paris",
			opts:     []QueryOption{Elements("temp", "datetime"), Include("days"), UnitGroup(UnitsMetric)},
			want:     base + "Paris?key=K&unitGroup=metric&include=days&elements=temp,datetime",
		},
		{
			name:     "location is escaped",
			location: "New York, NY",
			want:     base + "New%20York,%20NY?key=K",
		},
		{
			name:     "path separators cannot be injected",
			location: "a/b?c",
			want:     base + "a%2Fb%3Fc?key=K",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(base, "K", tt.location, tt.opts...)
			if err != nil {
				t.Fatalf("BuildURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildURL()\n got %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestBuildURL_ComponentOrder(t *testing.T) {
	got, err := BuildURL(DefaultBaseURL, "K", "38.96,-96.02",
		From("2020-7-10"), To("2020-7-12"), UnitGroup("us"), Include("events,hours"), Elements(""))
	if err != nil {
		t.Fatalf("BuildURL() error = %v", err)
	}

	parts := []string{"38.96,-96.02", "/2020-7-10/2020-7-12", "key=K", "unitGroup=us", "include=events,hours", "elements="}
	pos := 0
	for _, p := range parts {
		i := strings.Index(got[pos:], p)
		if i < 0 {
			t.Fatalf("%q not found in order in %s", p, got)
		}
		pos += i + len(p)
	}
}

func TestBuildURL_EmptyKey(t *testing.T) {
	_, err := BuildURL(DefaultBaseURL, "", "Paris")
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("BuildURL() error = %v, want ErrConfiguration", err)
	}
}

func TestBuildURL_BaseWithoutTrailingSlash(t *testing.T) {
	got, err := BuildURL("http://localhost:8080/timeline", "K", "Paris")
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://localhost:8080/timeline/Paris?key=K" {
		t.Errorf("got %s", got)
	}
}

func TestBuildURL_KeyIsEscaped(t *testing.T) {
	got, err := BuildURL(DefaultBaseURL, "a&b=c", "Paris")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, "?key=a%26b%3Dc") {
		t.Errorf("got %s", got)
	}
}

func TestRedactKey(t *testing.T) {
	raw, err := BuildURL(DefaultBaseURL, "secret key", "Paris", UnitGroup("uk"))
	if err != nil {
		t.Fatal(err)
	}
	got := redactKey(raw, "secret key")
	if strings.Contains(got, "secret") {
		t.Errorf("key leaked: %s", got)
	}
	if !strings.HasSuffix(got, "?key=REDACTED&unitGroup=uk") {
		t.Errorf("got %s", got)
	}
}

func TestQueryKind(t *testing.T) {
	if k := newQuery(nil).kind(); k != "forecast" {
		t.Errorf("kind() = %q, want forecast", k)
	}
	if k := newQuery([]QueryOption{From("2020-01-01")}).kind(); k != "range" {
		t.Errorf("kind() = %q, want range", k)
	}
}
