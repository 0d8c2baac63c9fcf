package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lox/vcweather/internal/metrics"
)

type countingDoer struct {
	calls atomic.Int32
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, errors.New("transport must not be called")
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func setupTestServer(t *testing.T, status int, body string) (*is.I, *httptest.Server, *[]string) {
	t.Helper()
	is := is.New(t)
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return is, srv, &paths
}

func newTestClient(srv *httptest.Server, apiKey string) *Client {
	return NewClient(apiKey,
		WithBaseURL(srv.URL+"/timeline/"),
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestFetch_EmptyKeyNeverCallsTransport(t *testing.T) {
	is := is.New(t)
	doer := &countingDoer{}
	c := NewClient("", WithHTTPClient(doer))

	err := c.Fetch(context.Background(), "Paris")

	is.True(errors.Is(err, ErrConfiguration))
	is.Equal(doer.calls.Load(), int32(0)) // transport invoked without a key
	is.True(c.LastFetch().StartedAt.IsZero())
}

func TestFetch(t *testing.T) {
	body, err := os.ReadFile("testdata/timeline.json")
	if err != nil {
		t.Fatal(err)
	}
	is, srv, paths := setupTestServer(t, http.StatusOK, string(body))
	c := newTestClient(srv, "K")

	before := testutil.ToFloat64(metrics.APICallsTotal.WithLabelValues("range", "200"))

	err = c.Fetch(context.Background(), "38.96,-96.02",
		DateRange("2020-07-10", "2020-07-11"), UnitGroup(UnitsUS), Include("days", "hours", "events"))
	is.NoErr(err)

	is.Equal(len(*paths), 1)
	is.Equal((*paths)[0], "/timeline/38.96,-96.02/2020-07-10/2020-07-11?key=K&unitGroup=us&include=days,hours,events")
	is.Equal(testutil.ToFloat64(metrics.APICallsTotal.WithLabelValues("range", "200")), before+1)

	is.Equal(c.QueryCost().Int64, int64(3))
	is.Equal(c.ResolvedAddress().String, "38.96,-96.02")
	is.Equal(c.Timezone().String, "America/Chicago")
	is.Equal(len(c.Days()), 2)
	is.Equal(len(c.Stations()), 2)

	last := c.LastFetch()
	is.True(last.Success())
	is.Equal(last.HTTPStatus, http.StatusOK)
	is.Equal(last.DayCount, 2)
	is.Equal(last.Kind, "range")
	is.Equal(last.ResponseSize, len(body))
	is.True(!strings.Contains(last.URL, "key=K&")) // key must be redacted
	is.True(strings.Contains(last.URL, "key=REDACTED"))
}

func TestFetch_ParseFailureKeepsPreviousResult(t *testing.T) {
	is := is.New(t)
	responses := []string{`{"days": [{"datetime": "2020-07-10"}]}`, `{"queryCost": 1}`}
	var n int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, responses[n])
		n++
	}))
	defer srv.Close()
	c := newTestClient(srv, "K")

	is.NoErr(c.FetchForecast(context.Background(), "Paris"))
	is.Equal(len(c.Days()), 1)

	failuresBefore := testutil.ToFloat64(metrics.ParseFailures)
	err := c.FetchForecast(context.Background(), "Paris")

	is.True(errors.Is(err, ErrParse))
	is.Equal(testutil.ToFloat64(metrics.ParseFailures), failuresBefore+1)
	is.Equal(len(c.Days()), 1) // previous result must survive a failed fetch
	is.True(!c.LastFetch().Success())
	is.True(errors.Is(c.LastFetch().Err, ErrParse))
}

func TestFetch_StatusError(t *testing.T) {
	is, srv, _ := setupTestServer(t, http.StatusUnauthorized, "No account found with API key 'K'")
	c := newTestClient(srv, "K")

	err := c.FetchForecast(context.Background(), "Paris")

	is.True(errors.Is(err, ErrTransport))
	var se *StatusError
	is.True(errors.As(err, &se))
	is.Equal(se.StatusCode, http.StatusUnauthorized)
	is.True(strings.Contains(se.Body, "No account found"))
	is.True(strings.Contains(se.Body, "'REDACTED'")) // echoed key is hidden
	is.True(!strings.Contains(string(c.LastFetch().Body), "'K'"))
	is.Equal(c.LastFetch().HTTPStatus, http.StatusUnauthorized)

	_, ok := c.Result()
	is.True(!ok)
}

func TestFetch_TransportError(t *testing.T) {
	is := is.New(t)
	c := NewClient("K", WithHTTPClient(failingDoer{}))

	err := c.FetchForecast(context.Background(), "Paris")

	is.True(errors.Is(err, ErrTransport))
	is.True(strings.Contains(err.Error(), "connection refused"))
	is.Equal(c.LastFetch().HTTPStatus, 0)
}

func TestFetch_TransportErrorHidesKey(t *testing.T) {
	is, srv, _ := setupTestServer(t, http.StatusOK, `{"days": []}`)
	srv.Close() // connection refused from here on
	c := newTestClient(srv, "supersecretkey")

	err := c.FetchForecast(context.Background(), "Oslo")

	is.True(errors.Is(err, ErrTransport))
	is.True(!strings.Contains(err.Error(), "supersecretkey"))
	is.True(strings.Contains(err.Error(), "key=REDACTED"))
	var uerr *url.Error
	is.True(errors.As(err, &uerr))
	is.True(!strings.Contains(uerr.URL, "supersecretkey"))
	is.True(!strings.Contains(c.LastFetch().Err.Error(), "supersecretkey"))
}

type echoingDoer struct{}

func (echoingDoer) Do(req *http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("proxy rejected %s: %w", req.URL.RawQuery, io.ErrUnexpectedEOF)
}

func TestFetch_CustomDoerErrorHidesKey(t *testing.T) {
	is := is.New(t)
	c := NewClient("supersecretkey", WithHTTPClient(echoingDoer{}))

	err := c.FetchForecast(context.Background(), "Oslo")

	is.True(errors.Is(err, ErrTransport))
	is.True(errors.Is(err, io.ErrUnexpectedEOF))
	is.True(!strings.Contains(err.Error(), "supersecretkey"))
}

func TestFetch_AcceptsAny2xx(t *testing.T) {
	is, srv, _ := setupTestServer(t, http.StatusNonAuthoritativeInfo, `{"days": []}`)
	c := newTestClient(srv, "K")

	is.NoErr(c.FetchForecast(context.Background(), "Paris"))
	is.Equal(c.LastFetch().HTTPStatus, http.StatusNonAuthoritativeInfo)
	_, ok := c.Result()
	is.True(ok)
}

func TestFetch_ContextCancelled(t *testing.T) {
	is, srv, _ := setupTestServer(t, http.StatusOK, `{"days": []}`)
	c := newTestClient(srv, "K")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.FetchForecast(ctx, "Paris")
	is.True(errors.Is(err, ErrTransport))
	is.True(errors.Is(err, context.Canceled))
}

func TestSetAPIKey(t *testing.T) {
	is, srv, paths := setupTestServer(t, http.StatusOK, `{"days": []}`)
	c := newTestClient(srv, "")

	is.True(errors.Is(c.FetchForecast(context.Background(), "Paris"), ErrConfiguration))
	is.Equal(len(*paths), 0)

	c.SetAPIKey("K2")
	is.NoErr(c.FetchForecast(context.Background(), "Paris"))
	is.Equal((*paths)[0], "/timeline/Paris?key=K2")
}

func TestAccessorsBeforeFetch(t *testing.T) {
	is := is.New(t)
	c := NewClient("K", WithHTTPClient(&countingDoer{}))

	is.True(!c.QueryCost().Valid)
	is.True(!c.Latitude().Valid)
	is.True(!c.Address().Valid)
	is.Equal(len(c.Days()), 0)
	is.True(c.Stations() != nil)
	is.Equal(len(c.Stations()), 0)
	_, ok := c.Day("2020-07-10")
	is.True(!ok)
	is.Equal(len(c.HourlyTimes()), 0)
}

func TestLookups(t *testing.T) {
	is := is.New(t)
	body, err := os.ReadFile("testdata/timeline.json")
	is.NoErr(err)

	c := NewClient("K", WithHTTPClient(&countingDoer{}))
	is.NoErr(c.Load(body))

	day, ok := c.Day("2020-07-11")
	is.True(ok)
	is.Equal(day.TempMax.Float64, 93.0)

	_, ok = c.Day("2020-07-12")
	is.True(!ok)
	_, ok = c.Day("not a date")
	is.True(!ok)

	first, ok := c.DayAt(0)
	is.True(ok)
	is.Equal(first.Date.Format(DateLayout), "2020-07-10")
	_, ok = c.DayAt(2)
	is.True(!ok)
	_, ok = c.DayAt(-1)
	is.True(!ok)

	hour, ok := c.HourAt("2020-07-10", "06:00:00")
	is.True(ok)
	is.Equal(hour.Temp.Float64, 73.0)
	_, ok = c.HourAt("2020-07-10", "07:00:00")
	is.True(!ok)

	dates := c.DailyDates()
	is.Equal(len(dates), 2)
	is.Equal(dates[1].Format(DateLayout), "2020-07-11")

	is.Equal(len(c.Hours()), 2)

	times := c.HourlyTimes()
	is.Equal(len(times), 2)
	is.True(times[0].Equal(time.Date(2020, 7, 10, 10, 0, 0, 0, time.UTC))) // 05:00 CDT

	c.Clear()
	_, ok = c.Result()
	is.True(!ok)
}

func TestDaysReturnsCopy(t *testing.T) {
	is := is.New(t)
	c := NewClient("K", WithHTTPClient(&countingDoer{}))
	is.NoErr(c.Load([]byte(`{"days": [{"datetime": "2020-07-10", "preciptype": ["rain"]}]}`)))

	days := c.Days()
	days[0].PrecipType.Strings[0] = "snow"

	again := c.Days()
	is.Equal(again[0].PrecipType.Strings[0], "rain")
}
