package weather

import (
	"database/sql"
	"net/url"
	"strings"
)

// DefaultBaseURL is the Visual Crossing timeline endpoint.
const DefaultBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline/"

// Unit groups accepted by the unitGroup parameter.
const (
	UnitsUS     = "us"
	UnitsUK     = "uk"
	UnitsMetric = "metric"
	UnitsBase   = "base"
)

// QueryOption sets an optional part of a timeline request.
type QueryOption func(*query)

type query struct {
	from      sql.NullString
	to        sql.NullString
	unitGroup sql.NullString
	include   sql.NullString
	elements  sql.NullString
}

func newQuery(opts []QueryOption) query {
	var q query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// kind labels the request for metrics and the archive.
func (q query) kind() string {
	if q.from.Valid {
		return "range"
	}
	return "forecast"
}

// From sets the start of the requested period. Besides yyyy-MM-dd dates the
// service accepts dynamic periods such as "last30days".
func From(date string) QueryOption {
	return func(q *query) { q.from = sql.NullString{String: date, Valid: true} }
}

// To sets the end of the requested period. It is ignored unless From is set.
func To(date string) QueryOption {
	return func(q *query) { q.to = sql.NullString{String: date, Valid: true} }
}

func DateRange(from, to string) QueryOption {
	return func(q *query) {
		From(from)(q)
		To(to)(q)
	}
}

func UnitGroup(unitGroup string) QueryOption {
	return func(q *query) { q.unitGroup = sql.NullString{String: unitGroup, Valid: true} }
}

// Include selects response sections, e.g. Include("days", "hours", "events").
func Include(sections ...string) QueryOption {
	return func(q *query) { q.include = sql.NullString{String: strings.Join(sections, ","), Valid: true} }
}

// Elements restricts the weather elements returned. Elements() sends an empty list.
func Elements(elements ...string) QueryOption {
	return func(q *query) { q.elements = sql.NullString{String: strings.Join(elements, ","), Valid: true} }
}

// BuildURL constructs the request URL for a location:
//
//	{base}/{location}[/{from}/{to}]?key=..&unitGroup=..&include=..&elements=..
//
// Query parameters after key are only present when set.
func BuildURL(baseURL, apiKey, location string, opts ...QueryOption) (string, error) {
	return buildURL(baseURL, apiKey, location, newQuery(opts))
}

func buildURL(baseURL, apiKey, location string, q query) (string, error) {
	if apiKey == "" {
		return "", ErrConfiguration
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteByte('/')
	b.WriteString(escapePath(location))
	if q.from.Valid {
		b.WriteByte('/')
		b.WriteString(escapePath(q.from.String))
		b.WriteByte('/')
		b.WriteString(escapePath(q.to.String))
	}

	b.WriteString("?key=")
	b.WriteString(escapeQuery(apiKey))
	appendParam(&b, "unitGroup", q.unitGroup)
	appendParam(&b, "include", q.include)
	appendParam(&b, "elements", q.elements)

	return b.String(), nil
}

func appendParam(b *strings.Builder, name string, v sql.NullString) {
	if !v.Valid {
		return
	}
	b.WriteByte('&')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(escapeQuery(v.String))
}

// Commas and colons are legal in both positions and keep coordinates and
// section lists readable.
var keepLiteral = strings.NewReplacer("%2C", ",", "%3A", ":")

func escapePath(s string) string {
	return keepLiteral.Replace(url.PathEscape(s))
}

func escapeQuery(s string) string {
	return keepLiteral.Replace(url.QueryEscape(s))
}

const redacted = "REDACTED"

func redactKey(rawURL, apiKey string) string {
	if apiKey == "" {
		return rawURL
	}
	return strings.Replace(rawURL, "key="+escapeQuery(apiKey), "key="+redacted, 1)
}

// redactedError hides the API key in an error's text and still unwraps to
// the original error.
type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactError(err error, apiKey string) error {
	if apiKey == "" {
		return err
	}
	msg := err.Error()
	clean := strings.ReplaceAll(redactKey(msg, apiKey), apiKey, redacted)
	if escaped := escapeQuery(apiKey); escaped != apiKey {
		clean = strings.ReplaceAll(clean, escaped, redacted)
	}
	if clean == msg {
		return err
	}
	return &redactedError{err: err, msg: clean}
}
