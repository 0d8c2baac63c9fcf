package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a request is attempted without an API key.
	ErrConfiguration = errors.New("weather: api key is not set")
	// ErrTransport wraps failures of the HTTP round trip, including non-2xx responses.
	ErrTransport = errors.New("weather: transport failure")
	// ErrParse is returned when a response body cannot be mapped to a QueryResult.
	ErrParse = errors.New("weather: invalid response")
)

var errMissingField = errors.New("field is missing or not a string")

// StatusError reports a non-2xx response from the timeline service.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("weather: unexpected status %s", e.Status)
	}
	return fmt.Sprintf("weather: unexpected status %s: %s", e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// DateFormatError reports a required date or time-of-day field that could
// not be parsed. It matches ErrParse.
type DateFormatError struct {
	Field string
	Value string
	Err   error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("weather: parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DateFormatError) Unwrap() error {
	return e.Err
}

func (e *DateFormatError) Is(target error) bool {
	return target == ErrParse
}
