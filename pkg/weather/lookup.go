package weather

import (
	"database/sql"
	"maps"
	"time"
)

// Accessors return zero values before the first successful fetch.

func readResult[T any](c *Client, f func(r *QueryResult) T) T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		var zero T
		return zero
	}
	return f(c.result)
}

func (c *Client) QueryCost() sql.NullInt64 {
	return readResult(c, func(r *QueryResult) sql.NullInt64 { return r.QueryCost })
}

func (c *Client) Latitude() sql.NullFloat64 {
	return readResult(c, func(r *QueryResult) sql.NullFloat64 { return r.Latitude })
}

func (c *Client) Longitude() sql.NullFloat64 {
	return readResult(c, func(r *QueryResult) sql.NullFloat64 { return r.Longitude })
}

func (c *Client) ResolvedAddress() sql.NullString {
	return readResult(c, func(r *QueryResult) sql.NullString { return r.ResolvedAddress })
}

func (c *Client) Address() sql.NullString {
	return readResult(c, func(r *QueryResult) sql.NullString { return r.Address })
}

func (c *Client) Timezone() sql.NullString {
	return readResult(c, func(r *QueryResult) sql.NullString { return r.Timezone })
}

func (c *Client) TZOffset() sql.NullFloat64 {
	return readResult(c, func(r *QueryResult) sql.NullFloat64 { return r.TZOffset })
}

// Days returns a copy of the stored daily records in response order.
func (c *Client) Days() []Day {
	return readResult(c, func(r *QueryResult) []Day {
		days := make([]Day, len(r.Days))
		for i, d := range r.Days {
			days[i] = d.clone()
		}
		return days
	})
}

// Stations returns a copy of the station mapping. It is never nil.
func (c *Client) Stations() map[string]Station {
	stations := readResult(c, func(r *QueryResult) map[string]Station { return maps.Clone(r.Stations) })
	if stations == nil {
		stations = map[string]Station{}
	}
	return stations
}

// Day returns the record for a yyyy-MM-dd date.
func (c *Client) Day(date string) (Day, bool) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return Day{}, false
	}
	return readResult(c, func(r *QueryResult) lookup[Day] {
		for _, d := range r.Days {
			if d.Date.Equal(t) {
				return lookup[Day]{d.clone(), true}
			}
		}
		return lookup[Day]{}
	}).unpack()
}

// DayAt returns the i'th daily record.
func (c *Client) DayAt(i int) (Day, bool) {
	return readResult(c, func(r *QueryResult) lookup[Day] {
		if i < 0 || i >= len(r.Days) {
			return lookup[Day]{}
		}
		return lookup[Day]{r.Days[i].clone(), true}
	}).unpack()
}

// HourAt returns the hourly record at an HH:mm:ss time on a yyyy-MM-dd date.
func (c *Client) HourAt(date, timeOfDay string) (Hour, bool) {
	tod, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return Hour{}, false
	}
	day, ok := c.Day(date)
	if !ok {
		return Hour{}, false
	}
	for _, h := range day.Hours {
		if h.Time == tod {
			return h, true
		}
	}
	return Hour{}, false
}

// DailyDates lists the calendar dates of the stored days.
func (c *Client) DailyDates() []time.Time {
	return readResult(c, func(r *QueryResult) []time.Time {
		dates := make([]time.Time, 0, len(r.Days))
		for _, d := range r.Days {
			dates = append(dates, d.Date)
		}
		return dates
	})
}

// HourlyTimes lists the instant of every stored hour, in the result's
// timezone.
func (c *Client) HourlyTimes() []time.Time {
	return readResult(c, func(r *QueryResult) []time.Time {
		loc := r.Location()
		var times []time.Time
		for _, d := range r.Days {
			for _, h := range d.Hours {
				times = append(times, h.Time.On(d.Date, loc))
			}
		}
		return times
	})
}

// Hours flattens the hourly records of every stored day.
func (c *Client) Hours() []Hour {
	return readResult(c, func(r *QueryResult) []Hour {
		var hours []Hour
		for _, d := range r.Days {
			for _, h := range d.Hours {
				hours = append(hours, h.clone())
			}
		}
		return hours
	})
}

// DailyElements returns every stored day reduced to the named elements.
func (c *Client) DailyElements(elements ...string) []Day {
	days := c.Days()
	for i := range days {
		days[i] = FilterDay(days[i], elements...)
	}
	return days
}

// HourlyElements returns every stored hour reduced to the named elements.
func (c *Client) HourlyElements(elements ...string) []Hour {
	hours := c.Hours()
	for i := range hours {
		hours[i] = FilterHour(hours[i], elements...)
	}
	return hours
}

// DayElements returns the record for a yyyy-MM-dd date reduced to the named
// elements.
func (c *Client) DayElements(date string, elements ...string) (Day, bool) {
	d, ok := c.Day(date)
	if !ok {
		return Day{}, false
	}
	return FilterDay(d, elements...), true
}

// Clear drops the stored result. The API key and last fetch record are kept.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
}

type lookup[T any] struct {
	v  T
	ok bool
}

func (l lookup[T]) unpack() (T, bool) {
	return l.v, l.ok
}
