package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lox/vcweather/pkg/weather"
)

// Flagger assigns quality flags to records before they are archived. Flags
// are JSON text; an empty string means none.
type Flagger interface {
	DayFlags(d *weather.Day) string
	HourFlags(h *weather.Hour) string
}

type noFlags struct{}

func (noFlags) DayFlags(*weather.Day) string   { return "" }
func (noFlags) HourFlags(*weather.Hour) string { return "" }

// SaveResult stores the mapped records of a run in one transaction and
// returns the number of days stored.
func (s *Store) SaveResult(runID int64, location string, r *weather.QueryResult, flagger Flagger) (int, error) {
	if flagger == nil {
		flagger = noFlags{}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := range r.Days {
		if err := insertDay(tx, runID, location, &r.Days[i], flagger); err != nil {
			return 0, fmt.Errorf("day %s: %w", r.Days[i].Date.Format(weather.DateLayout), err)
		}
	}

	for key, st := range r.Stations {
		if _, err := tx.Exec(`
			INSERT INTO stations (fetch_run_id, station_key, station_id, name, distance, latitude, longitude, use_count, quality, contribution)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, key, st.ID, st.Name, st.Distance, st.Latitude, st.Longitude, st.UseCount, st.Quality, st.Contribution); err != nil {
			return 0, fmt.Errorf("station %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(r.Days), nil
}

func insertDay(tx *sql.Tx, runID int64, location string, d *weather.Day, flagger Flagger) error {
	record, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	result, err := tx.Exec(`
		INSERT INTO days (fetch_run_id, location, date, datetime_epoch, temp_max, temp_min, temp, humidity,
			precip, precip_prob, preciptype, snow, wind_gust, wind_speed, wind_dir, pressure, cloud_cover,
			uv_index, conditions, description, icon, stations, source, quality_flags, record_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, location, d.Date.Format(weather.DateLayout), d.DatetimeEpoch, d.TempMax, d.TempMin, d.Temp,
		d.Humidity, d.Precip, d.PrecipProb, d.PrecipType, d.Snow, d.WindGust, d.WindSpeed, d.WindDir,
		d.Pressure, d.CloudCover, d.UVIndex, d.Conditions, d.Description, d.Icon, d.Stations, d.Source,
		nullText(flagger.DayFlags(d)), string(record))
	if err != nil {
		return err
	}
	dayID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for i := range d.Hours {
		h := &d.Hours[i]
		if _, err := tx.Exec(`
			INSERT INTO hours (day_id, time, datetime_epoch, temp, humidity, precip, precip_prob, preciptype,
				wind_speed, wind_dir, pressure, cloud_cover, conditions, source, quality_flags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, dayID, h.Time.String(), h.DatetimeEpoch, h.Temp, h.Humidity, h.Precip, h.PrecipProb, h.PrecipType,
			h.WindSpeed, h.WindDir, h.Pressure, h.CloudCover, h.Conditions, h.Source,
			nullText(flagger.HourFlags(h))); err != nil {
			return fmt.Errorf("hour %s: %w", h.Time, err)
		}
	}

	for _, e := range d.Events {
		if _, err := tx.Exec(`
			INSERT INTO events (day_id, date, datetime_epoch, type, latitude, longitude, distance, description, size)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, dayID, e.Date.Format(weather.DateLayout), e.DatetimeEpoch, e.Type, e.Latitude, e.Longitude,
			e.Distance, e.Description, e.Size); err != nil {
			return fmt.Errorf("event: %w", err)
		}
	}

	return nil
}

func nullText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ArchivedDay summarises a stored daily record.
type ArchivedDay struct {
	ID           int64
	Date         string
	TempMax      sql.NullFloat64
	TempMin      sql.NullFloat64
	Precip       sql.NullFloat64
	PrecipType   weather.NullStrings
	Conditions   sql.NullString
	QualityFlags sql.NullString
	HourCount    int
	EventCount   int
}

// RunDays lists the days stored for a run in date order.
func (s *Store) RunDays(runID int64) ([]ArchivedDay, error) {
	rows, err := s.db.Query(`
		SELECT d.id, d.date, d.temp_max, d.temp_min, d.precip, d.preciptype, d.conditions, d.quality_flags,
			(SELECT COUNT(*) FROM hours h WHERE h.day_id = d.id),
			(SELECT COUNT(*) FROM events e WHERE e.day_id = d.id)
		FROM days d
		WHERE d.fetch_run_id = ?
		ORDER BY d.date
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []ArchivedDay
	for rows.Next() {
		var d ArchivedDay
		if err := rows.Scan(&d.ID, &d.Date, &d.TempMax, &d.TempMin, &d.Precip, &d.PrecipType,
			&d.Conditions, &d.QualityFlags, &d.HourCount, &d.EventCount); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// GetDay returns the full record stored for a run and date, or nil.
func (s *Store) GetDay(runID int64, date string) (*weather.Day, error) {
	var record string
	err := s.db.QueryRow(`SELECT record_json FROM days WHERE fetch_run_id = ? AND date = ?`, runID, date).
		Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	day, err := weather.ParseDay([]byte(record))
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// RunStations returns the station mapping stored for a run.
func (s *Store) RunStations(runID int64) (map[string]weather.Station, error) {
	rows, err := s.db.Query(`
		SELECT station_key, station_id, name, distance, latitude, longitude, use_count, quality, contribution
		FROM stations WHERE fetch_run_id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := map[string]weather.Station{}
	for rows.Next() {
		var key string
		var st weather.Station
		if err := rows.Scan(&key, &st.ID, &st.Name, &st.Distance, &st.Latitude, &st.Longitude,
			&st.UseCount, &st.Quality, &st.Contribution); err != nil {
			return nil, err
		}
		stations[key] = st
	}
	return stations, rows.Err()
}
