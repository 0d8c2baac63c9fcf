package store

import (
	"database/sql"
	"time"
)

// FetchRun is the audit record of one timeline request.
type FetchRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Kind              string // "forecast", "range"
	Location          string
	URL               string // API key redacted
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	DaysParsed        sql.NullInt64
	DaysStored        sql.NullInt64
	QueryCost         sql.NullInt64
	ResolvedAddress   sql.NullString
	Timezone          sql.NullString
	Latitude          sql.NullFloat64
	Longitude         sql.NullFloat64
	PayloadHash       sql.NullString
	Success           bool
	ErrorMessage      sql.NullString
}

// StartRun creates a fetch run record and returns it.
func (s *Store) StartRun(kind, location, url string, startedAt time.Time) (*FetchRun, error) {
	run := &FetchRun{
		StartedAt: startedAt.UTC(),
		Kind:      kind,
		Location:  location,
		URL:       url,
	}

	result, err := s.db.Exec(`
		INSERT INTO fetch_runs (started_at, kind, location, url, success)
		VALUES (?, ?, ?, ?, FALSE)
	`, run.StartedAt, run.Kind, run.Location, run.URL)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteRun updates the run with its outcome.
func (s *Store) CompleteRun(run *FetchRun) error {
	if run == nil {
		return nil
	}

	if !run.FinishedAt.Valid {
		run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	_, err := s.db.Exec(`
		UPDATE fetch_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			days_parsed = ?,
			days_stored = ?,
			query_cost = ?,
			resolved_address = ?,
			timezone = ?,
			latitude = ?,
			longitude = ?,
			payload_hash = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.DaysParsed,
		run.DaysStored, run.QueryCost, run.ResolvedAddress, run.Timezone,
		run.Latitude, run.Longitude, run.PayloadHash, run.Success, run.ErrorMessage, run.ID)
	return err
}

const runColumns = `id, started_at, finished_at, kind, location, url, http_status,
	response_size_bytes, days_parsed, days_stored, query_cost, resolved_address,
	timezone, latitude, longitude, payload_hash, success, error_message`

func scanRun(row interface{ Scan(...any) error }) (FetchRun, error) {
	var r FetchRun
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Kind, &r.Location, &r.URL,
		&r.HTTPStatus, &r.ResponseSizeBytes, &r.DaysParsed, &r.DaysStored, &r.QueryCost,
		&r.ResolvedAddress, &r.Timezone, &r.Latitude, &r.Longitude, &r.PayloadHash, &r.Success, &r.ErrorMessage)
	return r, err
}

// RecentRuns returns the most recent fetch runs, newest first.
func (s *Store) RecentRuns(limit int) ([]FetchRun, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+`
		FROM fetch_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetRun returns a run by ID, or nil if it does not exist.
func (s *Store) GetRun(id int64) (*FetchRun, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM fetch_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecentErrors returns recent failed runs.
func (s *Store) RecentErrors(limit int) ([]FetchRun, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+`
		FROM fetch_runs
		WHERE success = FALSE
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
