package ingest

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"

	"github.com/lox/vcweather/internal/metrics"
	"github.com/lox/vcweather/internal/store"
	"github.com/lox/vcweather/pkg/weather"
)

// Fetcher is the part of *weather.Client the archiver drives.
type Fetcher interface {
	Fetch(ctx context.Context, location string, opts ...weather.QueryOption) error
	LastFetch() weather.FetchResult
	Result() (weather.QueryResult, bool)
}

// Archiver records every fetch attempt in the store. The archive is written
// after the fact and never consulted to answer a fetch.
type Archiver struct {
	client Fetcher
	store  *store.Store
	log    *slog.Logger
}

func NewArchiver(client Fetcher, st *store.Store, log *slog.Logger) *Archiver {
	if log == nil {
		log = slog.Default()
	}
	return &Archiver{client: client, store: st, log: log}
}

// Fetch runs the client's fetch and archives the outcome. The fetch error is
// returned unchanged; archive failures are logged and reported through runID 0.
func (a *Archiver) Fetch(ctx context.Context, location string, opts ...weather.QueryOption) (int64, error) {
	fetchErr := a.client.Fetch(ctx, location, opts...)

	fr := a.client.LastFetch()
	if fr.StartedAt.IsZero() {
		// Rejected before any request was made.
		return 0, fetchErr
	}

	runID, err := a.record(location, fr)
	if err != nil {
		a.log.Error("archive fetch run", "location", location, "error", err)
		return 0, fetchErr
	}
	return runID, fetchErr
}

func (a *Archiver) record(location string, fr weather.FetchResult) (int64, error) {
	log := a.log.With("location", location, "kind", fr.Kind)

	run, err := a.store.StartRun(fr.Kind, location, fr.URL, fr.StartedAt)
	if err != nil {
		return 0, err
	}

	run.Success = fr.Err == nil
	run.FinishedAt = sql.NullTime{Time: fr.StartedAt.Add(fr.Duration).UTC(), Valid: true}
	run.HTTPStatus = sql.NullInt64{Int64: int64(fr.HTTPStatus), Valid: fr.HTTPStatus > 0}
	run.ResponseSizeBytes = sql.NullInt64{Int64: int64(fr.ResponseSize), Valid: fr.HTTPStatus > 0}
	if fr.Err != nil {
		run.ErrorMessage = sql.NullString{String: fr.Err.Error(), Valid: true}
	}

	if len(fr.Body) > 0 {
		if _, err := a.store.StoreRawPayload(run.ID, fr.Kind, location, fr.Body); err != nil {
			log.Warn("store raw payload", "error", err)
		} else {
			run.PayloadHash = sql.NullString{String: store.PayloadHash(fr.Body), Valid: true}
		}
	}

	if fr.Err == nil {
		run.DaysParsed = sql.NullInt64{Int64: int64(fr.DayCount), Valid: true}
		if result, ok := a.client.Result(); ok {
			run.QueryCost = result.QueryCost
			run.ResolvedAddress = result.ResolvedAddress
			run.Timezone = result.Timezone
			run.Latitude = result.Latitude
			run.Longitude = result.Longitude

			stored, err := a.store.SaveResult(run.ID, location, &result, QualityChecker{})
			if err != nil {
				log.Warn("store mapped records", "error", err)
			}
			run.DaysStored = sql.NullInt64{Int64: int64(stored), Valid: true}
			log.Info("archived fetch", "run", run.ID, "days", stored)
		}
	}

	if err := a.store.CompleteRun(run); err != nil {
		return 0, err
	}
	metrics.RunsArchived.WithLabelValues(strconv.FormatBool(run.Success)).Inc()
	return run.ID, nil
}
