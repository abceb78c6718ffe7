package store

import (
	"database/sql"
	"strings"
	"time"
)

// IngestRun represents a single provider fetch for auditing.
type IngestRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Source            string // "open-meteo", "nominatim"
	Endpoint          string // "v1/forecast", "v1/search", "reverse"
	LocationKey       sql.NullString
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	HoursParsed       sql.NullInt64
	QualityFlags      []string
	Success           bool
	ErrorMessage      sql.NullString
}

// Fail marks the run unsuccessful with err's message.
func (r *IngestRun) Fail(err error) {
	if r == nil || err == nil {
		return
	}
	r.Success = false
	r.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
}

// StartIngestRun creates a new ingest run record and returns it.
func (s *Store) StartIngestRun(source, endpoint, locationKey string) (*IngestRun, error) {
	run := &IngestRun{
		StartedAt: time.Now().UTC(),
		Source:    source,
		Endpoint:  endpoint,
	}
	if locationKey != "" {
		run.LocationKey = sql.NullString{String: locationKey, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (started_at, source, endpoint, location_key, success)
		VALUES (?, ?, ?, ?, FALSE)
	`, run.StartedAt, run.Source, run.Endpoint, run.LocationKey)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteIngestRun updates the ingest run with results.
func (s *Store) CompleteIngestRun(run *IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	var flags sql.NullString
	if len(run.QualityFlags) > 0 {
		flags = sql.NullString{String: strings.Join(run.QualityFlags, ","), Valid: true}
	}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			hours_parsed = ?,
			quality_flags = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.HoursParsed,
		flags, run.Success, run.ErrorMessage, run.ID)
	return err
}

// IngestHealthSummary represents a daily ingest health summary.
type IngestHealthSummary struct {
	Date        string `json:"date"`
	Source      string `json:"source"`
	Endpoint    string `json:"endpoint"`
	TotalRuns   int    `json:"total_runs"`
	SuccessRuns int    `json:"success_runs"`
	FailedRuns  int    `json:"failed_runs"`
	FlaggedRuns int    `json:"flagged_runs"`
	HoursParsed int64  `json:"hours_parsed"`
}

// GetIngestHealth returns ingest health summaries for the last N days.
func (s *Store) GetIngestHealth(days int) ([]IngestHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			source,
			endpoint,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			SUM(CASE WHEN quality_flags IS NOT NULL THEN 1 ELSE 0 END) as flagged_runs,
			COALESCE(SUM(hours_parsed), 0) as hours_parsed
		FROM ingest_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, source, endpoint
		ORDER BY date DESC, source, endpoint
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestHealthSummary
	for rows.Next() {
		var h IngestHealthSummary
		if err := rows.Scan(&h.Date, &h.Source, &h.Endpoint, &h.TotalRuns,
			&h.SuccessRuns, &h.FailedRuns, &h.FlaggedRuns, &h.HoursParsed); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// GetRecentIngestErrors returns recent failed ingest runs.
func (s *Store) GetRecentIngestErrors(limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, source, endpoint, location_key,
			   http_status, response_size_bytes, hours_parsed, quality_flags,
			   success, error_message
		FROM ingest_runs
		WHERE success = FALSE
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestRun
	for rows.Next() {
		var r IngestRun
		var flags sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Endpoint,
			&r.LocationKey, &r.HTTPStatus, &r.ResponseSizeBytes, &r.HoursParsed, &flags,
			&r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		if flags.Valid {
			r.QualityFlags = strings.Split(flags.String, ",")
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
