package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// RawPayload represents a stored API response payload.
type RawPayload struct {
	ID                int64
	IngestRunID       sql.NullInt64
	FetchedAt         time.Time
	Source            string
	Endpoint          string
	LocationKey       sql.NullString
	PayloadCompressed []byte
	PayloadHash       string
}

// StoreRawPayload stores a compressed API response payload.
// Returns the payload ID, or 0 if the payload was a duplicate (same hash).
func (s *Store) StoreRawPayload(runID *int64, source, endpoint, locationKey string, payload []byte) (int64, error) {

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}
	compressed := buf.Bytes()

	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	var ingestRunID sql.NullInt64
	if runID != nil {
		ingestRunID = sql.NullInt64{Int64: *runID, Valid: true}
	}

	var key sql.NullString
	if locationKey != "" {
		key = sql.NullString{String: locationKey, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads
		(ingest_run_id, fetched_at, source, endpoint, location_key, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, ingestRunID, time.Now().UTC(), source, endpoint, key, compressed, hashHex)
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return 0, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	return id, nil
}

// GetRawPayload retrieves and decompresses a stored payload by ID.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get raw payload %d: %w", id, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

const rawPayloadColumns = `id, ingest_run_id, fetched_at, source, endpoint, location_key,
		       payload_compressed, payload_hash`

func scanRawPayload(row *sql.Row) (*RawPayload, error) {
	var p RawPayload
	err := row.Scan(&p.ID, &p.IngestRunID, &p.FetchedAt, &p.Source, &p.Endpoint,
		&p.LocationKey, &p.PayloadCompressed, &p.PayloadHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetRawPayloadByHash retrieves a payload by its hash (for deduplication checks).
func (s *Store) GetRawPayloadByHash(hash string) (*RawPayload, error) {
	return scanRawPayload(s.db.QueryRow(`
		SELECT `+rawPayloadColumns+`
		FROM raw_payloads WHERE payload_hash = ?
	`, hash))
}

// GetRawPayloadForRun returns the payload archived by an ingest run, or nil
// if the run stored none (failed before a body arrived, or a duplicate).
func (s *Store) GetRawPayloadForRun(runID int64) (*RawPayload, error) {
	return scanRawPayload(s.db.QueryRow(`
		SELECT `+rawPayloadColumns+`
		FROM raw_payloads WHERE ingest_run_id = ?
		ORDER BY id DESC LIMIT 1
	`, runID))
}

// sqliteTimeLayout is the second-precision prefix of a stored UTC timestamp.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// RawPayloadStats contains storage statistics for raw payloads.
type RawPayloadStats struct {
	TotalCount      int              `json:"total_count"`
	TotalSizeBytes  int64            `json:"total_size_bytes"`
	OldestFetchedAt time.Time        `json:"oldest_fetched_at"`
	NewestFetchedAt time.Time        `json:"newest_fetched_at"`
	CountBySource   map[string]int   `json:"count_by_source"`
	SizeBySource    map[string]int64 `json:"size_by_source"`
}

// GetRawPayloadStats returns storage statistics for raw payloads.
func (s *Store) GetRawPayloadStats() (*RawPayloadStats, error) {
	stats := &RawPayloadStats{
		CountBySource: make(map[string]int),
		SizeBySource:  make(map[string]int64),
	}

	row := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0),
		       MIN(SUBSTR(fetched_at, 1, 19)), MAX(SUBSTR(fetched_at, 1, 19))
		FROM raw_payloads
	`)
	var oldest, newest sql.NullString
	if err := row.Scan(&stats.TotalCount, &stats.TotalSizeBytes, &oldest, &newest); err != nil {
		return nil, err
	}
	if oldest.Valid {
		stats.OldestFetchedAt, _ = time.Parse(sqliteTimeLayout, oldest.String)
	}
	if newest.Valid {
		stats.NewestFetchedAt, _ = time.Parse(sqliteTimeLayout, newest.String)
	}

	rows, err := s.db.Query(`
		SELECT source, COUNT(*), SUM(LENGTH(payload_compressed))
		FROM raw_payloads
		GROUP BY source
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		var size int64
		if err := rows.Scan(&source, &count, &size); err != nil {
			return nil, err
		}
		stats.CountBySource[source] = count
		stats.SizeBySource[source] = size
	}

	return stats, rows.Err()
}

// CleanupOldRawPayloads deletes raw payloads older than the specified number of days.
// Returns the number of deleted records.
func (s *Store) CleanupOldRawPayloads(retentionDays int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM raw_payloads
		WHERE SUBSTR(fetched_at, 1, 19) < datetime('now', '-' || ? || ' days')
	`, retentionDays)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
