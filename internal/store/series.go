package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/lox/hourlyweather/internal/models"
)

// RoundCoord rounds a coordinate to 4 decimal places (~10m), the precision
// saved locations and cached series are keyed by.
func RoundCoord(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// LocationKey identifies a cached series by coordinates rounded to ~10m.
func LocationKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", RoundCoord(lat), RoundCoord(lon))
}

// seriesRecord is the cached encoding of a series. Nulls are kept as JSON null.
type seriesRecord struct {
	Start     time.Time                    `json:"start"`
	Timezone  string                       `json:"timezone"`
	UTCOffset int                          `json:"utc_offset,omitempty"`
	Latitude  float64                      `json:"latitude"`
	Longitude float64                      `json:"longitude"`
	Units     map[models.Metric]string     `json:"units,omitempty"`
	Metrics   map[models.Metric][]*float64 `json:"metrics"`
}

func encodeSeries(series *models.HourlySeries) ([]byte, error) {
	rec := seriesRecord{
		Start:     series.Start,
		Timezone:  series.Timezone,
		UTCOffset: series.UTCOffset,
		Latitude:  series.Latitude,
		Longitude: series.Longitude,
		Units:     series.Units,
		Metrics:   make(map[models.Metric][]*float64, len(series.Metrics)),
	}
	for m, samples := range series.Metrics {
		vals := make([]*float64, len(samples))
		for i, s := range samples {
			if s.Valid {
				v := s.Float64
				vals[i] = &v
			}
		}
		rec.Metrics[m] = vals
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(rec); err != nil {
		return nil, fmt.Errorf("encode series: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSeries(data []byte) (*models.HourlySeries, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress series: %w", err)
	}
	var rec seriesRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}

	series := &models.HourlySeries{
		Start:     rec.Start,
		Timezone:  rec.Timezone,
		UTCOffset: rec.UTCOffset,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Units:     rec.Units,
		Metrics:   make(map[models.Metric]models.Samples, len(rec.Metrics)),
	}
	for m, vals := range rec.Metrics {
		samples := make(models.Samples, len(vals))
		for i, v := range vals {
			if v != nil {
				samples[i] = sql.NullFloat64{Float64: *v, Valid: true}
			}
		}
		series.Metrics[m] = samples
	}
	return series, nil
}

// PutSeries caches series under key until fetchedAt+ttl.
func (s *Store) PutSeries(key string, series *models.HourlySeries, fetchedAt time.Time, ttl time.Duration) error {
	if series == nil {
		return fmt.Errorf("put series %s: nil series", key)
	}
	data, err := encodeSeries(series)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO series_cache (location_key, timezone, fetched_at, expires_at, series_compressed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(location_key) DO UPDATE SET
			timezone = excluded.timezone,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at,
			series_compressed = excluded.series_compressed
	`, key, series.Timezone, fetchedAt.UTC(), fetchedAt.Add(ttl).Unix(), data)
	if err != nil {
		return fmt.Errorf("put series %s: %w", key, err)
	}
	return nil
}

// GetSeries returns the cached series for key, or nil if it is missing or
// expired at now.
func (s *Store) GetSeries(key string, now time.Time) (*models.HourlySeries, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT series_compressed FROM series_cache
		WHERE location_key = ? AND expires_at > ?
	`, key, now.Unix()).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", key, err)
	}
	return decodeSeries(data)
}

// PruneSeries deletes cache entries expired at now and returns how many went.
func (s *Store) PruneSeries(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM series_cache WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune series: %w", err)
	}
	return res.RowsAffected()
}
