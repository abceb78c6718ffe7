package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lox/hourlyweather/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) the sqlite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent refreshes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

const locationColumns = `id, name, country, admin1, latitude, longitude, timezone, selected, created_at`

func scanLocation(row interface{ Scan(...any) error }) (*models.Location, error) {
	var loc models.Location
	var country, admin1 sql.NullString
	if err := row.Scan(&loc.ID, &loc.Name, &country, &admin1, &loc.Latitude, &loc.Longitude,
		&loc.Timezone, &loc.Selected, &loc.CreatedAt); err != nil {
		return nil, err
	}
	loc.Country = country.String
	loc.Admin1 = admin1.String
	return &loc, nil
}

// UpsertLocation saves a place keyed by its coordinates, rounded with
// RoundCoord, and returns the stored row. Places within the same rounded
// cell share one row and one cached series.
func (s *Store) UpsertLocation(p models.Place) (*models.Location, error) {
	p.Latitude = RoundCoord(p.Latitude)
	p.Longitude = RoundCoord(p.Longitude)
	tz := p.Timezone
	if tz == "" {
		tz = "GMT"
	}
	_, err := s.db.Exec(`
		INSERT INTO locations (name, country, admin1, latitude, longitude, timezone, selected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, FALSE, ?)
		ON CONFLICT(latitude, longitude) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			admin1 = excluded.admin1,
			timezone = excluded.timezone
	`, p.Name, p.Country, p.Admin1, p.Latitude, p.Longitude, tz, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert location: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+locationColumns+` FROM locations WHERE latitude = ? AND longitude = ?`,
		p.Latitude, p.Longitude)
	loc, err := scanLocation(row)
	if err != nil {
		return nil, fmt.Errorf("read back location: %w", err)
	}
	return loc, nil
}

func (s *Store) GetLocation(id int64) (*models.Location, error) {
	row := s.db.QueryRow(`SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	loc, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// SelectLocation marks id as the selected location, clearing any previous selection.
func (s *Store) SelectLocation(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin select: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE locations SET selected = FALSE WHERE selected`); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	res, err := tx.Exec(`UPDATE locations SET selected = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("select location %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ClearSelection leaves no location selected.
func (s *Store) ClearSelection() error {
	_, err := s.db.Exec(`UPDATE locations SET selected = FALSE WHERE selected`)
	return err
}

// SelectedLocation returns the selected location, or nil if none is selected.
func (s *Store) SelectedLocation() (*models.Location, error) {
	row := s.db.QueryRow(`SELECT ` + locationColumns + ` FROM locations WHERE selected LIMIT 1`)
	loc, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *Store) ListLocations() ([]models.Location, error) {
	rows, err := s.db.Query(`SELECT ` + locationColumns + ` FROM locations ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *loc)
	}
	return locations, rows.Err()
}

// DeleteLocation removes a saved location and its cached series.
func (s *Store) DeleteLocation(id int64) error {
	loc, err := s.GetLocation(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM locations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete location %d: %w", id, err)
	}
	if _, err := s.db.Exec(`DELETE FROM series_cache WHERE location_key = ?`,
		LocationKey(loc.Latitude, loc.Longitude)); err != nil {
		return fmt.Errorf("delete cached series: %w", err)
	}
	return nil
}
