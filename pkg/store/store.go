package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nergy-se/hourcontroller/pkg/api/v1/config"
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Store persists fetched prices and published hour objects in sqlite.
type Store struct {
	db *sql.DB
}

// Hours is the last published state of the hour selection.
type Hours struct {
	Date            string
	Today           hourselection.HourObject
	Tomorrow        hourselection.HourObject
	PreserveInterim bool
	UpdatedAt       time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS price_cache (
		date TEXT PRIMARY KEY,
		today TEXT NOT NULL,
		tomorrow TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hours (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		date TEXT NOT NULL,
		today TEXT NOT NULL,
		tomorrow TEXT NOT NULL,
		preserve_interim INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SavePrices caches prices for p.Date.
func (s *Store) SavePrices(p config.Prices) error {
	today, err := json.Marshal(nonNil(p.Today))
	if err != nil {
		return err
	}
	tomorrow, err := json.Marshal(nonNil(p.Tomorrow))
	if err != nil {
		return err
	}
	query := `INSERT OR REPLACE INTO price_cache (date, today, tomorrow, fetched_at) VALUES (?, ?, ?, ?)`
	_, err = s.db.Exec(query, p.Date, string(today), string(tomorrow), time.Now())
	return err
}

// GetPrices returns cached prices for date.
func (s *Store) GetPrices(date string) (config.Prices, error) {
	var today, tomorrow string
	err := s.db.QueryRow(`SELECT today, tomorrow FROM price_cache WHERE date = ?`, date).Scan(&today, &tomorrow)
	if errors.Is(err, sql.ErrNoRows) {
		return config.Prices{}, fmt.Errorf("prices for %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return config.Prices{}, err
	}

	p := config.Prices{Date: date}
	if err := json.Unmarshal([]byte(today), &p.Today); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(tomorrow), &p.Tomorrow); err != nil {
		return p, err
	}
	return p, nil
}

// PrunePrices removes cached prices older than date.
func (s *Store) PrunePrices(date string) error {
	_, err := s.db.Exec(`DELETE FROM price_cache WHERE date < ?`, date)
	return err
}

func (s *Store) SaveHours(h Hours) error {
	today, err := json.Marshal(h.Today)
	if err != nil {
		return err
	}
	tomorrow, err := json.Marshal(h.Tomorrow)
	if err != nil {
		return err
	}
	query := `INSERT OR REPLACE INTO hours (id, date, today, tomorrow, preserve_interim, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, h.Date, string(today), string(tomorrow), boolToInt(h.PreserveInterim), time.Now())
	return err
}

// LoadHours returns the last saved hours.
func (s *Store) LoadHours() (Hours, error) {
	var today, tomorrow string
	var preserveInterim int
	h := Hours{}
	err := s.db.QueryRow(`SELECT date, today, tomorrow, preserve_interim, updated_at FROM hours WHERE id = 1`).
		Scan(&h.Date, &today, &tomorrow, &preserveInterim, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return h, fmt.Errorf("hours: %w", ErrNotFound)
	}
	if err != nil {
		return h, err
	}

	h.Today = hourselection.NewHourObject()
	h.Tomorrow = hourselection.NewHourObject()
	if err := json.Unmarshal([]byte(today), &h.Today); err != nil {
		return h, err
	}
	if err := json.Unmarshal([]byte(tomorrow), &h.Tomorrow); err != nil {
		return h, err
	}
	h.PreserveInterim = preserveInterim == 1
	return h, nil
}

func nonNil(f []float64) []float64 {
	if f == nil {
		return []float64{}
	}
	return f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
