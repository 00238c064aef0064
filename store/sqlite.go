package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pthm-cable/golem/rival"
)

// SQLiteStore persists step history in a SQLite database, one row per
// species per tick. History is reconstructed by replaying rows ordered by
// tick ascending, grouped per tick into one record.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and initializes
// the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// InitSchema creates the history table if it does not exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS population_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			species TEXT NOT NULL,
			population REAL NOT NULL,
			rival_source TEXT NOT NULL,
			created_at REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_population_history_tick
			ON population_history(tick);
	`)
	return err
}

// SaveStep inserts one row per species within a single transaction, so a
// partially written tick is never visible.
func (s *SQLiteStore) SaveStep(ctx context.Context, rec StepRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO population_history (tick, species, population, rival_source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for species, pop := range rec.Populations {
		if _, err := stmt.ExecContext(ctx, rec.Tick, species, pop, string(rec.RivalSource), rec.Timestamp); err != nil {
			return fmt.Errorf("inserting step %d species %q: %w", rec.Tick, species, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing step %d: %w", rec.Tick, err)
	}
	return nil
}

// History replays all rows grouped per tick, ordered by tick ascending.
func (s *SQLiteStore) History(ctx context.Context) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, species, population, rival_source, created_at
		FROM population_history
		ORDER BY tick ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LastStep returns the record for the highest tick, or nil when empty.
func (s *SQLiteStore) LastStep(ctx context.Context) (*StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, species, population, rival_source, created_at
		FROM population_history
		WHERE tick = (SELECT MAX(tick) FROM population_history)
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying last step: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// scanRecords groups per-species rows into step records. Rows must arrive
// ordered by tick ascending.
func scanRecords(rows *sql.Rows) ([]StepRecord, error) {
	var records []StepRecord
	for rows.Next() {
		var (
			tick       int
			species    string
			population float64
			source     string
			createdAt  float64
		)
		if err := rows.Scan(&tick, &species, &population, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if len(records) == 0 || records[len(records)-1].Tick != tick {
			records = append(records, StepRecord{
				Tick:        tick,
				Timestamp:   createdAt,
				Populations: make(map[string]float64),
				RivalSource: rival.Source(source),
			})
		}
		records[len(records)-1].Populations[species] = population
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return records, nil
}

// Clear deletes all history.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM population_history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Stats reports the database path and the number of stored steps.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var ticks int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT tick) FROM population_history`).Scan(&ticks); err != nil {
		return Stats{}, fmt.Errorf("counting steps: %w", err)
	}
	return Stats{DatabasePath: s.path, Records: ticks}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
