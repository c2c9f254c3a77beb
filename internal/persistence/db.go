// Package persistence provides the SQLite run index: one row per completed
// run plus its notable events. Run state itself lives only in turn logs.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/civ-diplomacy/internal/engine"
)

// DB wraps a SQLite connection for the run index.
type DB struct {
	conn *sqlx.DB
}

// RunRecord is one completed run.
type RunRecord struct {
	ID         string `db:"id" json:"id"`
	Seed       int64  `db:"seed" json:"seed"`
	Scenario   string `db:"scenario" json:"scenario"`
	EndType    string `db:"end_type" json:"end_type"`
	WinnerID   *int64 `db:"winner_id" json:"winner_id,omitempty"`
	Turns      int    `db:"turns" json:"turns"`
	NumCivs    int    `db:"num_civs" json:"num_civs"`
	NumPlanets int    `db:"num_planets" json:"num_planets"`
	LogPath    string `db:"log_path" json:"log_path"`
	CreatedAt  int64  `db:"created_at" json:"created_at"` // Unix seconds
}

// NewRunRecord describes a finished simulation under a fresh run id.
func NewRunRecord(sim *engine.Simulation, out engine.Outcome, logPath string) RunRecord {
	rec := RunRecord{
		ID:         uuid.NewString(),
		Seed:       sim.Seed,
		Scenario:   string(sim.Config.Scenario),
		EndType:    string(out.End),
		Turns:      out.Turn,
		NumCivs:    len(sim.Civs),
		NumPlanets: sim.Map.PlanetCount(),
		LogPath:    logPath,
		CreatedAt:  time.Now().Unix(),
	}
	if out.WinnerID != nil {
		w := int64(*out.WinnerID)
		rec.WinnerID = &w
	}
	return rec
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		end_type TEXT NOT NULL,
		winner_id INTEGER,
		turns INTEGER NOT NULL,
		num_civs INTEGER NOT NULL,
		num_planets INTEGER NOT NULL,
		log_path TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		turn INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_end_type ON runs(end_type);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun records a completed run and its events in one transaction.
func (db *DB) SaveRun(rec RunRecord, events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT INTO runs
		(id, seed, scenario, end_type, winner_id, turns, num_civs, num_planets, log_path, created_at)
		VALUES (:id, :seed, :scenario, :end_type, :winner_id, :turns, :num_civs, :num_planets, :log_path, :created_at)`,
		rec)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, turn, description, category) VALUES (?, ?, ?, ?)",
			rec.ID, e.Turn, e.Description, e.Category,
		)
		if err != nil {
			return fmt.Errorf("insert event for run %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("run recorded", "run", rec.ID, "end_type", rec.EndType, "events", len(events))
	return nil
}

// Run returns one run by id.
func (db *DB) Run(id string) (RunRecord, error) {
	var rec RunRecord
	err := db.conn.Get(&rec, "SELECT * FROM runs WHERE id = ?", id)
	return rec, err
}

// TallyEndTypes counts runs per end type. An empty scenario counts every run.
func (db *DB) TallyEndTypes(scenario string) (map[engine.EndType]int, error) {
	var rows []struct {
		EndType string `db:"end_type"`
		N       int    `db:"n"`
	}
	query := "SELECT end_type, COUNT(*) AS n FROM runs GROUP BY end_type"
	args := []any{}
	if scenario != "" {
		query = "SELECT end_type, COUNT(*) AS n FROM runs WHERE scenario = ? GROUP BY end_type"
		args = append(args, scenario)
	}
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}

	tally := map[engine.EndType]int{
		engine.EndCulture:   0,
		engine.EndMilitary:  0,
		engine.EndStalemate: 0,
	}
	for _, r := range rows {
		tally[engine.EndType(r.EndType)] = r.N
	}
	return tally, nil
}

// RecentRuns returns the most recent N runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// RunEvents returns a run's events in turn order.
func (db *DB) RunEvents(runID string) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT turn, description, category FROM events WHERE run_id = ? ORDER BY id",
		runID,
	)
	return events, err
}
