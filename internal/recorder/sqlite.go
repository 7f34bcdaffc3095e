package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"IrrigationSentinel/internal/calculator"
	"IrrigationSentinel/internal/model"
)

// ErrNoRuns is returned by LatestRun on an empty database.
var ErrNoRuns = errors.New("no evaluation runs recorded")

// SQLiteRecorder persists evaluation runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluation_runs (
			run_id                 TEXT PRIMARY KEY,
			timestamp              INTEGER NOT NULL,
			source                 TEXT,
			ndvi_threshold         REAL,
			field_capacity         REAL,
			soil_moisture_fraction REAL,
			et0_threshold          REAL,
			rain_threshold         REAL,
			crop_coefficient       REAL,
			records                INTEGER,
			irrigation_events      INTEGER,
			total_irrigation_mm    REAL,
			total_etc              REAL,
			mean_ndvi              REAL,
			first_observation      INTEGER,
			last_observation       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON evaluation_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			run_id        TEXT NOT NULL,
			position      INTEGER NOT NULL,
			observed_at   INTEGER NOT NULL,
			ndvi          REAL,
			soil_moisture REAL,
			et0           REAL,
			forecast_rain REAL,
			irrigate      INTEGER,
			etc           REAL,
			irrigation_mm REAL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_observed ON decisions(observed_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and all of its decisions in one transaction.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := snap.EvaluatedAt
	if at.IsZero() {
		at = time.Now()
	}
	p := snap.Parameters
	s := snap.Summary

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO evaluation_runs
		(run_id, timestamp, source,
		 ndvi_threshold, field_capacity, soil_moisture_fraction,
		 et0_threshold, rain_threshold, crop_coefficient,
		 records, irrigation_events, total_irrigation_mm, total_etc, mean_ndvi,
		 first_observation, last_observation)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.RunID, at.Unix(), snap.Source,
		p.NDVIThreshold, p.FieldCapacity, p.SoilMoistureFraction,
		p.ET0Threshold, p.RainThreshold, p.CropCoefficient,
		s.Records, s.IrrigationEvents, s.TotalIrrigationMM, s.TotalETc, s.MeanNDVI,
		s.First.Unix(), s.Last.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO decisions
		(run_id, position, observed_at, ndvi, soil_moisture, et0, forecast_rain, irrigate, etc, irrigation_mm)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare decisions: %w", err)
	}
	defer stmt.Close()

	for i, d := range snap.Decisions {
		if _, err := stmt.Exec(snap.RunID, i, d.Timestamp.Unix(),
			d.NDVI, d.SoilMoisture, d.ET0, d.ForecastRain,
			d.Irrigate, d.ETc, d.IrrigationMM,
		); err != nil {
			return fmt.Errorf("insert decision %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestRun loads the most recently recorded run with its decisions in series order.
func (r *SQLiteRecorder) LatestRun() (*RunSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &RunSnapshot{}
	var at, first, last int64
	err := r.db.QueryRow(`SELECT run_id, timestamp, source,
			ndvi_threshold, field_capacity, soil_moisture_fraction,
			et0_threshold, rain_threshold, crop_coefficient,
			records, irrigation_events, total_irrigation_mm, total_etc, mean_ndvi,
			first_observation, last_observation
		FROM evaluation_runs ORDER BY timestamp DESC, rowid DESC LIMIT 1`).Scan(
		&snap.RunID, &at, &snap.Source,
		&snap.Parameters.NDVIThreshold, &snap.Parameters.FieldCapacity, &snap.Parameters.SoilMoistureFraction,
		&snap.Parameters.ET0Threshold, &snap.Parameters.RainThreshold, &snap.Parameters.CropCoefficient,
		&snap.Summary.Records, &snap.Summary.IrrigationEvents, &snap.Summary.TotalIrrigationMM,
		&snap.Summary.TotalETc, &snap.Summary.MeanNDVI,
		&first, &last,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	snap.EvaluatedAt = time.Unix(at, 0)
	snap.Summary.First = time.Unix(first, 0).UTC()
	snap.Summary.Last = time.Unix(last, 0).UTC()

	rows, err := r.db.Query(`SELECT observed_at, ndvi, soil_moisture, et0, forecast_rain, irrigate, etc, irrigation_mm
		FROM decisions WHERE run_id = ? ORDER BY position`, snap.RunID)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d model.Decision
		var observed int64
		if err := rows.Scan(&observed, &d.NDVI, &d.SoilMoisture, &d.ET0, &d.ForecastRain,
			&d.Irrigate, &d.ETc, &d.IrrigationMM); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Timestamp = time.Unix(observed, 0).UTC()
		snap.Decisions = append(snap.Decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}

	// Soil range and recent ET0 are not stored; rebuild them from the rows.
	derived := calculator.Summarize(snap.Decisions)
	snap.Summary.MinSoilMoisture = derived.MinSoilMoisture
	snap.Summary.MaxSoilMoisture = derived.MaxSoilMoisture
	snap.Summary.RecentET0Mean = derived.RecentET0Mean
	return snap, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
