package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run or table id is unknown.
var ErrNotFound = errors.New("not found")

// SimulationRun records one simulate invocation.
type SimulationRun struct {
	ID              string          `json:"run_id"`
	Name            string          `json:"name"`
	CreatedAt       time.Time       `json:"created_at"`
	Seed            uint64          `json:"seed"`
	Waveform        string          `json:"waveform"`
	Channels        int             `json:"channels"`
	Pulses          int             `json:"pulses"`
	Samples         int             `json:"samples"`
	Targets         int             `json:"targets"`
	OutOfCoverage   int             `json:"out_of_coverage"`
	Elapsed         time.Duration   `json:"elapsed_ns"`
	PeakRangeM      *float64        `json:"peak_range_m,omitempty"`
	PeakVelocityMPS *float64        `json:"peak_velocity_mps,omitempty"`
	Summary         json.RawMessage `json:"summary"`
}

// RecordRun inserts run, assigning an ID and creation time when unset.
func (db *DB) RecordRun(run *SimulationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	summary := run.Summary
	if len(summary) == 0 {
		summary = json.RawMessage("{}")
	}
	_, err := db.Exec(`
		INSERT INTO simulation_runs (
			run_id, name, created_at, seed, waveform, channels, pulses, samples,
			targets, out_of_coverage, elapsed_ms, peak_range_m, peak_velocity_mps, summary_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.CreatedAt.UnixNano(), int64(run.Seed), run.Waveform,
		run.Channels, run.Pulses, run.Samples, run.Targets, run.OutOfCoverage,
		float64(run.Elapsed)/float64(time.Millisecond), run.PeakRangeM, run.PeakVelocityMPS, string(summary),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const runColumns = `run_id, name, created_at, seed, waveform, channels, pulses, samples,
	targets, out_of_coverage, elapsed_ms, peak_range_m, peak_velocity_mps, summary_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*SimulationRun, error) {
	var (
		run       SimulationRun
		createdAt int64
		seed      int64
		elapsedMS float64
		peakRange sql.NullFloat64
		peakVel   sql.NullFloat64
		summary   string
	)
	err := row.Scan(&run.ID, &run.Name, &createdAt, &seed, &run.Waveform, &run.Channels,
		&run.Pulses, &run.Samples, &run.Targets, &run.OutOfCoverage, &elapsedMS,
		&peakRange, &peakVel, &summary)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	run.Seed = uint64(seed)
	run.Elapsed = time.Duration(elapsedMS * float64(time.Millisecond))
	if peakRange.Valid {
		run.PeakRangeM = &peakRange.Float64
	}
	if peakVel.Valid {
		run.PeakVelocityMPS = &peakVel.Float64
	}
	run.Summary = json.RawMessage(summary)
	return &run, nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(id string) (*SimulationRun, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM simulation_runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit ≤ 0 means 100.
func (db *DB) ListRuns(limit int) ([]SimulationRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM simulation_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []SimulationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
