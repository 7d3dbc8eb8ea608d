package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/radarsim/internal/detection"
)

// SNRTableInfo describes a stored table without its rows.
type SNRTableInfo struct {
	ID        string    `json:"table_id"`
	CreatedAt time.Time `json:"created_at"`
	Pfa       float64   `json:"pfa"`
	Pd        float64   `json:"pd"`
	MaxN      int       `json:"max_n"`
}

// SaveSNRTable stores t and its rows in one transaction and returns the new
// table id.
func (db *DB) SaveSNRTable(t *detection.SNRTable) (string, error) {
	if t == nil || len(t.SNR) != len(t.Models) {
		return "", fmt.Errorf("SNR table is empty or inconsistent")
	}
	id := uuid.NewString()
	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO snr_tables (table_id, created_at, pfa, pd, max_n) VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UTC().UnixNano(), t.Pfa, t.Pd, len(t.N)); err != nil {
		return "", fmt.Errorf("failed to insert SNR table: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO snr_table_rows (table_id, model, model_index, n, snr_db) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()
	for mi, m := range t.Models {
		for i, n := range t.N {
			if _, err := stmt.Exec(id, m.String(), mi, n, t.SNR[mi][i]); err != nil {
				return "", fmt.Errorf("failed to insert %v n=%d: %w", m, n, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit SNR table: %w", err)
	}
	return id, nil
}

// GetSNRTable loads a stored table.
func (db *DB) GetSNRTable(id string) (*detection.SNRTable, error) {
	var info SNRTableInfo
	var createdAt int64
	err := db.QueryRow(`SELECT table_id, created_at, pfa, pd, max_n FROM snr_tables WHERE table_id = ?`, id).
		Scan(&info.ID, &createdAt, &info.Pfa, &info.Pd, &info.MaxN)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("SNR table %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load SNR table %s: %w", id, err)
	}

	rows, err := db.Query(`SELECT model, model_index, n, snr_db FROM snr_table_rows WHERE table_id = ? ORDER BY model_index, n`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load SNR rows: %w", err)
	}
	defer rows.Close()

	t := &detection.SNRTable{Pfa: info.Pfa, Pd: info.Pd, N: make([]int, info.MaxN)}
	for i := range t.N {
		t.N[i] = i + 1
	}
	for rows.Next() {
		var (
			name  string
			index int
			n     int
			snr   float64
		)
		if err := rows.Scan(&name, &index, &n, &snr); err != nil {
			return nil, fmt.Errorf("failed to scan SNR row: %w", err)
		}
		for len(t.Models) <= index {
			t.Models = append(t.Models, 0)
			t.SNR = append(t.SNR, make([]float64, info.MaxN))
		}
		m, err := detection.ParseModel(name)
		if err != nil {
			return nil, err
		}
		if n < 1 || n > info.MaxN {
			return nil, fmt.Errorf("SNR row n=%d outside [1, %d]", n, info.MaxN)
		}
		t.Models[index] = m
		t.SNR[index][n-1] = snr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ListSNRTables returns stored tables, newest first.
func (db *DB) ListSNRTables() ([]SNRTableInfo, error) {
	rows, err := db.Query(`SELECT table_id, created_at, pfa, pd, max_n FROM snr_tables ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list SNR tables: %w", err)
	}
	defer rows.Close()

	var out []SNRTableInfo
	for rows.Next() {
		var info SNRTableInfo
		var createdAt int64
		if err := rows.Scan(&info.ID, &createdAt, &info.Pfa, &info.Pd, &info.MaxN); err != nil {
			return nil, fmt.Errorf("failed to scan SNR table: %w", err)
		}
		info.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSNRTable removes a table and its rows.
func (db *DB) DeleteSNRTable(id string) error {
	res, err := db.Exec(`DELETE FROM snr_tables WHERE table_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete SNR table %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("SNR table %s: %w", id, ErrNotFound)
	}
	return nil
}
