package db

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/radarsim/internal/detection"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "radarsim.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Expected foreign_keys=1, got %d", foreignKeys)
	}
}

func TestMigrations(t *testing.T) {
	db := newTestDB(t)

	latest, err := LatestMigrationVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("LatestMigrationVersion failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("latest = %d, want 2", latest)
	}
	version, dirty, err := db.MigrateVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != latest || dirty {
		t.Errorf("version = %d dirty = %v, want %d clean", version, dirty, latest)
	}

	// Running up again is a no-op.
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		t.Errorf("second MigrateUp failed: %v", err)
	}

	if err := db.MigrateDown(MigrationsFS()); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='snr_tables'`).Scan(&count); err != nil {
		t.Fatalf("sqlite_master query failed: %v", err)
	}
	if count != 0 {
		t.Error("snr_tables should be dropped after rolling back one migration")
	}
	if err := db.MigrateTo(MigrationsFS(), 2); err != nil {
		t.Fatalf("MigrateTo failed: %v", err)
	}
}

func TestRunRoundTrip(t *testing.T) {
	db := newTestDB(t)
	peak := 199.2
	run := &SimulationRun{
		Name:          "fmcw",
		Seed:          1 << 63,
		Waveform:      "chirp",
		Channels:      1,
		Pulses:        256,
		Samples:       160,
		Targets:       3,
		OutOfCoverage: 12,
		Elapsed:       1500 * time.Millisecond,
		PeakRangeM:    &peak,
		Summary:       json.RawMessage(`{"waveform":"chirp"}`),
	}
	if err := db.RecordRun(run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Fatal("RecordRun should assign an id and timestamp")
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	opts := cmp.Options{
		cmpopts.EquateApproxTime(time.Microsecond),
		cmp.Comparer(func(a, b json.RawMessage) bool { return bytes.Equal(a, b) }),
	}
	if diff := cmp.Diff(run, got, opts); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}

	second := &SimulationRun{Name: "later", Waveform: "cw", CreatedAt: run.CreatedAt.Add(time.Second)}
	if err := db.RecordRun(second); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].Name != "later" {
		t.Errorf("ListRuns = %+v, want newest first", runs)
	}
	if runs[0].PeakRangeM != nil {
		t.Error("unset peak range should stay nil")
	}

	if _, err := db.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSNRTableRoundTrip(t *testing.T) {
	db := newTestDB(t)
	table := &detection.SNRTable{
		Pfa:    1e-6,
		Pd:     0.9,
		Models: []detection.Model{detection.Swerling3, detection.Coherent},
		N:      []int{1, 2, 3},
		SNR:    [][]float64{{20.1, 17.5, 16.2}, {13.2, 10.2, 8.4}},
	}
	id, err := db.SaveSNRTable(table)
	if err != nil {
		t.Fatalf("SaveSNRTable failed: %v", err)
	}
	got, err := db.GetSNRTable(id)
	if err != nil {
		t.Fatalf("GetSNRTable failed: %v", err)
	}
	if diff := cmp.Diff(table, got); diff != "" {
		t.Errorf("GetSNRTable mismatch (-want +got):\n%s", diff)
	}

	infos, err := db.ListSNRTables()
	if err != nil {
		t.Fatalf("ListSNRTables failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != id || infos[0].MaxN != 3 {
		t.Errorf("ListSNRTables = %+v", infos)
	}

	if err := db.DeleteSNRTable(id); err != nil {
		t.Fatalf("DeleteSNRTable failed: %v", err)
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM snr_table_rows`).Scan(&rows); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if rows != 0 {
		t.Errorf("rows left after delete = %d, want 0 (cascade)", rows)
	}
	if err := db.DeleteSNRTable(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v", err)
	}
	if _, err := db.GetSNRTable(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSNRTable after delete error = %v", err)
	}
	if _, err := db.SaveSNRTable(&detection.SNRTable{Models: []detection.Model{detection.Real}}); err == nil {
		t.Error("inconsistent table should be rejected")
	}
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	var out bytes.Buffer
	if err := RunMigrateCommand([]string{"up"}, path, &out); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 2") {
		t.Errorf("status output = %q", out.String())
	}

	out.Reset()
	if err := RunMigrateCommand([]string{"version", "1"}, path, &out); err != nil {
		t.Fatalf("migrate version failed: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 1") {
		t.Errorf("status output = %q", out.String())
	}

	for _, args := range [][]string{nil, {"sideways"}, {"version"}, {"version", "x"}} {
		if err := RunMigrateCommand(args, path, &out); err == nil {
			t.Errorf("RunMigrateCommand(%v) should fail", args)
		}
	}
	out.Reset()
	if err := RunMigrateCommand([]string{"help"}, path, &out); err != nil || !strings.Contains(out.String(), "Usage: radarsim migrate") {
		t.Errorf("help = %q, %v", out.String(), err)
	}
}
