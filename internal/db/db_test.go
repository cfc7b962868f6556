package db

import (
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialdrones/crazyflie-scripts/internal/demo"
	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEmbeddedMigrations(t *testing.T) {
	migFS, err := getMigrationsFS()
	require.NoError(t, err)

	entries, err := fs.ReadDir(migFS, ".")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_sessions.up.sql")
	assert.Contains(t, names, "000001_create_sessions.down.sql")
}

func TestNewDB_Migrates(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	s, err := db.CreateSession("respiration")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	sessions, err := db.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID, sessions[0].ID)
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	var n int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='sessions'").Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, db.MigrateUp())
}

func TestSession_RecordAndRead(t *testing.T) {
	db := setupTestDB(t)
	s, err := db.CreateSession("respiration")
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	want := []demo.Sample{
		{
			At:       base,
			Seq:      0,
			Raw:      512,
			Setpoint: mapping.HoverSetpoint{Z: 0.85},
			LED:      &mapping.RGB{R: 50, G: 0, B: 50},
		},
		{
			At:       base.Add(10 * time.Millisecond),
			Seq:      1,
			Raw:      530,
			Setpoint: mapping.HoverSetpoint{VX: -0.4, VY: 0.2, Z: 0.85},
		},
	}
	for _, smp := range want {
		require.NoError(t, s.Record(smp))
	}
	require.NoError(t, s.Finish())

	got, err := db.SessionSamples(s.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SessionSamples mismatch (-want +got):\n%s", diff)
	}

	sessions, err := db.Sessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	info := sessions[0]
	assert.Equal(t, "respiration", info.Demo)
	assert.Equal(t, 2, info.Samples)
	require.NotNil(t, info.FinishedAt)
	assert.False(t, info.FinishedAt.Before(info.StartedAt))
	assert.Contains(t, info.String(), "respiration")
}

func TestSessions_NewestFirstAndLimit(t *testing.T) {
	db := setupTestDB(t)
	var ids []string
	for _, name := range []string{"flowcheck", "respiration", "avoidance"} {
		s, err := db.CreateSession(name)
		require.NoError(t, err)
		ids = append(ids, s.ID)
		// Distinct start times.
		time.Sleep(2 * time.Millisecond)
	}

	sessions, err := db.Sessions(2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, ids[2], sessions[0].ID)
	assert.Equal(t, ids[1], sessions[1].ID)
	assert.Nil(t, sessions[0].FinishedAt)
	assert.Zero(t, sessions[0].Samples)
	assert.Contains(t, sessions[0].String(), "running")
}

func TestSessionSamples_Unknown(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.SessionSamples("does-not-exist")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_IsRecorder(t *testing.T) {
	var _ demo.Recorder = (*Session)(nil)
}
