package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/socialdrones/crazyflie-scripts/internal/demo"
	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
)

// DefaultSessionLimit caps Sessions when no limit is given.
const DefaultSessionLimit = 20

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo summarises a stored session.
type SessionInfo struct {
	ID         string     `json:"id"`
	Demo       string     `json:"demo"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Samples    int        `json:"samples"`
}

func (s SessionInfo) String() string {
	state := "running"
	if s.FinishedAt != nil {
		state = s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
	}
	return fmt.Sprintf("%s  %-12s %s  %6d samples  %s",
		s.ID, s.Demo, s.StartedAt.Format(time.RFC3339), s.Samples, state)
}

// Session is an open recording. It implements demo.Recorder.
type Session struct {
	ID        string
	Demo      string
	StartedAt time.Time

	db   *DB
	mu   sync.Mutex
	next int
}

// CreateSession starts a new session for the named demo.
func (db *DB) CreateSession(demoName string) (*Session, error) {
	s := &Session{
		ID:        uuid.New().String(),
		Demo:      demoName,
		StartedAt: time.Now().UTC(),
		db:        db,
	}
	_, err := db.Exec(
		"INSERT INTO sessions (session_id, demo, started_at) VALUES (?, ?, ?)",
		s.ID, s.Demo, s.StartedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Record appends a sample to the session.
func (s *Session) Record(sample demo.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r, g, b sql.NullInt64
	if sample.LED != nil {
		r = sql.NullInt64{Int64: int64(sample.LED.R), Valid: true}
		g = sql.NullInt64{Int64: int64(sample.LED.G), Valid: true}
		b = sql.NullInt64{Int64: int64(sample.LED.B), Valid: true}
	}
	sp := sample.Setpoint
	_, err := s.db.Exec(`
		INSERT INTO session_samples (
			session_id, sample_index, at, frame_seq, raw,
			vx, vy, yaw_rate, z, led_r, led_g, led_b
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.next, sample.At.UnixNano(), sample.Seq, sample.Raw,
		sp.VX, sp.VY, sp.YawRate, sp.Z, r, g, b,
	)
	if err != nil {
		return fmt.Errorf("failed to record sample %d: %w", s.next, err)
	}
	s.next++
	return nil
}

// Finish stamps the session's end time.
func (s *Session) Finish() error {
	_, err := s.db.Exec(
		"UPDATE sessions SET finished_at = ? WHERE session_id = ?",
		time.Now().UTC().UnixNano(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (db *DB) Sessions(limit int) ([]SessionInfo, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	rows, err := db.Query(`
		SELECT s.session_id, s.demo, s.started_at, s.finished_at, COUNT(ss.sample_index)
		FROM sessions s
		LEFT JOIN session_samples ss ON ss.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var (
			info     SessionInfo
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&info.ID, &info.Demo, &started, &finished, &info.Samples); err != nil {
			return nil, err
		}
		info.StartedAt = time.Unix(0, started).UTC()
		if finished.Valid {
			t := time.Unix(0, finished.Int64).UTC()
			info.FinishedAt = &t
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SessionSamples returns every sample of the session in recording order.
func (db *DB) SessionSamples(id string) ([]demo.Sample, error) {
	var exists bool
	if err := db.QueryRow("SELECT COUNT(*) > 0 FROM sessions WHERE session_id = ?", id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	rows, err := db.Query(`
		SELECT at, frame_seq, raw, vx, vy, yaw_rate, z, led_r, led_g, led_b
		FROM session_samples
		WHERE session_id = ?
		ORDER BY sample_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []demo.Sample
	for rows.Next() {
		var (
			s       demo.Sample
			at      int64
			r, g, b sql.NullInt64
		)
		if err := rows.Scan(&at, &s.Seq, &s.Raw,
			&s.Setpoint.VX, &s.Setpoint.VY, &s.Setpoint.YawRate, &s.Setpoint.Z,
			&r, &g, &b); err != nil {
			return nil, err
		}
		s.At = time.Unix(0, at).UTC()
		if r.Valid {
			s.LED = &mapping.RGB{R: int(r.Int64), G: int(g.Int64), B: int(b.Int64)}
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}
