package scheduler

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tubequeue/tubequeue/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS schedules (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	url      TEXT NOT NULL,
	cron     TEXT NOT NULL,
	folder   TEXT NOT NULL DEFAULT '',
	last_run TEXT,
	next_run TEXT
);
`

// Store persists schedule definitions in a SQLite database. Times are
// stored as RFC 3339 strings; last_run and next_run are nullable.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the schedule database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening schedule db: %w", err)
	}
	// SQLite allows a single writer; keep the pool at one connection so
	// concurrent CRUD calls serialize instead of returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schedule db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (st *Store) Close() error {
	return st.db.Close()
}

func encodeTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func decodeTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all schedules ordered by id.
func (st *Store) List() ([]common.Schedule, error) {
	rows, err := st.db.Query(
		`SELECT id, url, cron, folder, last_run, next_run FROM schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()

	var out []common.Schedule
	for rows.Next() {
		var (
			s          common.Schedule
			last, next sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.URL, &s.Cron, &s.Folder, &last, &next); err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		if s.LastRun, err = decodeTime(last); err != nil {
			return nil, fmt.Errorf("schedule %d last_run: %w", s.ID, err)
		}
		if s.NextRun, err = decodeTime(next); err != nil {
			return nil, fmt.Errorf("schedule %d next_run: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns the schedule with the given id.
func (st *Store) Get(id int64) (*common.Schedule, error) {
	var (
		s          common.Schedule
		last, next sql.NullString
	)
	err := st.db.QueryRow(
		`SELECT id, url, cron, folder, last_run, next_run FROM schedules WHERE id = ?`, id).
		Scan(&s.ID, &s.URL, &s.Cron, &s.Folder, &last, &next)
	if err != nil {
		return nil, err
	}
	if s.LastRun, err = decodeTime(last); err != nil {
		return nil, err
	}
	if s.NextRun, err = decodeTime(next); err != nil {
		return nil, err
	}
	return &s, nil
}

// Insert stores a new schedule and returns it with its assigned id.
func (st *Store) Insert(url, cron, folder string, nextRun *time.Time) (*common.Schedule, error) {
	res, err := st.db.Exec(
		`INSERT INTO schedules (url, cron, folder, next_run) VALUES (?, ?, ?, ?)`,
		url, cron, folder, encodeTime(nextRun))
	if err != nil {
		return nil, fmt.Errorf("inserting schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &common.Schedule{
		ID:      id,
		URL:     url,
		Cron:    cron,
		Folder:  folder,
		NextRun: nextRun,
	}, nil
}

// UpdateCron sets the cron expression and next_run for one schedule.
func (st *Store) UpdateCron(id int64, cron string, nextRun *time.Time) error {
	res, err := st.db.Exec(
		`UPDATE schedules SET cron = ?, next_run = ? WHERE id = ?`,
		cron, encodeTime(nextRun), id)
	if err != nil {
		return fmt.Errorf("updating schedule %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %d not found", id)
	}
	return nil
}

// MarkFired records a completed occurrence and the following one.
func (st *Store) MarkFired(id int64, lastRun time.Time, nextRun *time.Time) error {
	_, err := st.db.Exec(
		`UPDATE schedules SET last_run = ?, next_run = ? WHERE id = ?`,
		encodeTime(&lastRun), encodeTime(nextRun), id)
	if err != nil {
		return fmt.Errorf("marking schedule %d fired: %w", id, err)
	}
	return nil
}

// Delete removes the given schedules. Absent ids are ignored.
func (st *Store) Delete(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	marks := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		marks[i] = "?"
	}
	_, err := st.db.Exec(
		`DELETE FROM schedules WHERE id IN (`+strings.Join(marks, ",")+`)`, args...)
	if err != nil {
		return fmt.Errorf("deleting schedules: %w", err)
	}
	return nil
}
