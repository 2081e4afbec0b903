package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/khasanov/eventbot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			full_name TEXT NOT NULL,
			department TEXT NOT NULL,
			phone TEXT NOT NULL,
			is_admin INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			place TEXT NOT NULL,
			comment TEXT DEFAULT '',
			created_by_user_id INTEGER NOT NULL,
			is_cancelled INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (created_by_user_id) REFERENCES users(telegram_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			reminder_type TEXT NOT NULL,
			sent_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (event_id, reminder_type),
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS departments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_cancelled ON events(is_cancelled)`,
		`CREATE INDEX IF NOT EXISTS idx_events_creator ON events(created_by_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_event ON reminders(event_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}

	return s.seedDepartments()
}

func (s *Storage) seedDepartments() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM departments`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, name := range domain.DefaultDepartments {
		if _, err := s.db.Exec(`INSERT INTO departments (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("seed department %q: %w", name, err)
		}
	}
	return nil
}

// === Users ===

func (s *Storage) CreateUser(u *domain.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (telegram_id, full_name, department, phone, is_admin) VALUES (?, ?, ?, ?, ?)`,
		u.TelegramID, u.FullName, u.Department, u.Phone, u.IsAdmin,
	)
	if err != nil {
		return err
	}
	u.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetUser(telegramID int64) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRow(
		`SELECT telegram_id, full_name, department, phone, is_admin, created_at FROM users WHERE telegram_id = ?`,
		telegramID,
	).Scan(&u.TelegramID, &u.FullName, &u.Department, &u.Phone, &u.IsAdmin, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (s *Storage) ListUsers() ([]*domain.User, error) {
	rows, err := s.db.Query(
		`SELECT telegram_id, full_name, department, phone, is_admin, created_at FROM users ORDER BY full_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.TelegramID, &u.FullName, &u.Department, &u.Phone, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// === Events ===

const eventColumns = `e.id, e.title, e.date, e.time, e.place, COALESCE(e.comment, ''), e.created_by_user_id, e.is_cancelled, e.created_at,
	u.telegram_id, u.full_name, u.department, u.phone, u.is_admin, u.created_at`

// DD.MM.YYYY sorts chronologically only after reordering into YYYYMMDD.
const eventOrder = `substr(e.date, 7, 4) || substr(e.date, 4, 2) || substr(e.date, 1, 2), e.time`

func scanEventRow(scan func(dest ...any) error) (*domain.Event, error) {
	e := &domain.Event{Creator: &domain.User{}}
	err := scan(
		&e.ID, &e.Title, &e.Date, &e.Time, &e.Place, &e.Comment, &e.CreatedBy, &e.IsCancelled, &e.CreatedAt,
		&e.Creator.TelegramID, &e.Creator.FullName, &e.Creator.Department, &e.Creator.Phone, &e.Creator.IsAdmin, &e.Creator.CreatedAt,
	)
	return e, err
}

func (s *Storage) CreateEvent(e *domain.Event) error {
	res, err := s.db.Exec(
		`INSERT INTO events (title, date, time, place, comment, created_by_user_id) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Title, e.Date, e.Time, e.Place, e.Comment, e.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	e.ID = id
	e.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetEvent(id int64) (*domain.Event, error) {
	row := s.db.QueryRow(
		`SELECT `+eventColumns+` FROM events e JOIN users u ON e.created_by_user_id = u.telegram_id WHERE e.id = ?`,
		id,
	)
	e, err := scanEventRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListLiveEvents returns every non-cancelled event regardless of date, in
// chronological order. The reminder engine filters already-started events
// itself.
func (s *Storage) ListLiveEvents() ([]*domain.Event, error) {
	return s.listEvents(`WHERE e.is_cancelled = 0`)
}

func (s *Storage) ListEventsByUser(telegramID int64) ([]*domain.Event, error) {
	return s.listEvents(`WHERE e.is_cancelled = 0 AND e.created_by_user_id = ?`, telegramID)
}

func (s *Storage) ListEventsByDate(date string) ([]*domain.Event, error) {
	return s.listEvents(`WHERE e.is_cancelled = 0 AND e.date = ?`, date)
}

func (s *Storage) listEvents(where string, args ...any) ([]*domain.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM events e JOIN users u ON e.created_by_user_id = u.telegram_id `+where+` ORDER BY `+eventOrder,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEventRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Only a fixed set of event fields is updatable; each has its own statement
// so no column name is ever built from input.

func (s *Storage) UpdateEventTitle(id int64, title string) error {
	_, err := s.db.Exec(`UPDATE events SET title = ? WHERE id = ?`, title, id)
	return err
}

func (s *Storage) UpdateEventPlace(id int64, place string) error {
	_, err := s.db.Exec(`UPDATE events SET place = ? WHERE id = ?`, place, id)
	return err
}

func (s *Storage) UpdateEventComment(id int64, comment string) error {
	_, err := s.db.Exec(`UPDATE events SET comment = ? WHERE id = ?`, comment, id)
	return err
}

// UpdateEventSchedule changes the event's date and time and clears every
// reminder record for it in the same transaction: a rescheduled event is a
// new schedule and must re-earn each reminder.
func (s *Storage) UpdateEventSchedule(id int64, date, timeStr string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE events SET date = ?, time = ? WHERE id = ?`, date, timeStr, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM reminders WHERE event_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CancelEvent sets the cancelled flag. The flag is monotonic: there is no
// un-cancel.
func (s *Storage) CancelEvent(id int64) error {
	_, err := s.db.Exec(`UPDATE events SET is_cancelled = 1 WHERE id = ?`, id)
	return err
}

// DeleteEvent removes the event permanently; its reminder records go with
// it via ON DELETE CASCADE.
func (s *Storage) DeleteEvent(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	return err
}

// === Reminder sent-log ===

func (s *Storage) IsReminderSent(eventID int64, label string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM reminders WHERE event_id = ? AND reminder_type = ?`,
		eventID, label,
	).Scan(&count)
	return count > 0, err
}

// RecordReminderSent appends to the sent-log. The unique constraint makes
// the write idempotent: a pair already present stays as it was.
func (s *Storage) RecordReminderSent(eventID int64, label string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO reminders (event_id, reminder_type) VALUES (?, ?)`,
		eventID, label,
	)
	return err
}

// === Departments ===

func (s *Storage) ListDepartments(activeOnly bool) ([]string, error) {
	query := `SELECT name FROM departments`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Storage) AddDepartment(name string) error {
	_, err := s.db.Exec(
		`INSERT INTO departments (name) VALUES (?) ON CONFLICT(name) DO UPDATE SET is_active = 1`,
		name,
	)
	return err
}

// RemoveDepartment deactivates a department; existing users keep it as text.
func (s *Storage) RemoveDepartment(name string) error {
	_, err := s.db.Exec(`UPDATE departments SET is_active = 0 WHERE name = ?`, name)
	return err
}

// === Statistics ===

func (s *Storage) CountEventsByDepartment() ([]*domain.DepartmentStat, error) {
	rows, err := s.db.Query(
		`SELECT u.department, COUNT(e.id) AS event_count
		 FROM events e
		 JOIN users u ON e.created_by_user_id = u.telegram_id
		 WHERE e.is_cancelled = 0
		 GROUP BY u.department
		 ORDER BY event_count DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*domain.DepartmentStat
	for rows.Next() {
		st := &domain.DepartmentStat{}
		if err := rows.Scan(&st.Department, &st.EventCount); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *Storage) CountEvents() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE is_cancelled = 0`).Scan(&count)
	return count, err
}

func (s *Storage) CountUsers() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
