// Package history keeps a log of schedule triggers and brightness changes in
// a SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/autobright/autobright/pkg/logger"

	_ "modernc.org/sqlite"
)

// Sources of an event.
const (
	SourceSchedule = "schedule"
	SourceManual   = "manual"
)

// NoValue marks a level that the event did not touch.
const NoValue = -1

// DefaultLimit is used by Recent for a non-positive limit.
const DefaultLimit = 20

// Event is one recorded change.
type Event struct {
	ID         int64     `json:"id"`
	At         time.Time `json:"at"`
	Source     string    `json:"source"`
	Brightness int       `json:"brightness"`
	Overlay    int       `json:"overlay"`
	OK         bool      `json:"ok"`
	Message    string    `json:"message,omitempty"`
}

// Recorder stores events.
type Recorder interface {
	Record(Event) error
	Recent(limit int) ([]Event, error)
	Close() error
}

const schema = `CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    at INTEGER NOT NULL,
    source TEXT NOT NULL,
    brightness INTEGER,
    overlay INTEGER,
    ok INTEGER NOT NULL DEFAULT 1,
    message TEXT NOT NULL DEFAULT ''
)`

// Store is a Recorder backed by SQLite.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenOrNop opens path and degrades to a Recorder that drops everything
// when the database cannot be opened.
func OpenOrNop(path string, l logger.Logger) Recorder {
	s, err := Open(path)
	if err != nil {
		logger.OrNop(l).Warning("history disabled: %v", err)
		return Nop{}
	}
	return s
}

func nullable(v int) sql.NullInt64 {
	if v < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

// Record inserts e. A zero At is stamped with the current time.
func (s *Store) Record(e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO events (at, source, brightness, overlay, ok, message) VALUES (?, ?, ?, ?, ?, ?)`,
		e.At.UnixNano(), e.Source, nullable(e.Brightness), nullable(e.Overlay), ok, e.Message)
	if err != nil {
		return fmt.Errorf("record history event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`
        SELECT id, at, source, brightness, overlay, ok, message
        FROM events
        ORDER BY id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e                   Event
			at                  int64
			brightness, overlay sql.NullInt64
			ok                  int
		)
		if err := rows.Scan(&e.ID, &at, &e.Source, &brightness, &overlay, &ok, &e.Message); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.At = time.Unix(0, at)
		e.Brightness, e.Overlay = NoValue, NoValue
		if brightness.Valid {
			e.Brightness = int(brightness.Int64)
		}
		if overlay.Valid {
			e.Overlay = int(overlay.Int64)
		}
		e.OK = ok != 0
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return events, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Record(Event) error          { return nil }
func (Nop) Recent(int) ([]Event, error) { return nil, nil }
func (Nop) Close() error                { return nil }
