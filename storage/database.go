package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryEntry is one archived ticket. Entries are keyed by TicketID so a
// close path that runs twice never produces a duplicate row.
type HistoryEntry struct {
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	ClosedAt  time.Time `json:"closed_at"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
}

type HistoryStats struct {
	Total      int
	ByStatus   map[string]int
	ByCategory map[string]int
}

type Database interface {
	Init() error
	Close() error
	ArchiveTicket(e HistoryEntry) error
	HistoryForUser(userID string) ([]HistoryEntry, error)
	Stats() (HistoryStats, error)
}

// InitDB opens the configured history backend. Unknown drivers fall back to
// the JSON file store with a warning rather than refusing to start.
func InitDB(driver, sqlitePath, dataDir string) Database {
	switch driver {
	case "sqlite":
		return &SQLiteDB{path: sqlitePath}
	case "json":
		return newJSONHistory(filepath.Join(dataDir, "ticket_history.json"))
	default:
		log.Printf("[DB] Unknown driver %q, using JSON file store", driver)
		return newJSONHistory(filepath.Join(dataDir, "ticket_history.json"))
	}
}

type SQLiteDB struct {
	path string
	db   *sql.DB
}

func (s *SQLiteDB) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	s.db = db

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS ticket_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		UNIQUE(ticket_id)
	)`)
	if err != nil {
		return fmt.Errorf("create ticket_history: %w", err)
	}
	log.Printf("[DB] SQLite ready at %s", s.path)
	return nil
}

func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteDB) ArchiveTicket(e HistoryEntry) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO ticket_history
		(ticket_id, user_id, username, category, created_at, closed_at, reason, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TicketID, e.UserID, e.Username, e.Category,
		e.CreatedAt, e.ClosedAt, e.Reason, e.Status)
	if err != nil {
		return fmt.Errorf("archive ticket %s: %w", e.TicketID, err)
	}
	return nil
}

func (s *SQLiteDB) HistoryForUser(userID string) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`SELECT ticket_id, user_id, username, category,
		created_at, closed_at, reason, status
		FROM ticket_history WHERE user_id = ? ORDER BY closed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.TicketID, &e.UserID, &e.Username, &e.Category,
			&e.CreatedAt, &e.ClosedAt, &e.Reason, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) Stats() (HistoryStats, error) {
	stats := HistoryStats{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	rows, err := s.db.Query(`SELECT category, status FROM ticket_history`)
	if err != nil {
		return stats, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category, status string
		if err := rows.Scan(&category, &status); err != nil {
			return stats, err
		}
		stats.Total++
		stats.ByStatus[status]++
		stats.ByCategory[category]++
	}
	return stats, rows.Err()
}

// jsonHistory is the no-database fallback: every entry in one JSON file.
type jsonHistory struct {
	mu      sync.Mutex
	path    string
	entries []HistoryEntry
}

func newJSONHistory(path string) *jsonHistory {
	return &jsonHistory{path: path}
}

func (j *jsonHistory) Init() error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return err
	}
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &j.entries)
}

func (j *jsonHistory) Close() error { return nil }

func (j *jsonHistory) flush() error {
	data, err := json.MarshalIndent(j.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, data, 0644)
}

func (j *jsonHistory) ArchiveTicket(e HistoryEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, have := range j.entries {
		if have.TicketID == e.TicketID {
			return nil
		}
	}
	j.entries = append(j.entries, e)
	return j.flush()
}

func (j *jsonHistory) HistoryForUser(userID string) ([]HistoryEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []HistoryEntry
	for _, e := range j.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].ClosedAt.After(out[b].ClosedAt)
	})
	return out, nil
}

func (j *jsonHistory) Stats() (HistoryStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	stats := HistoryStats{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, e := range j.entries {
		stats.Total++
		stats.ByStatus[e.Status]++
		stats.ByCategory[e.Category]++
	}
	return stats, nil
}
