// Package storage provides durable key/value records backed by SQLite.
// The database is opened lazily and created on first use.
// If opening the DB or executing queries fails, records are kept in memory.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/halilintar-go/internal/logger"
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("storage: record not found")

// SQLite stores records in a single table keyed by name.
type SQLite struct {
	path string

	once    sync.Once
	db      *sql.DB
	initErr error

	mem *Memory // fallback and write-through copy
}

func NewSQLite(path string) *SQLite {
	if path == "" {
		path = "halilintar.db"
	}
	return &SQLite{path: path, mem: NewMemory()}
}

// init opens the database and creates the records table if needed.
func (s *SQLite) init() {
	db, err := sql.Open("sqlite", "file:"+s.path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory records", "path", s.path, "error", err)
		return
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS records (
        key TEXT PRIMARY KEY,
        value BLOB NOT NULL,
        updated_at DATETIME
    );`); err != nil {
		s.initErr = err
		db.Close()
		logger.L.Warn("sqlite table creation failed; using in-memory records", "path", s.path, "error", err)
		return
	}
	s.db = db
	logger.L.Info("sqlite records DB initialized", "path", s.path)
}

func (s *SQLite) ready() bool {
	s.once.Do(s.init)
	return s.initErr == nil && s.db != nil
}

// Put stores value under key, keeping an in-memory copy as fallback.
func (s *SQLite) Put(key string, value []byte) error {
	var dbErr error
	if s.ready() {
		_, dbErr = s.db.Exec(`INSERT INTO records (key, value, updated_at) VALUES (?,?,?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
			key, value, time.Now().UTC())
		if dbErr != nil {
			logger.L.Error("failed to store record in sqlite; kept in memory", "key", key, "error", dbErr)
		}
	}
	if err := s.mem.Put(key, value); err != nil {
		return err
	}
	if dbErr != nil {
		return fmt.Errorf("sqlite put %q: %w", key, dbErr)
	}
	return nil
}

// Get returns the value stored under key.
func (s *SQLite) Get(key string) ([]byte, error) {
	if s.ready() {
		var value []byte
		err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?;`, key).Scan(&value)
		switch {
		case err == nil:
			return value, nil
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			logger.L.Warn("sqlite read failed; using in-memory copy", "key", key, "error", err)
		}
	}
	return s.mem.Get(key)
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Memory keeps records in process memory only.
type Memory struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}
