package sqlitedb

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLite struct {
	Path         string
	DB           *sql.DB
	Name         string
	RegisterTime time.Time
}

var sqliteInstances sync.Map

func GetSQLite(name string) (*SQLite, error) {
	value, ok := sqliteInstances.Load(name)
	if !ok {
		return nil, fmt.Errorf("sqlite not found, name:%s", name)
	}

	instance, ok := value.(*SQLite)
	if !ok {
		return nil, fmt.Errorf("sqlite not found, name:%s", name)
	}

	return instance, nil
}

func (m *SQLite) Init() error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", m.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	// modernc sqlite serializes writes; a single writer connection avoids
	// SQLITE_BUSY under concurrent materialization and retrieval.
	db.SetMaxOpenConns(1)

	m.DB = db
	return m.DB.Ping()
}

func RegisterSQLite(name, path string) error {
	if value, ok := sqliteInstances.Load(name); ok {
		instance, ok2 := value.(*SQLite)
		if ok2 && instance.Path == path {
			return nil
		}
	}

	m := &SQLite{
		Path:         path,
		Name:         name,
		RegisterTime: time.Now(),
	}
	if err := m.Init(); err != nil {
		return fmt.Errorf("register sqlite %s: %w", name, err)
	}
	sqliteInstances.Store(name, m)

	return nil
}

func RemoveSQLite(name string) {
	value, ok := sqliteInstances.Load(name)
	if !ok {
		return
	}
	instance, ok := value.(*SQLite)
	if !ok {
		return
	}

	if instance.DB != nil {
		instance.DB.Close()
	}

	sqliteInstances.Delete(name)
}
