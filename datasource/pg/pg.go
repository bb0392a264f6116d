package pg

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

type Postgres struct {
	DSN          string
	DB           *sql.DB
	Name         string
	RegisterTime time.Time
}

var postgresInstances sync.Map

func GetPostgres(name string) (*Postgres, error) {
	value, ok := postgresInstances.Load(name)
	if !ok {
		return nil, fmt.Errorf("postgres not found, name:%s", name)
	}

	instance, ok := value.(*Postgres)
	if !ok {
		return nil, fmt.Errorf("postgres not found, name:%s", name)
	}

	return instance, nil
}

func (m *Postgres) Init() error {
	db, err := sql.Open("postgres", m.DSN)
	if err != nil {
		return err
	}

	db.SetConnMaxLifetime(60 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(50)

	m.DB = db
	return m.DB.Ping()
}

func RegisterPostgres(name, dsn string) error {
	if value, ok := postgresInstances.Load(name); ok {
		instance, ok2 := value.(*Postgres)
		if ok2 && instance.DSN == dsn {
			return nil
		}
	}

	m := &Postgres{
		DSN:          dsn,
		Name:         name,
		RegisterTime: time.Now(),
	}
	if err := m.Init(); err != nil {
		return fmt.Errorf("register postgres %s: %w", name, err)
	}
	postgresInstances.Store(name, m)

	return nil
}

func RemovePostgres(name string) {
	value, ok := postgresInstances.Load(name)
	if !ok {
		return
	}
	instance, ok := value.(*Postgres)
	if !ok {
		return
	}

	if instance.DB != nil {
		instance.DB.Close()
	}

	postgresInstances.Delete(name)
}
