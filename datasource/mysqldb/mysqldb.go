package mysqldb

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

type MySQL struct {
	DSN          string
	DB           *sql.DB
	Name         string
	RegisterTime time.Time
}

var mysqlInstances sync.Map

func GetMySQL(name string) (*MySQL, error) {
	value, ok := mysqlInstances.Load(name)
	if !ok {
		return nil, fmt.Errorf("mysql not found, name:%s", name)
	}

	instance, ok := value.(*MySQL)
	if !ok {
		return nil, fmt.Errorf("mysql not found, name:%s", name)
	}

	return instance, nil
}

func (m *MySQL) Init() error {
	db, err := sql.Open("mysql", m.DSN)
	if err != nil {
		return err
	}

	db.SetConnMaxLifetime(60 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(50)

	m.DB = db
	return m.DB.Ping()
}

func RegisterMySQL(name, dsn string) error {
	if value, ok := mysqlInstances.Load(name); ok {
		instance, ok2 := value.(*MySQL)
		if ok2 && instance.DSN == dsn {
			return nil
		}
	}

	m := &MySQL{
		DSN:          dsn,
		Name:         name,
		RegisterTime: time.Now(),
	}
	if err := m.Init(); err != nil {
		return fmt.Errorf("register mysql %s: %w", name, err)
	}
	mysqlInstances.Store(name, m)

	return nil
}

func RemoveMySQL(name string) {
	value, ok := mysqlInstances.Load(name)
	if !ok {
		return
	}
	instance, ok := value.(*MySQL)
	if !ok {
		return
	}

	if instance.DB != nil {
		instance.DB.Close()
	}

	mysqlInstances.Delete(name)
}
