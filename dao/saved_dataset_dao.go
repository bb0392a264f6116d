package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/datasource/sqlitedb"
)

// SavedDatasetDao persists retrieval snapshots in the offline store. Rows are
// stored as JSON to stay schema-free across datasets.
type SavedDatasetDao interface {
	WriteRows(ctx context.Context, table string, rows []map[string]interface{}) error
	ReadRows(ctx context.Context, table string) ([]map[string]interface{}, error)
	DropTable(ctx context.Context, table string) error
}

func NewSavedDatasetDao(config DaoConfig) SavedDatasetDao {
	switch config.DatasourceType {
	case constants.Datasource_Type_SQLite:
		return NewSavedDatasetSQLiteDao(config)
	}

	panic("not found SavedDatasetDao implement")
}

type SavedDatasetSQLiteDao struct {
	db *sql.DB
}

func NewSavedDatasetSQLiteDao(config DaoConfig) *SavedDatasetSQLiteDao {
	instance, err := sqlitedb.GetSQLite(config.SQLiteName)
	if err != nil {
		return nil
	}

	return &SavedDatasetSQLiteDao{db: instance.DB}
}

func (d *SavedDatasetSQLiteDao) WriteRows(ctx context.Context, table string, rows []map[string]interface{}) error {
	return withRetry(ctx, constants.Datasource_Type_SQLite, func() error {
		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (row_index INTEGER PRIMARY KEY, row TEXT NOT NULL)", table)
		if _, err := d.db.ExecContext(ctx, query); err != nil {
			return err
		}

		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (row_index, row) VALUES (?, ?)", table))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, i, string(data)); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

func (d *SavedDatasetSQLiteDao) ReadRows(ctx context.Context, table string) ([]map[string]interface{}, error) {
	var rows *sql.Rows
	err := withRetry(ctx, constants.Datasource_Type_SQLite, func() error {
		var queryErr error
		rows, queryErr = d.db.QueryContext(ctx, fmt.Sprintf("SELECT row FROM %s ORDER BY row_index ASC", table))
		return queryErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []map[string]interface{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		row := make(map[string]interface{})
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func (d *SavedDatasetSQLiteDao) DropTable(ctx context.Context, table string) error {
	return withRetry(ctx, constants.Datasource_Type_SQLite, func() error {
		_, err := d.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
		return err
	})
}
