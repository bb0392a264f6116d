package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/datasource/sqlitedb"
	"github.com/huandu/go-sqlbuilder"
)

// pointInTimeWorkers bounds the per-row query fan-out of a historical read.
const pointInTimeWorkers = 8

type OfflineStoreSQLiteDao struct {
	db              *sql.DB
	table           string
	primaryKeyField string
	eventTimeField  string
	createTimeField string
	ttl             int
	fields          []string
	fieldTypeMap    map[string]constants.FSType
}

func NewOfflineStoreSQLiteDao(config DaoConfig) *OfflineStoreSQLiteDao {
	dao := OfflineStoreSQLiteDao{
		table:           config.SQLiteTableName,
		primaryKeyField: config.PrimaryKeyField,
		eventTimeField:  config.EventTimeField,
		createTimeField: config.CreateTimeField,
		ttl:             config.TTL,
		fields:          config.Fields,
		fieldTypeMap:    config.FieldTypeMap,
	}
	instance, err := sqlitedb.GetSQLite(config.SQLiteName)
	if err != nil {
		return nil
	}

	dao.db = instance.DB
	return &dao
}

func sqliteColumnType(fsType constants.FSType) string {
	switch fsType {
	case constants.FS_INT32, constants.FS_INT64, constants.FS_BOOLEAN, constants.FS_TIMESTAMP:
		return "INTEGER"
	case constants.FS_FLOAT, constants.FS_DOUBLE:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (d *OfflineStoreSQLiteDao) allColumns() []string {
	columns := []string{d.primaryKeyField, d.eventTimeField}
	if d.createTimeField != "" {
		columns = append(columns, d.createTimeField)
	}
	for _, field := range d.fields {
		if field == d.eventTimeField {
			continue
		}
		columns = append(columns, field)
	}
	return columns
}

func (d *OfflineStoreSQLiteDao) EnsureTable(ctx context.Context) error {
	cols := []string{
		fmt.Sprintf("%s %s NOT NULL", d.primaryKeyField, sqliteColumnType(d.fieldTypeMap[d.primaryKeyField])),
		fmt.Sprintf("%s INTEGER NOT NULL", d.eventTimeField),
	}
	if d.createTimeField != "" {
		cols = append(cols, fmt.Sprintf("%s INTEGER", d.createTimeField))
	}
	for _, field := range d.fields {
		if field == d.eventTimeField {
			continue
		}
		cols = append(cols, fmt.Sprintf("%s %s", field, sqliteColumnType(d.fieldTypeMap[field])))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.table, strings.Join(cols, ", "))
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return err
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_key_time ON %s (%s, %s)",
		d.table, d.table, d.primaryKeyField, d.eventTimeField)
	_, err := d.db.ExecContext(ctx, index)
	return err
}

func (d *OfflineStoreSQLiteDao) InsertRows(ctx context.Context, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	columns := d.allColumns()
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(d.table).Cols(columns...)
	for _, row := range rows {
		values := make([]interface{}, len(columns))
		for i, column := range columns {
			values[i] = row[column]
		}
		ib.Values(values...)
	}

	query, args := ib.Build()
	return withRetry(ctx, constants.Datasource_Type_SQLite, func() error {
		_, err := d.db.ExecContext(ctx, query, args...)
		return err
	})
}

// pointInTimeQuery selects the qualifying source row for one entity row:
// newest event time <= requested time, within the TTL, ties broken by the
// created timestamp.
func (d *OfflineStoreSQLiteDao) pointInTimeQuery(key interface{}, eventTime time.Time, columns []string) (string, []interface{}) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...).From(d.table)

	conds := []string{
		sb.Equal(d.primaryKeyField, key),
		sb.LessEqualThan(d.eventTimeField, eventTime.Unix()),
	}
	if d.ttl > 0 {
		conds = append(conds, sb.GreaterEqualThan(d.eventTimeField, eventTime.Unix()-int64(d.ttl)))
	}
	sb.Where(conds...)

	order := []string{d.eventTimeField + " DESC"}
	if d.createTimeField != "" {
		order = append(order, d.createTimeField+" DESC")
	}
	sb.OrderBy(order...).Limit(1)

	return sb.Build()
}

func (d *OfflineStoreSQLiteDao) GetPointInTimeFeatures(ctx context.Context, keys []interface{}, eventTimes []time.Time, selectFields []string) ([]map[string]interface{}, error) {
	if len(keys) != len(eventTimes) {
		return nil, fmt.Errorf("keys and event times length not equal, %d != %d", len(keys), len(eventTimes))
	}

	columns := make([]string, 0, len(selectFields)+2)
	columns = append(columns, d.primaryKeyField)
	columns = append(columns, selectFields...)
	columns = append(columns, d.eventTimeField)

	result := make([]map[string]interface{}, len(keys))
	errs := make([]error, len(keys))

	var wg sync.WaitGroup
	sem := make(chan struct{}, pointInTimeWorkers)
	for i := range keys {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			query, args := d.pointInTimeQuery(keys[i], eventTimes[i], columns)
			row, err := d.queryOneRow(ctx, query, args, columns)
			result[i] = row
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (d *OfflineStoreSQLiteDao) queryOneRow(ctx context.Context, query string, args []interface{}, columns []string) (map[string]interface{}, error) {
	var rows *sql.Rows
	err := withRetry(ctx, constants.Datasource_Type_SQLite, func() error {
		var queryErr error
		rows, queryErr = d.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	values := make([]interface{}, len(columns))
	for i := range values {
		values[i] = new(interface{})
	}
	if err := rows.Scan(values...); err != nil {
		return nil, err
	}

	return d.rowToMap(columns, values), nil
}

func (d *OfflineStoreSQLiteDao) rowToMap(columns []string, values []interface{}) map[string]interface{} {
	newMap := make(map[string]interface{}, len(columns))
	for i, column := range columns {
		raw := *(values[i].(*interface{}))
		if raw == nil {
			continue
		}
		if column == d.eventTimeField || column == d.createTimeField {
			newMap[column] = convertFSValue(raw, constants.FS_TIMESTAMP)
		} else {
			newMap[column] = convertFSValue(raw, d.fieldTypeMap[column])
		}
	}
	return newMap
}

func (d *OfflineStoreSQLiteDao) ScanWindow(ctx context.Context, from, to time.Time) ([]map[string]interface{}, error) {
	columns := d.allColumns()

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(columns...).From(d.table)
	sb.Where(
		sb.GreaterThan(d.eventTimeField, from.Unix()),
		sb.LessEqualThan(d.eventTimeField, to.Unix()),
	)
	order := []string{d.eventTimeField + " ASC"}
	if d.createTimeField != "" {
		order = append(order, d.createTimeField+" ASC")
	}
	sb.OrderBy(order...)

	query, args := sb.Build()

	var rows *sql.Rows
	err := withRetry(ctx, constants.Datasource_Type_SQLite, func() error {
		var queryErr error
		rows, queryErr = d.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for i := range values {
			values[i] = new(interface{})
		}
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		result = append(result, d.rowToMap(columns, values))
	}

	return result, rows.Err()
}
