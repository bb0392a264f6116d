package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/datasource/mysqldb"
	"github.com/featstore/featstore/utils"
	"github.com/huandu/go-sqlbuilder"
)

// FeatureViewMySQLDao keeps one row per entity key in an online table, the
// primary key being the entity join id column.
type FeatureViewMySQLDao struct {
	db              *sql.DB
	table           string
	primaryKeyField string
	eventTimeField  string
	fields          []string
	fieldTypeMap    map[string]constants.FSType
}

func NewFeatureViewMySQLDao(config DaoConfig) *FeatureViewMySQLDao {
	dao := FeatureViewMySQLDao{
		table:           config.MySQLTableName,
		primaryKeyField: config.PrimaryKeyField,
		eventTimeField:  config.EventTimeField,
		fields:          config.Fields,
		fieldTypeMap:    config.FieldTypeMap,
	}
	client, err := mysqldb.GetMySQL(config.MySQLName)
	if err != nil {
		return nil
	}

	dao.db = client.DB
	return &dao
}

func mysqlColumnType(fsType constants.FSType) string {
	switch fsType {
	case constants.FS_INT32, constants.FS_INT64, constants.FS_TIMESTAMP:
		return "BIGINT"
	case constants.FS_FLOAT, constants.FS_DOUBLE:
		return "DOUBLE"
	case constants.FS_BOOLEAN:
		return "TINYINT"
	default:
		return "VARCHAR(512)"
	}
}

func (d *FeatureViewMySQLDao) EnsureStorage(ctx context.Context) error {
	cols := []string{fmt.Sprintf("`%s` %s NOT NULL", d.primaryKeyField, mysqlColumnType(d.fieldTypeMap[d.primaryKeyField]))}
	cols = append(cols, fmt.Sprintf("`%s` BIGINT NOT NULL", d.eventTimeField))
	for _, field := range d.fields {
		if field == d.eventTimeField {
			continue
		}
		cols = append(cols, fmt.Sprintf("`%s` %s NULL", field, mysqlColumnType(d.fieldTypeMap[field])))
	}
	cols = append(cols, fmt.Sprintf("PRIMARY KEY (`%s`)", d.primaryKeyField))

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (%s)", d.table, strings.Join(cols, ", "))

	return withRetry(ctx, constants.Datasource_Type_MySQL, func() error {
		_, err := d.db.ExecContext(ctx, query)
		return err
	})
}

func (d *FeatureViewMySQLDao) GetFeatures(ctx context.Context, keys []interface{}, selectFields []string) ([]map[string]interface{}, error) {
	columns := make([]string, 0, len(selectFields)+2)
	columns = append(columns, d.primaryKeyField)
	columns = append(columns, selectFields...)
	columns = append(columns, d.eventTimeField)

	sb := sqlbuilder.MySQL.NewSelectBuilder()
	sb.Select(columns...).From(d.table)
	sb.Where(sb.In(d.primaryKeyField, keys...))
	query, args := sb.Build()

	var rows *sql.Rows
	err := withRetry(ctx, constants.Datasource_Type_MySQL, func() error {
		var queryErr error
		rows, queryErr = d.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]map[string]interface{}, 0, len(keys))
	values := make([]interface{}, len(columns))
	for i := range values {
		values[i] = new(interface{})
	}
	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		newMap := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			raw := *(values[i].(*interface{}))
			if raw == nil {
				continue
			}
			if column == d.eventTimeField {
				newMap[column] = utils.ToInt64(raw, 0)
			} else {
				newMap[column] = convertFSValue(raw, d.fieldTypeMap[column])
			}
		}
		result = append(result, newMap)
	}

	return result, rows.Err()
}

func (d *FeatureViewMySQLDao) WriteFeatures(ctx context.Context, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	columns := make([]string, 0, len(d.fields)+2)
	columns = append(columns, d.primaryKeyField)
	columns = append(columns, d.eventTimeField)
	for _, field := range d.fields {
		if field == d.eventTimeField {
			continue
		}
		columns = append(columns, field)
	}

	ib := sqlbuilder.MySQL.NewInsertBuilder()
	ib.InsertInto(d.table).Cols(columns...)
	for _, row := range rows {
		values := make([]interface{}, len(columns))
		for i, column := range columns {
			values[i] = row[column]
		}
		ib.Values(values...)
	}

	// feature columns first, the event timestamp guard last: MySQL applies
	// assignments left to right and the guard must see the old value
	var updates []string
	for _, column := range columns {
		if column == d.primaryKeyField || column == d.eventTimeField {
			continue
		}
		updates = append(updates, fmt.Sprintf(
			"`%s` = IF(VALUES(`%s`) >= `%s`, VALUES(`%s`), `%s`)",
			column, d.eventTimeField, d.eventTimeField, column, column))
	}
	updates = append(updates, fmt.Sprintf(
		"`%s` = IF(VALUES(`%s`) >= `%s`, VALUES(`%s`), `%s`)",
		d.eventTimeField, d.eventTimeField, d.eventTimeField, d.eventTimeField, d.eventTimeField))

	query, args := ib.Build()
	query = query + " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")

	return withRetry(ctx, constants.Datasource_Type_MySQL, func() error {
		_, err := d.db.ExecContext(ctx, query, args...)
		return err
	})
}
