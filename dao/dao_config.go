package dao

import (
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/utils"
)

type DaoConfig struct {
	DatasourceType string

	Project         string
	FeatureViewName string
	PrimaryKeyField string
	EventTimeField  string
	CreateTimeField string
	TTL             int

	Fields       []string
	FieldTypeMap map[string]constants.FSType

	// redis
	RedisName   string
	RedisPrefix string

	// mysql
	MySQLName      string
	MySQLTableName string

	// sqlite offline store
	SQLiteName      string
	SQLiteTableName string
}

// convertFSValue coerces a raw driver value into the declared feature type.
func convertFSValue(value interface{}, fsType constants.FSType) interface{} {
	if value == nil {
		return nil
	}

	switch fsType {
	case constants.FS_INT32, constants.FS_INT64, constants.FS_TIMESTAMP:
		return utils.ToInt64(value, 0)
	case constants.FS_FLOAT, constants.FS_DOUBLE:
		return utils.ToFloat64(value, 0)
	case constants.FS_BOOLEAN:
		return utils.ToBool(value, false)
	case constants.FS_STRING:
		return utils.ToString(value, "")
	default:
		return value
	}
}
