package dao

import (
	"context"

	"github.com/featstore/featstore/constants"
)

// FeatureViewDao reads and writes the online key-value materialization of a
// feature view. Rows are keyed by the view's primary key field and carry the
// source event timestamp for staleness inspection and idempotent writes.
type FeatureViewDao interface {
	// EnsureStorage prepares backend storage for the view. No-op for
	// schemaless backends.
	EnsureStorage(ctx context.Context) error

	// GetFeatures returns one row per key found in the store. Keys with no
	// materialized row are simply absent from the result, never an error.
	GetFeatures(ctx context.Context, keys []interface{}, selectFields []string) ([]map[string]interface{}, error)

	// WriteFeatures upserts rows, keeping the row with the latest event
	// timestamp when a key is written more than once.
	WriteFeatures(ctx context.Context, rows []map[string]interface{}) error
}

func NewFeatureViewDao(config DaoConfig) FeatureViewDao {
	switch config.DatasourceType {
	case constants.Datasource_Type_Redis:
		return NewFeatureViewRedisDao(config)
	case constants.Datasource_Type_MySQL:
		return NewFeatureViewMySQLDao(config)
	case constants.Datasource_Type_Memory:
		return NewFeatureViewMemoryDao(config)
	}

	panic("not found FeatureViewDao implement")
}
