package dao

import (
	"context"
	"time"

	"github.com/featstore/featstore/constants"
)

// OfflineStoreDao executes point-in-time reads and window scans over one
// feature view's historical source table.
type OfflineStoreDao interface {
	// EnsureTable creates the source table when it does not exist yet.
	EnsureTable(ctx context.Context) error

	// InsertRows appends historical rows. Used for seeding demo data and tests.
	InsertRows(ctx context.Context, rows []map[string]interface{}) error

	// GetPointInTimeFeatures returns one result per input position: the most
	// recent source row for keys[i] with event time <= eventTimes[i] and age
	// within the view TTL. Positions with no qualifying row hold nil.
	GetPointInTimeFeatures(ctx context.Context, keys []interface{}, eventTimes []time.Time, selectFields []string) ([]map[string]interface{}, error)

	// ScanWindow returns every row with event time in (from, to], ordered by
	// event time then created time ascending.
	ScanWindow(ctx context.Context, from, to time.Time) ([]map[string]interface{}, error)
}

func NewOfflineStoreDao(config DaoConfig) OfflineStoreDao {
	switch config.DatasourceType {
	case constants.Datasource_Type_SQLite:
		return NewOfflineStoreSQLiteDao(config)
	}

	panic("not found OfflineStoreDao implement")
}
