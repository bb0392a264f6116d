package dao

import (
	"context"
	"sync"

	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/utils"
)

// memoryStore is a process-local online store, shared by name so that
// materialization and retrieval observe the same data. Used by tests and
// local development.
type memoryStore struct {
	mu   sync.RWMutex
	rows map[string]map[string]interface{}
}

var memoryStores sync.Map

func getMemoryStore(name string) *memoryStore {
	value, _ := memoryStores.LoadOrStore(name, &memoryStore{rows: make(map[string]map[string]interface{})})
	return value.(*memoryStore)
}

// ResetMemoryStores drops every process-local online store.
func ResetMemoryStores() {
	memoryStores.Range(func(key, _ interface{}) bool {
		memoryStores.Delete(key)
		return true
	})
}

type FeatureViewMemoryDao struct {
	store           *memoryStore
	primaryKeyField string
	eventTimeField  string
	fieldTypeMap    map[string]constants.FSType
}

func NewFeatureViewMemoryDao(config DaoConfig) *FeatureViewMemoryDao {
	return &FeatureViewMemoryDao{
		store:           getMemoryStore(config.Project + "/" + config.FeatureViewName),
		primaryKeyField: config.PrimaryKeyField,
		eventTimeField:  config.EventTimeField,
		fieldTypeMap:    config.FieldTypeMap,
	}
}

func (d *FeatureViewMemoryDao) EnsureStorage(ctx context.Context) error {
	return nil
}

func (d *FeatureViewMemoryDao) GetFeatures(ctx context.Context, keys []interface{}, selectFields []string) ([]map[string]interface{}, error) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()

	result := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		row, ok := d.store.rows[utils.ToString(key, "")]
		if !ok {
			continue
		}

		newMap := make(map[string]interface{}, len(selectFields)+2)
		newMap[d.primaryKeyField] = convertFSValue(key, d.fieldTypeMap[d.primaryKeyField])
		for _, field := range selectFields {
			if value, exists := row[field]; exists {
				newMap[field] = value
			}
		}
		if eventTime, exists := row[d.eventTimeField]; exists {
			newMap[d.eventTimeField] = eventTime
		}
		result = append(result, newMap)
	}

	return result, nil
}

func (d *FeatureViewMemoryDao) WriteFeatures(ctx context.Context, rows []map[string]interface{}) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	for _, row := range rows {
		key := utils.ToString(row[d.primaryKeyField], "")
		eventTime := utils.ToInt64(row[d.eventTimeField], 0)

		if stored, ok := d.store.rows[key]; ok {
			if utils.ToInt64(stored[d.eventTimeField], 0) > eventTime {
				continue
			}
		}

		newRow := make(map[string]interface{}, len(row))
		for field, value := range row {
			if value == nil {
				continue
			}
			newRow[field] = value
		}
		newRow[d.eventTimeField] = eventTime
		d.store.rows[key] = newRow
	}

	return nil
}
