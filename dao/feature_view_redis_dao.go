package dao

import (
	"context"

	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/datasource/redisdb"
	"github.com/featstore/featstore/utils"
	"github.com/go-redis/redis/v8"
)

// FeatureViewRedisDao keeps one hash per entity key, named
// <prefix><key value>. Hash fields are the feature columns plus the source
// event timestamp in unix seconds.
type FeatureViewRedisDao struct {
	redisClient     *redis.Client
	prefix          string
	primaryKeyField string
	eventTimeField  string
	fields          []string
	fieldTypeMap    map[string]constants.FSType
}

func NewFeatureViewRedisDao(config DaoConfig) *FeatureViewRedisDao {
	dao := FeatureViewRedisDao{
		prefix:          config.RedisPrefix,
		primaryKeyField: config.PrimaryKeyField,
		eventTimeField:  config.EventTimeField,
		fields:          config.Fields,
		fieldTypeMap:    config.FieldTypeMap,
	}
	client, err := redisdb.GetRedis(config.RedisName)
	if err != nil {
		return nil
	}

	dao.redisClient = client.Client
	return &dao
}

func (d *FeatureViewRedisDao) EnsureStorage(ctx context.Context) error {
	return nil
}

func (d *FeatureViewRedisDao) redisKey(key interface{}) string {
	return d.prefix + utils.ToString(key, "")
}

func (d *FeatureViewRedisDao) GetFeatures(ctx context.Context, keys []interface{}, selectFields []string) ([]map[string]interface{}, error) {
	hashFields := make([]string, 0, len(selectFields)+1)
	hashFields = append(hashFields, selectFields...)
	hashFields = append(hashFields, d.eventTimeField)

	var cmds []*redis.SliceCmd
	err := withRetry(ctx, constants.Datasource_Type_Redis, func() error {
		pipe := d.redisClient.Pipeline()
		cmds = cmds[:0]
		for _, key := range keys {
			cmds = append(cmds, pipe.HMGet(ctx, d.redisKey(key), hashFields...))
		}
		_, execErr := pipe.Exec(ctx)
		if execErr != nil && execErr != redis.Nil {
			return execErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]map[string]interface{}, 0, len(keys))
	for i, cmd := range cmds {
		values := cmd.Val()
		found := false
		for _, v := range values {
			if v != nil {
				found = true
				break
			}
		}
		if !found {
			continue
		}

		newMap := make(map[string]interface{}, len(selectFields)+2)
		newMap[d.primaryKeyField] = convertFSValue(keys[i], d.fieldTypeMap[d.primaryKeyField])
		for j, field := range hashFields {
			if values[j] == nil {
				continue
			}
			if field == d.eventTimeField {
				newMap[field] = utils.ToInt64(values[j], 0)
			} else {
				newMap[field] = convertFSValue(values[j], d.fieldTypeMap[field])
			}
		}
		result = append(result, newMap)
	}

	return result, nil
}

func (d *FeatureViewRedisDao) WriteFeatures(ctx context.Context, rows []map[string]interface{}) error {
	for _, row := range rows {
		key := d.redisKey(row[d.primaryKeyField])
		eventTime := utils.ToInt64(row[d.eventTimeField], 0)

		err := withRetry(ctx, constants.Datasource_Type_Redis, func() error {
			stored, getErr := d.redisClient.HGet(ctx, key, d.eventTimeField).Result()
			if getErr != nil && getErr != redis.Nil {
				return getErr
			}
			// keep the newest event per key; rewriting the same interval
			// is a no-op
			if getErr == nil && utils.ToInt64(stored, 0) > eventTime {
				return nil
			}

			values := make(map[string]interface{}, len(row))
			for field, value := range row {
				if field == d.primaryKeyField || value == nil {
					continue
				}
				values[field] = utils.ToString(value, "")
			}
			values[d.eventTimeField] = eventTime

			return d.redisClient.HSet(ctx, key, values).Err()
		})
		if err != nil {
			return err
		}
	}

	return nil
}
