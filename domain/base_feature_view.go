package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/dao"
)

type BaseFeatureView struct {
	*api.FeatureView
	Project         *Project
	FeatureEntity   *FeatureEntity
	DataSource      *api.DataSource
	featureFields   []string
	primaryKeyField api.FeatureViewFields
	eventTimeField  string
	createTimeField string
	featureViewDao  dao.FeatureViewDao
	offlineStoreDao dao.OfflineStoreDao
}

func NewBaseFeatureView(view *api.FeatureView, p *Project, entity *FeatureEntity, source *api.DataSource) *BaseFeatureView {
	featureView := &BaseFeatureView{
		FeatureView:   view,
		Project:       p,
		FeatureEntity: entity,
		DataSource:    source,
	}

	featureView.eventTimeField = source.EventTimeField
	if featureView.eventTimeField == "" {
		featureView.eventTimeField = constants.EventTimestampField
	}
	featureView.createTimeField = source.CreateTimeField

	for _, field := range view.Fields {
		if field.IsPrimaryKey {
			featureView.primaryKeyField = *field
		} else if field.IsEventTime {
			continue
		} else {
			featureView.featureFields = append(featureView.featureFields, field.Name)
		}
	}

	fieldTypeMap := make(map[string]constants.FSType, len(view.Fields)+1)
	for _, field := range view.Fields {
		fieldTypeMap[field.Name] = field.Type
	}
	fieldTypeMap[featureView.eventTimeField] = constants.FS_TIMESTAMP

	daoConfig := dao.DaoConfig{
		DatasourceType:  p.OnlineDatasourceType,
		Project:         p.ProjectName,
		FeatureViewName: view.Name,
		PrimaryKeyField: featureView.primaryKeyField.Name,
		EventTimeField:  featureView.eventTimeField,
		CreateTimeField: featureView.createTimeField,
		TTL:             view.Ttl,
		Fields:          featureView.featureFields,
		FieldTypeMap:    fieldTypeMap,
	}

	switch p.OnlineDatasourceType {
	case constants.Datasource_Type_Redis:
		daoConfig.RedisName = p.OnlineStore.GetDatasourceName()
		daoConfig.RedisPrefix = p.OnlineStore.GetTableName(featureView)
	case constants.Datasource_Type_MySQL:
		daoConfig.MySQLName = p.OnlineStore.GetDatasourceName()
		daoConfig.MySQLTableName = p.OnlineStore.GetTableName(featureView)
	case constants.Datasource_Type_Memory:
	default:
	}

	featureView.featureViewDao = dao.NewFeatureViewDao(daoConfig)

	offlineConfig := daoConfig
	offlineConfig.DatasourceType = p.OfflineDatasourceType
	offlineConfig.SQLiteName = p.OfflineStore.GetDatasourceName()
	offlineConfig.SQLiteTableName = source.Table
	featureView.offlineStoreDao = dao.NewOfflineStoreDao(offlineConfig)

	return featureView
}

// selectFields validates the requested feature names against the view schema
// and returns the fields to read, the primary key excluded.
func (f *BaseFeatureView) selectFields(features []string, alias map[string]string) ([]string, error) {
	var selectFields []string
	seenFields := make(map[string]bool)
	for _, featureName := range features {
		if featureName == "*" {
			for _, field := range f.featureFields {
				if !seenFields[field] {
					selectFields = append(selectFields, field)
					seenFields[field] = true
				}
			}
		} else {
			if seenFields[featureName] {
				continue
			}
			found := false
			for _, field := range f.featureFields {
				if field == featureName {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("feature name :%s not found in the featureview fields", featureName)
			}

			selectFields = append(selectFields, featureName)
			seenFields[featureName] = true
		}
	}

	for featureName := range alias {
		found := false
		for _, field := range f.featureFields {
			if field == featureName {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("feature name :%s not found in the featureview fields", featureName)
		}
	}

	return selectFields, nil
}

// normalizeRow maps the storage primary key column to the entity join id and
// applies alias renames in place.
func (f *BaseFeatureView) normalizeRow(featureMap map[string]interface{}, alias map[string]string) {
	if f.primaryKeyField.Name != f.FeatureEntity.FeatureEntityJoinid {
		if _, ok := featureMap[f.primaryKeyField.Name]; ok {
			featureMap[f.FeatureEntity.FeatureEntityJoinid] = featureMap[f.primaryKeyField.Name]
			delete(featureMap, f.primaryKeyField.Name)
		}
	}

	for featureName, aliasName := range alias {
		if _, ok := featureMap[featureName]; ok {
			featureMap[aliasName] = featureMap[featureName]
			delete(featureMap, featureName)
		}
	}
}

func (f *BaseFeatureView) GetOnlineFeatures(ctx context.Context, joinIds []interface{}, features []string, alias map[string]string) ([]map[string]interface{}, error) {
	selectFields, err := f.selectFields(features, alias)
	if err != nil {
		return nil, err
	}

	featureResult, err := f.featureViewDao.GetFeatures(ctx, joinIds, selectFields)
	if err != nil {
		return nil, err
	}

	for _, featureMap := range featureResult {
		f.normalizeRow(featureMap, alias)
	}

	return featureResult, nil
}

func (f *BaseFeatureView) GetHistoricalFeatures(ctx context.Context, joinIds []interface{}, eventTimes []time.Time, features []string, alias map[string]string) ([]map[string]interface{}, error) {
	selectFields, err := f.selectFields(features, alias)
	if err != nil {
		return nil, err
	}

	featureResult, err := f.offlineStoreDao.GetPointInTimeFeatures(ctx, joinIds, eventTimes, selectFields)
	if err != nil {
		return nil, err
	}

	for _, featureMap := range featureResult {
		if featureMap == nil {
			continue
		}
		f.normalizeRow(featureMap, alias)
	}

	return featureResult, nil
}

func (f *BaseFeatureView) ScanSourceWindow(ctx context.Context, from, to time.Time) ([]map[string]interface{}, error) {
	return f.offlineStoreDao.ScanWindow(ctx, from, to)
}

func (f *BaseFeatureView) WriteOnlineFeatures(ctx context.Context, rows []map[string]interface{}) error {
	if err := f.featureViewDao.EnsureStorage(ctx); err != nil {
		return err
	}
	return f.featureViewDao.WriteFeatures(ctx, rows)
}

func (f *BaseFeatureView) EnsureSourceTable(ctx context.Context) error {
	return f.offlineStoreDao.EnsureTable(ctx)
}

func (f *BaseFeatureView) InsertSourceRows(ctx context.Context, rows []map[string]interface{}) error {
	return f.offlineStoreDao.InsertRows(ctx, rows)
}

func (f *BaseFeatureView) GetName() string {
	return f.Name
}

func (f *BaseFeatureView) GetFeatureEntityName() string {
	return f.FeatureEntityName
}

func (f *BaseFeatureView) GetFields() []api.FeatureViewFields {
	fields := make([]api.FeatureViewFields, len(f.Fields))
	for i, field := range f.Fields {
		if field != nil {
			fields[i] = *field
		}
	}
	return fields
}

func (f *BaseFeatureView) GetFeatureFields() []string {
	return f.featureFields
}

func (f *BaseFeatureView) GetPrimaryKeyField() string {
	return f.primaryKeyField.Name
}

func (f *BaseFeatureView) GetEventTimeField() string {
	return f.eventTimeField
}

func (f *BaseFeatureView) GetCreateTimeField() string {
	return f.createTimeField
}

func (f *BaseFeatureView) GetTTL() int {
	return f.Ttl
}
