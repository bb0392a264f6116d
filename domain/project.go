package domain

import (
	"fmt"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/datasource/mysqldb"
	"github.com/featstore/featstore/datasource/redisdb"
	"github.com/featstore/featstore/datasource/sqlitedb"
)

// Project holds the resolved definition graph of one feature store project
// together with its store bindings. It is rebuilt wholesale on every registry
// load and swapped in atomically by the client.
type Project struct {
	ProjectName           string
	OnlineDatasourceType  string
	OfflineDatasourceType string
	OnlineStore           OnlineStore
	OfflineStore          OfflineStore
	FeatureEntityMap      map[string]*FeatureEntity
	DataSourceMap         map[string]*api.DataSource
	FeatureViewMap        map[string]FeatureView
	OnDemandFeatureViewMap       map[string]*OnDemandFeatureView
	FeatureServiceMap     map[string]*FeatureService
}

func NewProject(cfg *api.Configuration, isInitClient bool) (*Project, error) {
	project := &Project{
		ProjectName:           cfg.ProjectName,
		OnlineDatasourceType:  cfg.OnlineStore.Type,
		OfflineDatasourceType: cfg.OfflineStore.Type,
		FeatureEntityMap:      make(map[string]*FeatureEntity),
		DataSourceMap:         make(map[string]*api.DataSource),
		FeatureViewMap:        make(map[string]FeatureView),
		OnDemandFeatureViewMap:       make(map[string]*OnDemandFeatureView),
		FeatureServiceMap:     make(map[string]*FeatureService),
	}

	switch cfg.OnlineStore.Type {
	case constants.Datasource_Type_Redis:
		onlineStore := &RedisOnlineStore{
			Name:    cfg.ProjectName + "_online",
			Project: cfg.ProjectName,
		}
		if isInitClient {
			if err := redisdb.RegisterRedis(onlineStore.Name, cfg.OnlineStore.Addr, cfg.OnlineStore.Password, cfg.OnlineStore.DB); err != nil {
				return nil, err
			}
		}
		project.OnlineStore = onlineStore
	case constants.Datasource_Type_MySQL:
		onlineStore := &MySQLOnlineStore{
			Name:    cfg.ProjectName + "_online",
			Project: cfg.ProjectName,
		}
		if isInitClient {
			if err := mysqldb.RegisterMySQL(onlineStore.Name, cfg.OnlineStore.DSN); err != nil {
				return nil, err
			}
		}
		project.OnlineStore = onlineStore
	case constants.Datasource_Type_Memory:
		project.OnlineStore = &MemoryOnlineStore{Project: cfg.ProjectName}
	default:
		return nil, fmt.Errorf("not support onlinestore type:%s", cfg.OnlineStore.Type)
	}

	switch cfg.OfflineStore.Type {
	case constants.Datasource_Type_SQLite:
		offlineStore := &SQLiteOfflineStore{
			Name: cfg.ProjectName + "_offline",
		}
		if isInitClient {
			if err := sqlitedb.RegisterSQLite(offlineStore.Name, cfg.OfflineStore.Path); err != nil {
				return nil, err
			}
		}
		project.OfflineStore = offlineStore
	default:
		return nil, fmt.Errorf("not support offlinestore type:%s", cfg.OfflineStore.Type)
	}

	return project, nil
}

func (p *Project) GetFeatureEntity(name string) *FeatureEntity {
	return p.FeatureEntityMap[name]
}

func (p *Project) GetDataSource(name string) *api.DataSource {
	return p.DataSourceMap[name]
}

func (p *Project) GetFeatureView(name string) FeatureView {
	return p.FeatureViewMap[name]
}

func (p *Project) GetOnDemandFeatureView(name string) *OnDemandFeatureView {
	return p.OnDemandFeatureViewMap[name]
}

func (p *Project) GetFeatureService(name string) *FeatureService {
	return p.FeatureServiceMap[name]
}
