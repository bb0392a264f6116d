// Package registry stores and validates feature store definitions. All
// registration paths run the same structural validation, so a definition that
// made it into the registry is safe to load and serve.
package registry

import (
	"fmt"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
)

// Definition kinds as persisted.
const (
	KindFeatureEntity       = "feature_entity"
	KindDataSource          = "data_source"
	KindFeatureView         = "feature_view"
	KindOnDemandFeatureView = "on_demand_feature_view"
	KindFeatureService      = "feature_service"
	KindSavedDataset        = "saved_dataset"
)

// Registry is the authoritative catalog of one project's definitions plus the
// per-view materialization watermarks. Get methods return NotFoundError for
// missing names. Register methods are idempotent for byte-identical
// definitions and fail with SchemaConflictError when a name is reused with a
// different definition.
type Registry interface {
	RegisterFeatureEntity(entity *api.FeatureEntity) error
	RegisterDataSource(source *api.DataSource) error
	RegisterFeatureView(view *api.FeatureView) error
	RegisterOnDemandFeatureView(view *api.OnDemandFeatureView) error
	RegisterFeatureService(service *api.FeatureService) error
	RegisterSavedDataset(dataset *api.SavedDataset) error

	GetFeatureEntity(name string) (*api.FeatureEntity, error)
	GetDataSource(name string) (*api.DataSource, error)
	GetFeatureView(name string) (*api.FeatureView, error)
	GetOnDemandFeatureView(name string) (*api.OnDemandFeatureView, error)
	GetFeatureService(name string) (*api.FeatureService, error)
	GetSavedDataset(name string) (*api.SavedDataset, error)

	ListFeatureEntities() ([]*api.FeatureEntity, error)
	ListDataSources() ([]*api.DataSource, error)
	ListFeatureViews() ([]*api.FeatureView, error)
	ListOnDemandFeatureViews() ([]*api.OnDemandFeatureView, error)
	ListFeatureServices() ([]*api.FeatureService, error)
	ListSavedDatasets() ([]*api.SavedDataset, error)

	// GetWatermark returns the exclusive upper bound of the last successful
	// materialization for the view, in unix seconds. The bool reports whether
	// a watermark has been recorded at all.
	GetWatermark(featureViewName string) (int64, bool, error)
	SetWatermark(featureViewName string, watermark int64) error

	Close() error
}

func NewRegistry(cfg *api.Configuration) (Registry, error) {
	switch cfg.Registry.Type {
	case constants.Registry_Type_Memory:
		return NewMemoryRegistry(), nil
	case constants.Registry_Type_Postgres:
		return NewPostgresRegistry(cfg.ProjectName, cfg.Registry.DSN)
	}
	return nil, fmt.Errorf("not support registry type:%s", cfg.Registry.Type)
}
