package domain

import (
	"context"
	"time"

	"github.com/featstore/featstore/api"
)

type FeatureView interface {
	// GetOnlineFeatures reads the materialized latest rows for the given join
	// id values. Keys with no row are absent from the result.
	GetOnlineFeatures(ctx context.Context, joinIds []interface{}, features []string, alias map[string]string) ([]map[string]interface{}, error)

	// GetHistoricalFeatures runs a point-in-time read: one result per input
	// position, nil where no source row qualifies.
	GetHistoricalFeatures(ctx context.Context, joinIds []interface{}, eventTimes []time.Time, features []string, alias map[string]string) ([]map[string]interface{}, error)

	// ScanSourceWindow reads source rows with event time in (from, to].
	ScanSourceWindow(ctx context.Context, from, to time.Time) ([]map[string]interface{}, error)

	// WriteOnlineFeatures upserts materialized rows into the online store.
	WriteOnlineFeatures(ctx context.Context, rows []map[string]interface{}) error

	EnsureSourceTable(ctx context.Context) error
	InsertSourceRows(ctx context.Context, rows []map[string]interface{}) error

	GetName() string
	GetFeatureEntityName() string
	GetFields() []api.FeatureViewFields
	GetFeatureFields() []string
	GetPrimaryKeyField() string
	GetEventTimeField() string
	GetCreateTimeField() string
	GetTTL() int
}

func NewFeatureView(view *api.FeatureView, p *Project, entity *FeatureEntity, source *api.DataSource) FeatureView {
	return NewBaseFeatureView(view, p, entity, source)
}
