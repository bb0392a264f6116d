package domain

type OnlineStore interface {
	// GetTableName returns the backend table name (or key prefix, for
	// key-value backends) holding the view's materialized rows.
	GetTableName(featureView *BaseFeatureView) string
	GetDatasourceName() string
}
