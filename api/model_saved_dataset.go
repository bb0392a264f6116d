package api

import "time"

// SavedDataset records an immutable snapshot of a historical retrieval.
// The rows live in the offline store under Table; this definition only
// carries the metadata. Never mutated after creation.
type SavedDataset struct {
	Name               string            `json:"name" yaml:"name"`
	DatasetId          string            `json:"dataset_id" yaml:"dataset_id"`
	Features           []string          `json:"features" yaml:"features"`
	JoinKeys           []string          `json:"join_keys" yaml:"join_keys"`
	FeatureServiceName string            `json:"feature_service_name,omitempty" yaml:"feature_service_name,omitempty"`
	Table              string            `json:"table" yaml:"table"`
	RowCount           int               `json:"row_count" yaml:"row_count"`
	Tags               map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt          time.Time         `json:"created_at" yaml:"created_at"`
}
