package api

type FeatureView struct {
	Name              string               `json:"name,omitempty" yaml:"name"`
	FeatureEntityName string               `json:"feature_entity_name,omitempty" yaml:"entity"`
	DataSourceName    string               `json:"data_source_name,omitempty" yaml:"source"`
	Owner             string               `json:"owner,omitempty" yaml:"owner,omitempty"`
	Online            bool                 `json:"online" yaml:"online"`
	Ttl               int                  `json:"ttl" yaml:"ttl"` // seconds, 0 means unbounded
	Tags              map[string]string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Fields            []*FeatureViewFields `json:"fields" yaml:"fields"`
}
