package api

import "github.com/featstore/featstore/constants"

// OnDemandFeatureView declares request-time derived features. Each output is
// an expression over the fields of its source views, the outputs of source
// on-demand views, and request-supplied fields. It owns no storage.
type OnDemandFeatureView struct {
	Name          string               `json:"name,omitempty" yaml:"name"`
	Sources       []string             `json:"sources,omitempty" yaml:"sources,omitempty"`
	RequestFields []*FeatureViewFields `json:"request_fields,omitempty" yaml:"request_fields,omitempty"`
	Outputs       []*OnDemandOutput    `json:"outputs" yaml:"outputs"`
	Description   string               `json:"description,omitempty" yaml:"description,omitempty"`
	Tags          map[string]string    `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type OnDemandOutput struct {
	Name       string           `json:"name" yaml:"name"`
	Type       constants.FSType `json:"type" yaml:"type"`
	Expression string           `json:"expression" yaml:"expression"`
}
