package api

import "github.com/featstore/featstore/constants"

type FeatureEntity struct {
	FeatureEntityName   string            `json:"feature_entity_name" yaml:"name"`
	FeatureEntityJoinid string            `json:"feature_entity_joinid" yaml:"join_id"`
	ValueType           constants.FSType  `json:"value_type" yaml:"value_type"`
	Description         string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
