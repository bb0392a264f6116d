package api

import "github.com/featstore/featstore/constants"

type FeatureViewFields struct {
	Name         string            `json:"name,omitempty" yaml:"name"`
	Type         constants.FSType  `json:"type,omitempty" yaml:"type"`
	IsPrimaryKey bool              `json:"is_primary_key,omitempty" yaml:"is_primary_key,omitempty"`
	IsEventTime  bool              `json:"is_event_time,omitempty" yaml:"is_event_time,omitempty"`
	Position     int               `json:"position,omitempty" yaml:"position,omitempty"`
	Tags         map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Validations  []*ValidationRule `json:"validations,omitempty" yaml:"validations,omitempty"`
}
