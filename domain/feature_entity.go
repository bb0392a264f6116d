package domain

import "github.com/featstore/featstore/api"

type FeatureEntity struct {
	*api.FeatureEntity
}

func NewFeatureEntity(entity *api.FeatureEntity) *FeatureEntity {
	featureEntity := &FeatureEntity{
		FeatureEntity: entity,
	}
	return featureEntity
}
