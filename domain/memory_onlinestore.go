package domain

import "fmt"

type MemoryOnlineStore struct {
	Project string
}

func (s *MemoryOnlineStore) GetTableName(featureView *BaseFeatureView) string {
	return fmt.Sprintf("%s_%s_online", s.Project, featureView.Name)
}

func (s *MemoryOnlineStore) GetDatasourceName() string {
	return s.Project
}
