package domain

import "fmt"

type MySQLOnlineStore struct {
	Name    string
	Project string
}

func (s *MySQLOnlineStore) GetTableName(featureView *BaseFeatureView) string {
	return fmt.Sprintf("%s_%s_online", s.Project, featureView.Name)
}

func (s *MySQLOnlineStore) GetDatasourceName() string {
	return s.Name
}
