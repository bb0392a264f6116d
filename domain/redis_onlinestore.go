package domain

import (
	"fmt"

	"github.com/featstore/featstore/utils"
)

type RedisOnlineStore struct {
	Name    string
	Project string
}

// GetTableName returns the key prefix for the view. Hashed to keep redis keys
// short regardless of project and view name length.
func (s *RedisOnlineStore) GetTableName(featureView *BaseFeatureView) string {
	name := fmt.Sprintf("%s_%s_online", s.Project, featureView.Name)
	md5 := utils.Md5(name)
	return md5[:4] + "_"
}

func (s *RedisOnlineStore) GetDatasourceName() string {
	return s.Name
}
