package domain

type OfflineStore interface {
	GetDatasourceName() string
}

type SQLiteOfflineStore struct {
	Name string
}

func (s *SQLiteOfflineStore) GetDatasourceName() string {
	return s.Name
}
