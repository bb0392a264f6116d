package featurestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/dao"
	"github.com/google/uuid"
)

// CreateSavedDatasetRequest snapshots one historical retrieval under a name.
type CreateSavedDatasetRequest struct {
	Name           string
	ServiceName    string
	EntityRows     []map[string]interface{}
	Tags           map[string]string
	AllowOverwrite bool
}

func (c *FeatureStoreClient) savedDatasetDao() dao.SavedDatasetDao {
	project, _ := c.GetProject(c.cfg.ProjectName)
	return dao.NewSavedDatasetDao(dao.DaoConfig{
		DatasourceType: constants.Datasource_Type_SQLite,
		SQLiteName:     project.OfflineStore.GetDatasourceName(),
	})
}

// CreateSavedDataset runs the historical retrieval, checks the per-field
// validation rules of the contributing views against the result, persists the
// rows in the offline store and registers the dataset metadata.
func (c *FeatureStoreClient) CreateSavedDataset(ctx context.Context, request *CreateSavedDatasetRequest) (*api.SavedDataset, error) {
	if request.Name == "" {
		return nil, fmt.Errorf("saved dataset requires a name")
	}

	if existing, err := c.registry.GetSavedDataset(request.Name); err == nil && existing != nil {
		if !request.AllowOverwrite {
			return nil, fmt.Errorf("saved dataset %s already exists", request.Name)
		}
	}

	service, err := c.getFeatureService(request.ServiceName)
	if err != nil {
		return nil, err
	}

	rows, err := c.GetHistoricalFeatures(ctx, request.ServiceName, request.EntityRows)
	if err != nil {
		return nil, err
	}

	if err := c.checkValidationRules(service.JoinIdList(), rows); err != nil {
		return nil, err
	}

	datasetId := uuid.NewString()
	table := fmt.Sprintf("%s_saved_%s", c.cfg.ProjectName, request.Name)

	datasetDao := c.savedDatasetDao()
	if request.AllowOverwrite {
		if err := datasetDao.DropTable(ctx, table); err != nil {
			return nil, err
		}
	}
	if err := datasetDao.WriteRows(ctx, table, rows); err != nil {
		return nil, err
	}

	dataset := &api.SavedDataset{
		Name:               request.Name,
		DatasetId:          datasetId,
		Features:           service.OutputColumns(),
		JoinKeys:           service.JoinIdList(),
		FeatureServiceName: request.ServiceName,
		Table:              table,
		RowCount:           len(rows),
		Tags:               request.Tags,
		CreatedAt:          time.Now().UTC(),
	}
	if err := c.registry.RegisterSavedDataset(dataset); err != nil {
		return nil, err
	}

	return dataset, nil
}

// GetSavedDataset returns the dataset metadata together with its stored rows.
func (c *FeatureStoreClient) GetSavedDataset(ctx context.Context, name string) (*api.SavedDataset, []map[string]interface{}, error) {
	dataset, err := c.registry.GetSavedDataset(name)
	if err != nil {
		return nil, nil, err
	}

	rows, err := c.savedDatasetDao().ReadRows(ctx, dataset.Table)
	if err != nil {
		return nil, nil, err
	}
	return dataset, rows, nil
}

// checkValidationRules applies the field validation rules of every view whose
// features appear in the result rows. Rules are bound to raw field names, a
// column renamed by an alias is not checked.
func (c *FeatureStoreClient) checkValidationRules(joinIds []string, rows []map[string]interface{}) error {
	project, err := c.GetProject(c.cfg.ProjectName)
	if err != nil {
		return err
	}

	type boundRule struct {
		column string
		rule   *api.ValidationRule
	}
	var rules []boundRule
	viewNames := make([]string, 0, len(project.FeatureViewMap))
	for name := range project.FeatureViewMap {
		viewNames = append(viewNames, name)
	}
	sort.Strings(viewNames)
	for _, name := range viewNames {
		view := project.FeatureViewMap[name]
		for _, field := range view.GetFields() {
			if len(field.Validations) == 0 {
				continue
			}
			for _, rule := range field.Validations {
				rules = append(rules, boundRule{column: field.Name, rule: rule})
			}
		}
	}
	if len(rules) == 0 {
		return nil
	}

	for _, row := range rows {
		for _, bound := range rules {
			value, ok := row[bound.column]
			if !ok {
				continue
			}
			if err := bound.rule.Check(bound.column, value); err != nil {
				return err
			}
		}
	}
	return nil
}
