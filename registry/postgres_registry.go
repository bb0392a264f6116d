package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/datasource/pg"
	"github.com/featstore/featstore/fserrors"
	"github.com/huandu/go-sqlbuilder"
)

const createDefinitionsTable = `CREATE TABLE IF NOT EXISTS fs_definitions (
	project     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL,
	definition  JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (project, kind, name)
)`

const createWatermarksTable = `CREATE TABLE IF NOT EXISTS fs_watermarks (
	project      TEXT NOT NULL,
	feature_view TEXT NOT NULL,
	watermark    BIGINT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (project, feature_view)
)`

// PostgresRegistry persists definitions in a shared postgres catalog, one row
// per definition keyed by (project, kind, name) with the body as jsonb.
type PostgresRegistry struct {
	project string
	db      *sql.DB
}

func NewPostgresRegistry(project, dsn string) (*PostgresRegistry, error) {
	name := project + "_registry"
	if err := pg.RegisterPostgres(name, dsn); err != nil {
		return nil, &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	instance, err := pg.GetPostgres(name)
	if err != nil {
		return nil, &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}

	r := &PostgresRegistry{
		project: project,
		db:      instance.DB,
	}
	if _, err := r.db.Exec(createDefinitionsTable); err != nil {
		return nil, &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	if _, err := r.db.Exec(createWatermarksTable); err != nil {
		return nil, &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	return r, nil
}

// register inserts one definition, treating an identical re-register as a
// no-op. With upsert set the new definition always wins.
func (r *PostgresRegistry) register(kind, name string, definition interface{}, upsert bool) error {
	body, err := json.Marshal(definition)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, name, err)
	}

	if !upsert {
		var existing []byte
		err := r.queryDefinition(kind, name, &existing)
		if err == nil {
			if string(existing) == string(body) {
				return nil
			}
			return &fserrors.SchemaConflictError{Name: name, Reason: kind + " already registered with a different definition"}
		}
		if _, isNotFound := err.(*fserrors.NotFoundError); !isNotFound {
			return err
		}
	}

	query := `INSERT INTO fs_definitions (project, kind, name, definition, updated_at) VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (project, kind, name) DO UPDATE SET definition = EXCLUDED.definition, updated_at = now()`
	if _, err := r.db.Exec(query, r.project, kind, name, body); err != nil {
		return &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	return nil
}

func (r *PostgresRegistry) queryDefinition(kind, name string, body *[]byte) error {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("definition").From("fs_definitions")
	sb.Where(sb.Equal("project", r.project), sb.Equal("kind", kind), sb.Equal("name", name))
	query, args := sb.Build()

	err := r.db.QueryRow(query, args...).Scan(body)
	if err == sql.ErrNoRows {
		return &fserrors.NotFoundError{Kind: kind, Name: name}
	}
	if err != nil {
		return &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	return nil
}

func (r *PostgresRegistry) getDefinition(kind, name string, target interface{}) error {
	var body []byte
	if err := r.queryDefinition(kind, name, &body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, name, err)
	}
	return nil
}

func (r *PostgresRegistry) listDefinitions(kind string, decode func(body []byte) error) error {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("definition").From("fs_definitions")
	sb.Where(sb.Equal("project", r.project), sb.Equal("kind", kind))
	sb.OrderBy("name")
	query, args := sb.Build()

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	defer rows.Close()

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
		}
		if err := decode(body); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	return nil
}

func (r *PostgresRegistry) RegisterFeatureEntity(entity *api.FeatureEntity) error {
	if err := validateFeatureEntity(entity); err != nil {
		return err
	}
	return r.register(KindFeatureEntity, entity.FeatureEntityName, entity, false)
}

func (r *PostgresRegistry) RegisterDataSource(source *api.DataSource) error {
	if err := validateDataSource(source); err != nil {
		return err
	}
	return r.register(KindDataSource, source.Name, source, false)
}

func (r *PostgresRegistry) RegisterFeatureView(view *api.FeatureView) error {
	if err := validateFeatureView(r, view); err != nil {
		return err
	}
	return r.register(KindFeatureView, view.Name, view, false)
}

func (r *PostgresRegistry) RegisterOnDemandFeatureView(view *api.OnDemandFeatureView) error {
	if err := validateOnDemandFeatureView(r, view); err != nil {
		return err
	}
	return r.register(KindOnDemandFeatureView, view.Name, view, false)
}

func (r *PostgresRegistry) RegisterFeatureService(service *api.FeatureService) error {
	if err := validateFeatureService(r, service); err != nil {
		return err
	}
	return r.register(KindFeatureService, service.Name, service, false)
}

func (r *PostgresRegistry) RegisterSavedDataset(dataset *api.SavedDataset) error {
	if err := validateSavedDataset(dataset); err != nil {
		return err
	}
	return r.register(KindSavedDataset, dataset.Name, dataset, true)
}

func (r *PostgresRegistry) GetFeatureEntity(name string) (*api.FeatureEntity, error) {
	var entity api.FeatureEntity
	if err := r.getDefinition(KindFeatureEntity, name, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *PostgresRegistry) GetDataSource(name string) (*api.DataSource, error) {
	var source api.DataSource
	if err := r.getDefinition(KindDataSource, name, &source); err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *PostgresRegistry) GetFeatureView(name string) (*api.FeatureView, error) {
	var view api.FeatureView
	if err := r.getDefinition(KindFeatureView, name, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *PostgresRegistry) GetOnDemandFeatureView(name string) (*api.OnDemandFeatureView, error) {
	var view api.OnDemandFeatureView
	if err := r.getDefinition(KindOnDemandFeatureView, name, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *PostgresRegistry) GetFeatureService(name string) (*api.FeatureService, error) {
	var service api.FeatureService
	if err := r.getDefinition(KindFeatureService, name, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *PostgresRegistry) GetSavedDataset(name string) (*api.SavedDataset, error) {
	var dataset api.SavedDataset
	if err := r.getDefinition(KindSavedDataset, name, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (r *PostgresRegistry) ListFeatureEntities() ([]*api.FeatureEntity, error) {
	var result []*api.FeatureEntity
	err := r.listDefinitions(KindFeatureEntity, func(body []byte) error {
		var entity api.FeatureEntity
		if err := json.Unmarshal(body, &entity); err != nil {
			return err
		}
		result = append(result, &entity)
		return nil
	})
	return result, err
}

func (r *PostgresRegistry) ListDataSources() ([]*api.DataSource, error) {
	var result []*api.DataSource
	err := r.listDefinitions(KindDataSource, func(body []byte) error {
		var source api.DataSource
		if err := json.Unmarshal(body, &source); err != nil {
			return err
		}
		result = append(result, &source)
		return nil
	})
	return result, err
}

func (r *PostgresRegistry) ListFeatureViews() ([]*api.FeatureView, error) {
	var result []*api.FeatureView
	err := r.listDefinitions(KindFeatureView, func(body []byte) error {
		var view api.FeatureView
		if err := json.Unmarshal(body, &view); err != nil {
			return err
		}
		result = append(result, &view)
		return nil
	})
	return result, err
}

func (r *PostgresRegistry) ListOnDemandFeatureViews() ([]*api.OnDemandFeatureView, error) {
	var result []*api.OnDemandFeatureView
	err := r.listDefinitions(KindOnDemandFeatureView, func(body []byte) error {
		var view api.OnDemandFeatureView
		if err := json.Unmarshal(body, &view); err != nil {
			return err
		}
		result = append(result, &view)
		return nil
	})
	return result, err
}

func (r *PostgresRegistry) ListFeatureServices() ([]*api.FeatureService, error) {
	var result []*api.FeatureService
	err := r.listDefinitions(KindFeatureService, func(body []byte) error {
		var service api.FeatureService
		if err := json.Unmarshal(body, &service); err != nil {
			return err
		}
		result = append(result, &service)
		return nil
	})
	return result, err
}

func (r *PostgresRegistry) ListSavedDatasets() ([]*api.SavedDataset, error) {
	var result []*api.SavedDataset
	err := r.listDefinitions(KindSavedDataset, func(body []byte) error {
		var dataset api.SavedDataset
		if err := json.Unmarshal(body, &dataset); err != nil {
			return err
		}
		result = append(result, &dataset)
		return nil
	})
	return result, err
}

func (r *PostgresRegistry) GetWatermark(featureViewName string) (int64, bool, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("watermark").From("fs_watermarks")
	sb.Where(sb.Equal("project", r.project), sb.Equal("feature_view", featureViewName))
	query, args := sb.Build()

	var watermark int64
	err := r.db.QueryRow(query, args...).Scan(&watermark)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	return watermark, true, nil
}

func (r *PostgresRegistry) SetWatermark(featureViewName string, watermark int64) error {
	query := `INSERT INTO fs_watermarks (project, feature_view, watermark, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (project, feature_view) DO UPDATE SET watermark = EXCLUDED.watermark, updated_at = now()`
	if _, err := r.db.Exec(query, r.project, featureViewName, watermark); err != nil {
		return &fserrors.StoreUnavailableError{Store: "registry", Cause: err}
	}
	return nil
}

// Close is a no-op, the pooled connection belongs to the datasource registry
// and may be shared.
func (r *PostgresRegistry) Close() error {
	return nil
}

var _ Registry = (*PostgresRegistry)(nil)
var _ Registry = (*MemoryRegistry)(nil)
