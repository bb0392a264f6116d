package registry

import (
	"sort"
	"sync"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/fserrors"
)

// MemoryRegistry keeps every definition in process memory. Used for tests and
// single-process deployments where no shared catalog is needed.
type MemoryRegistry struct {
	mu             sync.RWMutex
	featureEntitys map[string]*api.FeatureEntity
	dataSources    map[string]*api.DataSource
	featureViews   map[string]*api.FeatureView
	onDemandViews  map[string]*api.OnDemandFeatureView
	services       map[string]*api.FeatureService
	savedDatasets  map[string]*api.SavedDataset
	watermarks     map[string]int64
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		featureEntitys: make(map[string]*api.FeatureEntity),
		dataSources:    make(map[string]*api.DataSource),
		featureViews:   make(map[string]*api.FeatureView),
		onDemandViews:  make(map[string]*api.OnDemandFeatureView),
		services:       make(map[string]*api.FeatureService),
		savedDatasets:  make(map[string]*api.SavedDataset),
		watermarks:     make(map[string]int64),
	}
}

func (r *MemoryRegistry) RegisterFeatureEntity(entity *api.FeatureEntity) error {
	if err := validateFeatureEntity(entity); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.featureEntitys[entity.FeatureEntityName]; ok {
		if sameDefinition(existing, entity) {
			return nil
		}
		return &fserrors.SchemaConflictError{Name: entity.FeatureEntityName, Reason: "feature entity already registered with a different definition"}
	}
	r.featureEntitys[entity.FeatureEntityName] = entity
	return nil
}

func (r *MemoryRegistry) RegisterDataSource(source *api.DataSource) error {
	if err := validateDataSource(source); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.dataSources[source.Name]; ok {
		if sameDefinition(existing, source) {
			return nil
		}
		return &fserrors.SchemaConflictError{Name: source.Name, Reason: "data source already registered with a different definition"}
	}
	r.dataSources[source.Name] = source
	return nil
}

func (r *MemoryRegistry) RegisterFeatureView(view *api.FeatureView) error {
	if err := validateFeatureView(r, view); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.featureViews[view.Name]; ok {
		if sameDefinition(existing, view) {
			return nil
		}
		return &fserrors.SchemaConflictError{Name: view.Name, Reason: "feature view already registered with a different definition"}
	}
	r.featureViews[view.Name] = view
	return nil
}

func (r *MemoryRegistry) RegisterOnDemandFeatureView(view *api.OnDemandFeatureView) error {
	if err := validateOnDemandFeatureView(r, view); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.onDemandViews[view.Name]; ok {
		if sameDefinition(existing, view) {
			return nil
		}
		return &fserrors.SchemaConflictError{Name: view.Name, Reason: "on demand feature view already registered with a different definition"}
	}
	r.onDemandViews[view.Name] = view
	return nil
}

func (r *MemoryRegistry) RegisterFeatureService(service *api.FeatureService) error {
	if err := validateFeatureService(r, service); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.services[service.Name]; ok {
		if sameDefinition(existing, service) {
			return nil
		}
		return &fserrors.SchemaConflictError{Name: service.Name, Reason: "feature service already registered with a different definition"}
	}
	r.services[service.Name] = service
	return nil
}

// RegisterSavedDataset overwrites, the client decides whether an overwrite is
// allowed before calling.
func (r *MemoryRegistry) RegisterSavedDataset(dataset *api.SavedDataset) error {
	if err := validateSavedDataset(dataset); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedDatasets[dataset.Name] = dataset
	return nil
}

func (r *MemoryRegistry) GetFeatureEntity(name string) (*api.FeatureEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entity, ok := r.featureEntitys[name]; ok {
		return entity, nil
	}
	return nil, &fserrors.NotFoundError{Kind: KindFeatureEntity, Name: name}
}

func (r *MemoryRegistry) GetDataSource(name string) (*api.DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if source, ok := r.dataSources[name]; ok {
		return source, nil
	}
	return nil, &fserrors.NotFoundError{Kind: KindDataSource, Name: name}
}

func (r *MemoryRegistry) GetFeatureView(name string) (*api.FeatureView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if view, ok := r.featureViews[name]; ok {
		return view, nil
	}
	return nil, &fserrors.NotFoundError{Kind: KindFeatureView, Name: name}
}

func (r *MemoryRegistry) GetOnDemandFeatureView(name string) (*api.OnDemandFeatureView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if view, ok := r.onDemandViews[name]; ok {
		return view, nil
	}
	return nil, &fserrors.NotFoundError{Kind: KindOnDemandFeatureView, Name: name}
}

func (r *MemoryRegistry) GetFeatureService(name string) (*api.FeatureService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if service, ok := r.services[name]; ok {
		return service, nil
	}
	return nil, &fserrors.NotFoundError{Kind: KindFeatureService, Name: name}
}

func (r *MemoryRegistry) GetSavedDataset(name string) (*api.SavedDataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if dataset, ok := r.savedDatasets[name]; ok {
		return dataset, nil
	}
	return nil, &fserrors.NotFoundError{Kind: KindSavedDataset, Name: name}
}

func (r *MemoryRegistry) ListFeatureEntities() ([]*api.FeatureEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*api.FeatureEntity, 0, len(r.featureEntitys))
	for _, entity := range r.featureEntitys {
		result = append(result, entity)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FeatureEntityName < result[j].FeatureEntityName })
	return result, nil
}

func (r *MemoryRegistry) ListDataSources() ([]*api.DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*api.DataSource, 0, len(r.dataSources))
	for _, source := range r.dataSources {
		result = append(result, source)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) ListFeatureViews() ([]*api.FeatureView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*api.FeatureView, 0, len(r.featureViews))
	for _, view := range r.featureViews {
		result = append(result, view)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) ListOnDemandFeatureViews() ([]*api.OnDemandFeatureView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*api.OnDemandFeatureView, 0, len(r.onDemandViews))
	for _, view := range r.onDemandViews {
		result = append(result, view)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) ListFeatureServices() ([]*api.FeatureService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*api.FeatureService, 0, len(r.services))
	for _, service := range r.services {
		result = append(result, service)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) ListSavedDatasets() ([]*api.SavedDataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*api.SavedDataset, 0, len(r.savedDatasets))
	for _, dataset := range r.savedDatasets {
		result = append(result, dataset)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) GetWatermark(featureViewName string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	watermark, ok := r.watermarks[featureViewName]
	return watermark, ok, nil
}

func (r *MemoryRegistry) SetWatermark(featureViewName string, watermark int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watermarks[featureViewName] = watermark
	return nil
}

func (r *MemoryRegistry) Close() error {
	return nil
}
