package featurestore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/domain"
	"github.com/featstore/featstore/fserrors"
	"github.com/featstore/featstore/materialize"
	"github.com/featstore/featstore/registry"
)

type ClientOption func(c *FeatureStoreClient)

func WithLogger(l Logger) ClientOption {
	return func(e *FeatureStoreClient) {
		e.Logger = l
	}
}

func WithErrorLogger(l Logger) ClientOption {
	return func(e *FeatureStoreClient) {
		e.ErrorLogger = l
	}
}

func WithLoopData(loopLoad bool) ClientOption {
	return func(e *FeatureStoreClient) {
		e.loopLoadData = loopLoad
	}
}

func WithNoDatasourceInitClient() ClientOption {
	return func(e *FeatureStoreClient) {
		e.datasourceInitClient = false
	}
}

// WithLoadInterval overrides the definition reload interval.
func WithLoadInterval(interval time.Duration) ClientOption {
	return func(e *FeatureStoreClient) {
		e.loadInterval = interval
	}
}

// FeatureStoreClient is the retrieval facade. It holds a periodically
// refreshed snapshot of the project's definitions and delegates reads to the
// domain layer.
type FeatureStoreClient struct {
	// loopLoadData flag to invoke loopLoadProjectData function
	loopLoadData bool

	// datasourceInitClient flag to init store connections
	datasourceInitClient bool

	loadInterval time.Duration

	cfg *api.Configuration

	registry registry.Registry

	materializer *materialize.Materializer

	mu         sync.RWMutex
	projectMap map[string]*domain.Project

	stopLoop chan struct{}
	stopOnce sync.Once

	// Logger specifies a logger used to report internal changes within the client
	Logger Logger

	// ErrorLogger is the logger to report errors
	ErrorLogger Logger
}

func NewFeatureStoreClient(cfg *api.Configuration, reg registry.Registry, opts ...ClientOption) (*FeatureStoreClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := FeatureStoreClient{
		cfg:                  cfg,
		registry:             reg,
		projectMap:           make(map[string]*domain.Project),
		loopLoadData:         true,
		datasourceInitClient: true,
		loadInterval:         time.Minute,
		stopLoop:             make(chan struct{}),
	}

	for _, opt := range opts {
		opt(&client)
	}

	if err := client.LoadProjectData(); err != nil {
		return nil, err
	}

	client.materializer = materialize.NewMaterializer(reg, nil, client.Logger)
	project, _ := client.GetProject(cfg.ProjectName)
	client.materializer.SetProject(project)

	if client.loopLoadData {
		go client.loopLoadProjectData()
	}

	return &client, nil
}

func (c *FeatureStoreClient) GetProject(name string) (*domain.Project, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	project, ok := c.projectMap[name]
	if ok {
		return project, nil
	}

	return nil, fmt.Errorf("not found project, name:%s", name)
}

func (c *FeatureStoreClient) Registry() registry.Registry {
	return c.registry
}

func (c *FeatureStoreClient) logError(err error) {
	if c.ErrorLogger != nil {
		c.ErrorLogger.Printf(err.Error())
		return
	}

	if c.Logger != nil {
		c.Logger.Printf(err.Error())
	}
}

// LoadProjectData rebuilds the project snapshot from the registry and swaps
// it in atomically. A failed load keeps the previous snapshot.
func (c *FeatureStoreClient) LoadProjectData() error {
	project, err := domain.NewProject(c.cfg, c.datasourceInitClient)
	if err != nil {
		c.logError(fmt.Errorf("init project error, err=%v", err))
		return err
	}

	entities, err := c.registry.ListFeatureEntities()
	if err != nil {
		c.logError(fmt.Errorf("list feature entities error, err=%v", err))
		return err
	}
	for _, entity := range entities {
		project.FeatureEntityMap[entity.FeatureEntityName] = domain.NewFeatureEntity(entity)
	}

	sources, err := c.registry.ListDataSources()
	if err != nil {
		c.logError(fmt.Errorf("list data sources error, err=%v", err))
		return err
	}
	for _, source := range sources {
		project.DataSourceMap[source.Name] = source
	}

	views, err := c.registry.ListFeatureViews()
	if err != nil {
		c.logError(fmt.Errorf("list feature views error, err=%v", err))
		return err
	}
	for _, view := range views {
		entity := project.GetFeatureEntity(view.FeatureEntityName)
		source := project.GetDataSource(view.DataSourceName)
		if entity == nil || source == nil {
			c.logError(fmt.Errorf("feature view %s references missing definitions", view.Name))
			continue
		}
		project.FeatureViewMap[view.Name] = domain.NewFeatureView(view, project, entity, source)
	}

	onDemandViews, err := c.registry.ListOnDemandFeatureViews()
	if err != nil {
		c.logError(fmt.Errorf("list on demand feature views error, err=%v", err))
		return err
	}
	for _, view := range onDemandViews {
		odfv, err := domain.NewOnDemandFeatureView(view)
		if err != nil {
			c.logError(fmt.Errorf("load on demand feature view error, err=%v", err))
			return err
		}
		project.OnDemandFeatureViewMap[odfv.Name] = odfv
	}

	services, err := c.registry.ListFeatureServices()
	if err != nil {
		c.logError(fmt.Errorf("list feature services error, err=%v", err))
		return err
	}
	for _, service := range services {
		featureService, err := domain.NewFeatureService(service, project)
		if err != nil {
			c.logError(fmt.Errorf("load feature service %s error, err=%v", service.Name, err))
			return err
		}
		project.FeatureServiceMap[service.Name] = featureService
	}

	c.mu.Lock()
	c.projectMap[project.ProjectName] = project
	c.mu.Unlock()

	if c.materializer != nil {
		c.materializer.SetProject(project)
	}

	return nil
}

func (c *FeatureStoreClient) loopLoadProjectData() {
	for {
		select {
		case <-c.stopLoop:
			return
		case <-time.After(c.loadInterval):
			c.LoadProjectData()
		}
	}
}

// OnlineFeaturesRequest asks for features by service name or by explicit
// "view:field" refs, one result row per position of the join id slices.
// RequestData feeds the request-time fields of on-demand views and must be
// aligned with the join ids.
type OnlineFeaturesRequest struct {
	ServiceName string
	Features    []string
	EntityRows  map[string][]interface{}
	RequestData map[string][]interface{}
}

// OnlineFeaturesResponse carries the feature rows in request order. Staleness
// holds, per row, the materialized event time of every view that contributed
// values, keyed by view name.
type OnlineFeaturesResponse struct {
	Rows      []map[string]interface{}
	Staleness []map[string]int64
}

func (c *FeatureStoreClient) getFeatureService(serviceName string) (*domain.FeatureService, error) {
	project, err := c.GetProject(c.cfg.ProjectName)
	if err != nil {
		return nil, err
	}
	service := project.GetFeatureService(serviceName)
	if service == nil {
		return nil, &fserrors.NotFoundError{Kind: "feature service", Name: serviceName}
	}
	return service, nil
}

// serviceFromRefs builds a one-off retrieval plan from "view:field" refs,
// validated exactly like a registered service.
func (c *FeatureStoreClient) serviceFromRefs(refs []string) (*domain.FeatureService, error) {
	project, err := c.GetProject(c.cfg.ProjectName)
	if err != nil {
		return nil, err
	}

	features := make([]*api.ServiceFeature, 0, len(refs))
	for _, ref := range refs {
		viewName, fieldName, found := strings.Cut(ref, ":")
		if !found || viewName == "" || fieldName == "" {
			return nil, &fserrors.UnknownFeatureError{Ref: ref}
		}
		features = append(features, &api.ServiceFeature{FeatureViewName: viewName, Name: fieldName})
	}
	return domain.NewFeatureService(&api.FeatureService{Name: "ad_hoc", Features: features}, project)
}

func (c *FeatureStoreClient) GetOnlineFeatures(ctx context.Context, request *OnlineFeaturesRequest) (*OnlineFeaturesResponse, error) {
	var service *domain.FeatureService
	var err error
	if request.ServiceName != "" {
		service, err = c.getFeatureService(request.ServiceName)
	} else {
		service, err = c.serviceFromRefs(request.Features)
	}
	if err != nil {
		return nil, err
	}

	rows, staleness, err := service.GetOnlineFeatures(ctx, request.EntityRows, request.RequestData)
	if err != nil {
		return nil, err
	}
	return &OnlineFeaturesResponse{Rows: rows, Staleness: staleness}, nil
}

// GetHistoricalFeatures joins each entity row against the offline store as of
// the row's event_timestamp. Rows come back in input order with nulls where
// no source row qualifies.
func (c *FeatureStoreClient) GetHistoricalFeatures(ctx context.Context, serviceName string, entityRows []map[string]interface{}) ([]map[string]interface{}, error) {
	service, err := c.getFeatureService(serviceName)
	if err != nil {
		return nil, err
	}
	return service.GetHistoricalFeatures(ctx, entityRows)
}

// GetHistoricalFeaturesByRefs is the ad-hoc variant taking "view:field" refs
// instead of a registered service name.
func (c *FeatureStoreClient) GetHistoricalFeaturesByRefs(ctx context.Context, refs []string, entityRows []map[string]interface{}) ([]map[string]interface{}, error) {
	service, err := c.serviceFromRefs(refs)
	if err != nil {
		return nil, err
	}
	return service.GetHistoricalFeatures(ctx, entityRows)
}

func (c *FeatureStoreClient) Materialize(ctx context.Context, featureViewName string, from, to *time.Time) (*materialize.Result, error) {
	return c.materializer.Materialize(ctx, featureViewName, from, to)
}

func (c *FeatureStoreClient) MaterializeIncremental(ctx context.Context, featureViewName string) (*materialize.Result, error) {
	return c.materializer.MaterializeIncremental(ctx, featureViewName)
}

func (c *FeatureStoreClient) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopLoop)
	})
	return c.registry.Close()
}
