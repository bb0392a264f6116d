package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/fserrors"
	"github.com/featstore/featstore/utils"
)

// FeatureService resolves a consumer-facing bundle of feature references into
// the physical reads and on-demand computations that serve it. All reference
// validation happens in NewFeatureService, retrieval assumes a valid plan.
type FeatureService struct {
	*api.FeatureService
	project          *Project
	featureViewMap   map[string]FeatureView       // featureview : view
	featureEntityMap map[string]*FeatureEntity    // feature entity : entity
	featureNamesMap  map[string][]string          // featureview : feature names to read
	aliasNamesMap    map[string]map[string]string // featureview : feature name : alias
	joinIdViewsMap   map[string][]FeatureView     // feature entity joinid : featureviews
	joinIdList       []string                     // sorted feature entity joinids
	onDemandViews    []*OnDemandFeatureView       // evaluation order
	outputColumns    []string                     // projected result columns in reference order
}

func NewFeatureService(service *api.FeatureService, p *Project) (*FeatureService, error) {
	s := &FeatureService{
		FeatureService:   service,
		project:          p,
		featureViewMap:   make(map[string]FeatureView),
		featureEntityMap: make(map[string]*FeatureEntity),
		featureNamesMap:  make(map[string][]string),
		aliasNamesMap:    make(map[string]map[string]string),
		joinIdViewsMap:   make(map[string][]FeatureView),
	}

	var odfvNames []string
	for _, feature := range service.Features {
		if odfv := p.GetOnDemandFeatureView(feature.FeatureViewName); odfv != nil {
			if err := s.addOnDemandOutput(odfv, feature, &odfvNames); err != nil {
				return nil, err
			}
			continue
		}

		featureView := p.GetFeatureView(feature.FeatureViewName)
		if featureView == nil {
			return nil, &fserrors.UnknownFeatureError{Ref: feature.FeatureViewName + ":" + feature.Name}
		}
		if err := s.addViewFeature(featureView, feature); err != nil {
			return nil, err
		}
	}

	ordered, err := s.resolveOnDemandOrder(odfvNames)
	if err != nil {
		return nil, err
	}
	s.onDemandViews = ordered

	// fetch the base fields the on-demand expressions read, on top of the
	// fields the service exposes directly
	for _, odfv := range s.onDemandViews {
		if err := s.addOnDemandInputs(odfv); err != nil {
			return nil, err
		}
	}

	for joinId := range s.joinIdViewsMap {
		s.joinIdList = append(s.joinIdList, joinId)
	}
	sort.Strings(s.joinIdList)

	return s, nil
}

func (s *FeatureService) addViewFeature(featureView FeatureView, feature *api.ServiceFeature) error {
	viewName := featureView.GetName()
	if feature.Name != "*" {
		found := false
		for _, field := range featureView.GetFeatureFields() {
			if field == feature.Name {
				found = true
				break
			}
		}
		if !found {
			return &fserrors.UnknownFeatureError{Ref: viewName + ":" + feature.Name}
		}
	}

	s.registerView(featureView)
	s.featureNamesMap[viewName] = append(s.featureNamesMap[viewName], feature.Name)

	if feature.AliasName != "" {
		aliasMap, ok := s.aliasNamesMap[viewName]
		if !ok {
			aliasMap = make(map[string]string)
			s.aliasNamesMap[viewName] = aliasMap
		}
		aliasMap[feature.Name] = feature.AliasName
	}

	switch {
	case feature.AliasName != "":
		s.outputColumns = append(s.outputColumns, feature.AliasName)
	case feature.Name == "*":
		s.outputColumns = append(s.outputColumns, featureView.GetFeatureFields()...)
	default:
		s.outputColumns = append(s.outputColumns, feature.Name)
	}
	return nil
}

func (s *FeatureService) addOnDemandOutput(odfv *OnDemandFeatureView, feature *api.ServiceFeature, odfvNames *[]string) error {
	if feature.Name != "*" {
		found := false
		for _, output := range odfv.OutputNames() {
			if output == feature.Name {
				found = true
				break
			}
		}
		if !found {
			return &fserrors.UnknownFeatureError{Ref: odfv.Name + ":" + feature.Name}
		}
	}

	*odfvNames = append(*odfvNames, odfv.Name)

	switch {
	case feature.AliasName != "":
		s.outputColumns = append(s.outputColumns, feature.AliasName)
		aliasMap, ok := s.aliasNamesMap[odfv.Name]
		if !ok {
			aliasMap = make(map[string]string)
			s.aliasNamesMap[odfv.Name] = aliasMap
		}
		aliasMap[feature.Name] = feature.AliasName
	case feature.Name == "*":
		s.outputColumns = append(s.outputColumns, odfv.OutputNames()...)
	default:
		s.outputColumns = append(s.outputColumns, feature.Name)
	}
	return nil
}

func (s *FeatureService) registerView(featureView FeatureView) {
	viewName := featureView.GetName()
	if _, ok := s.featureViewMap[viewName]; ok {
		return
	}
	s.featureViewMap[viewName] = featureView

	entity := s.project.GetFeatureEntity(featureView.GetFeatureEntityName())
	s.featureEntityMap[entity.FeatureEntityName] = entity
	s.joinIdViewsMap[entity.FeatureEntityJoinid] = append(s.joinIdViewsMap[entity.FeatureEntityJoinid], featureView)
}

// resolveOnDemandOrder walks source links from the referenced on-demand views
// and returns the transitive closure in dependency order. Cycles are rejected
// at registration, a cycle seen here is a registry invariant violation.
func (s *FeatureService) resolveOnDemandOrder(names []string) ([]*OnDemandFeatureView, error) {
	visited := make(map[string]int) // 0 unvisited, 1 in progress, 2 done
	var ordered []*OnDemandFeatureView

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return &fserrors.CyclicDependencyError{Cycle: append(path, name)}
		}
		visited[name] = 1

		odfv := s.project.GetOnDemandFeatureView(name)
		if odfv == nil {
			return &fserrors.NotFoundError{Kind: "on demand feature view", Name: name}
		}
		for _, source := range odfv.Sources {
			if s.project.GetOnDemandFeatureView(source) != nil {
				if err := visit(source, append(path, name)); err != nil {
					return err
				}
			}
		}

		visited[name] = 2
		ordered = append(ordered, odfv)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// addOnDemandInputs resolves each input variable of an on-demand view against
// its sources and schedules the base fields it reads for fetching.
func (s *FeatureService) addOnDemandInputs(odfv *OnDemandFeatureView) error {
	requestFields := make(map[string]bool)
	for _, name := range odfv.RequestFieldNames() {
		requestFields[name] = true
	}
	odfvOutputs := make(map[string]bool)
	for _, output := range odfv.OutputNames() {
		odfvOutputs[output] = true
	}
	for _, source := range odfv.Sources {
		if sourceOdfv := s.project.GetOnDemandFeatureView(source); sourceOdfv != nil {
			for _, output := range sourceOdfv.OutputNames() {
				odfvOutputs[output] = true
			}
		}
	}

	for _, variable := range odfv.InputVariables() {
		if requestFields[variable] || odfvOutputs[variable] {
			continue
		}

		resolved := false
		for _, source := range odfv.Sources {
			featureView := s.project.GetFeatureView(source)
			if featureView == nil {
				continue
			}
			for _, field := range featureView.GetFeatureFields() {
				if field != variable {
					continue
				}
				s.registerView(featureView)
				already := false
				for _, name := range s.featureNamesMap[source] {
					if name == variable || name == "*" {
						already = true
						break
					}
				}
				if !already {
					s.featureNamesMap[source] = append(s.featureNamesMap[source], variable)
				}
				resolved = true
				break
			}
			if resolved {
				break
			}
		}
		if !resolved {
			return &fserrors.UnknownFeatureError{Ref: odfv.Name + ":" + variable}
		}
	}
	return nil
}

func (s *FeatureService) JoinIdList() []string {
	return s.joinIdList
}

func (s *FeatureService) OutputColumns() []string {
	return s.outputColumns
}

func (s *FeatureService) validateJoinIds(joinIds map[string][]interface{}) (int, error) {
	size := -1
	for _, joinId := range s.joinIdList {
		keys, ok := joinIds[joinId]
		if !ok {
			return 0, &fserrors.UnknownEntityError{Name: joinId}
		}
		if size == -1 {
			size = len(keys)
		} else if size != len(keys) {
			return 0, &fserrors.UnknownEntityError{Name: joinId}
		}
	}
	if size < 0 {
		size = 0
	}
	return size, nil
}

// GetOnlineFeatures reads the materialized rows for each referenced view,
// merges them by join id preserving input order, evaluates the on-demand
// views and projects the result. The second return value carries, per row,
// the source event timestamp of every view that contributed values.
func (s *FeatureService) GetOnlineFeatures(ctx context.Context, joinIds map[string][]interface{}, requestData map[string][]interface{}) ([]map[string]interface{}, []map[string]int64, error) {
	size, err := s.validateJoinIds(joinIds)
	if err != nil {
		return nil, nil, err
	}
	for name, values := range requestData {
		if len(values) != size {
			return nil, nil, &fserrors.UnknownFeatureError{Ref: name}
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	viewRows := make(map[string][]map[string]interface{})
	viewJoinId := make(map[string]string)

	for _, joinId := range s.joinIdList {
		keys := joinIds[joinId]
		for _, featureView := range s.joinIdViewsMap[joinId] {
			viewJoinId[featureView.GetName()] = joinId
			wg.Add(1)
			go func(featureView FeatureView, keys []interface{}) {
				defer wg.Done()
				rows, err := featureView.GetOnlineFeatures(ctx, keys, s.featureNamesMap[featureView.GetName()], s.aliasNamesMap[featureView.GetName()])
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				viewRows[featureView.GetName()] = rows
			}(featureView, keys)
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, nil, firstErr
	}

	result := make([]map[string]interface{}, size)
	staleness := make([]map[string]int64, size)
	for i := 0; i < size; i++ {
		result[i] = make(map[string]interface{})
		staleness[i] = make(map[string]int64)
		for _, joinId := range s.joinIdList {
			result[i][joinId] = joinIds[joinId][i]
		}
	}

	keyToIndex := make(map[string]map[string]int)
	for _, joinId := range s.joinIdList {
		idxMap := make(map[string]int)
		for idx, key := range joinIds[joinId] {
			idxMap[utils.ToString(key, "")] = idx
		}
		keyToIndex[joinId] = idxMap
	}

	for viewName, rows := range viewRows {
		joinId := viewJoinId[viewName]
		idxMap := keyToIndex[joinId]
		eventField := s.featureViewMap[viewName].GetEventTimeField()
		for _, row := range rows {
			joinIdVal, ok := row[joinId]
			if !ok {
				continue
			}
			idx, exists := idxMap[utils.ToString(joinIdVal, "")]
			if !exists {
				continue
			}
			if eventTs, ok := row[eventField]; ok {
				staleness[idx][viewName] = utils.ToInt64(eventTs, 0)
				delete(row, eventField)
			}
			for k, v := range row {
				result[idx][k] = v
			}
		}
	}

	if err := s.evaluateOnDemand(result, requestData); err != nil {
		return nil, nil, err
	}

	return s.projectRows(result), staleness, nil
}

// GetHistoricalFeatures runs a point-in-time join for each entity row. Every
// input row must carry the join id values of the service plus the
// event_timestamp column naming the reference time.
func (s *FeatureService) GetHistoricalFeatures(ctx context.Context, entityRows []map[string]interface{}) ([]map[string]interface{}, error) {
	size := len(entityRows)
	eventTimes := make([]time.Time, size)
	for i, row := range entityRows {
		ts, ok := row[constants.EventTimestampField]
		if !ok {
			return nil, &fserrors.UnknownFeatureError{Ref: constants.EventTimestampField}
		}
		eventTimes[i] = utils.ToTime(ts, time.Time{})
		for _, joinId := range s.joinIdList {
			if _, ok := row[joinId]; !ok {
				return nil, &fserrors.UnknownEntityError{Name: joinId}
			}
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	viewRows := make(map[string][]map[string]interface{})

	for _, joinId := range s.joinIdList {
		keys := make([]interface{}, size)
		for i, row := range entityRows {
			keys[i] = row[joinId]
		}
		for _, featureView := range s.joinIdViewsMap[joinId] {
			wg.Add(1)
			go func(featureView FeatureView, keys []interface{}) {
				defer wg.Done()
				rows, err := featureView.GetHistoricalFeatures(ctx, keys, eventTimes, s.featureNamesMap[featureView.GetName()], s.aliasNamesMap[featureView.GetName()])
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				viewRows[featureView.GetName()] = rows
			}(featureView, keys)
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	result := make([]map[string]interface{}, size)
	for i := 0; i < size; i++ {
		result[i] = make(map[string]interface{})
		for _, joinId := range s.joinIdList {
			result[i][joinId] = entityRows[i][joinId]
		}
		result[i][constants.EventTimestampField] = eventTimes[i].Unix()
	}

	for viewName, rows := range viewRows {
		eventField := s.featureViewMap[viewName].GetEventTimeField()
		for i, row := range rows {
			if row == nil {
				continue
			}
			delete(row, eventField)
			for k, v := range row {
				result[i][k] = v
			}
		}
	}

	requestData := make(map[string][]interface{})
	for _, odfv := range s.onDemandViews {
		for _, name := range odfv.RequestFieldNames() {
			if _, ok := requestData[name]; ok {
				continue
			}
			values := make([]interface{}, size)
			for i, row := range entityRows {
				values[i] = row[name]
			}
			requestData[name] = values
		}
	}
	if err := s.evaluateOnDemand(result, requestData); err != nil {
		return nil, err
	}

	projected := s.projectRows(result)
	for i := range projected {
		projected[i][constants.EventTimestampField] = eventTimes[i].Unix()
	}
	return projected, nil
}

func (s *FeatureService) evaluateOnDemand(rows []map[string]interface{}, requestData map[string][]interface{}) error {
	if len(s.onDemandViews) == 0 {
		return nil
	}

	for i, row := range rows {
		env := make(map[string]interface{}, len(row))
		for k, v := range row {
			env[k] = v
		}
		// expressions reference raw field names, undo alias renames for them
		for _, aliasMap := range s.aliasNamesMap {
			for name, aliasName := range aliasMap {
				if _, ok := env[name]; !ok {
					if v, ok := env[aliasName]; ok {
						env[name] = v
					}
				}
			}
		}
		for name, values := range requestData {
			env[name] = values[i]
		}

		for _, odfv := range s.onDemandViews {
			outputs, err := odfv.Evaluate(env)
			if err != nil {
				return err
			}
			aliasMap := s.aliasNamesMap[odfv.Name]
			for name, value := range outputs {
				env[name] = value
				if aliasName, ok := aliasMap[name]; ok {
					row[aliasName] = value
				} else {
					row[name] = value
				}
			}
		}
	}
	return nil
}

// projectRows trims each merged row down to the join ids and the columns the
// service declares, filling nil for features with no value.
func (s *FeatureService) projectRows(rows []map[string]interface{}) []map[string]interface{} {
	projected := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out := make(map[string]interface{}, len(s.outputColumns)+len(s.joinIdList))
		for _, joinId := range s.joinIdList {
			out[joinId] = row[joinId]
		}
		for _, column := range s.outputColumns {
			if value, ok := row[column]; ok {
				out[column] = value
			} else {
				out[column] = nil
			}
		}
		projected[i] = out
	}
	return projected
}
