package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/dao"
	"github.com/featstore/featstore/fserrors"
)

// sameDefinition reports whether two definitions are byte-identical after
// canonical json encoding. Re-registering an identical definition is a no-op.
func sameDefinition(a, b interface{}) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

func validateFeatureEntity(entity *api.FeatureEntity) error {
	if entity.FeatureEntityName == "" {
		return fmt.Errorf("feature entity requires a name")
	}
	if entity.FeatureEntityJoinid == "" {
		return fmt.Errorf("feature entity %s requires a join id", entity.FeatureEntityName)
	}
	return nil
}

func validateDataSource(source *api.DataSource) error {
	if source.Name == "" {
		return fmt.Errorf("data source requires a name")
	}
	if source.Table == "" {
		return fmt.Errorf("data source %s requires a table", source.Name)
	}
	return nil
}

func validateFeatureView(r Registry, view *api.FeatureView) error {
	if view.Name == "" {
		return fmt.Errorf("feature view requires a name")
	}
	if view.Ttl < 0 {
		return fmt.Errorf("feature view %s ttl must not be negative", view.Name)
	}

	entity, err := r.GetFeatureEntity(view.FeatureEntityName)
	if err != nil {
		if errors.Is(err, fserrors.ErrNotFound) {
			return &fserrors.UnknownEntityError{Name: view.FeatureEntityName}
		}
		return err
	}
	if _, err := r.GetDataSource(view.DataSourceName); err != nil {
		return err
	}

	seen := make(map[string]bool)
	primaryKeys := 0
	for _, field := range view.Fields {
		if field.Name == "" {
			return fmt.Errorf("feature view %s has a field without a name", view.Name)
		}
		if seen[field.Name] {
			return &fserrors.SchemaConflictError{Name: view.Name, Field: field.Name, Reason: "duplicate field name"}
		}
		seen[field.Name] = true

		if field.IsPrimaryKey {
			primaryKeys++
			if field.Name != entity.FeatureEntityJoinid {
				return &fserrors.SchemaConflictError{
					Name:   view.Name,
					Field:  field.Name,
					Reason: fmt.Sprintf("primary key must be the entity join id %s", entity.FeatureEntityJoinid),
				}
			}
			if field.Type != entity.ValueType {
				return &fserrors.SchemaConflictError{
					Name:   view.Name,
					Field:  field.Name,
					Reason: "primary key type differs from the entity join key type",
				}
			}
		}
	}
	if primaryKeys != 1 {
		return &fserrors.SchemaConflictError{Name: view.Name, Reason: fmt.Sprintf("expected exactly one primary key field, got %d", primaryKeys)}
	}

	return nil
}

func validateOnDemandFeatureView(r Registry, view *api.OnDemandFeatureView) error {
	if view.Name == "" {
		return fmt.Errorf("on demand feature view requires a name")
	}
	if len(view.Outputs) == 0 {
		return fmt.Errorf("on demand feature view %s requires at least one output", view.Name)
	}

	resolvable := make(map[string]bool)
	for _, field := range view.RequestFields {
		resolvable[field.Name] = true
	}
	for _, output := range view.Outputs {
		resolvable[output.Name] = true
	}

	for _, source := range view.Sources {
		if source == view.Name {
			// self reference, surfaces as a cycle below
			continue
		}
		if sourceView, err := r.GetFeatureView(source); err == nil {
			for _, field := range sourceView.Fields {
				if !field.IsPrimaryKey && !field.IsEventTime {
					resolvable[field.Name] = true
				}
			}
			continue
		}
		sourceOdfv, err := r.GetOnDemandFeatureView(source)
		if err != nil {
			return &fserrors.NotFoundError{Kind: "feature view", Name: source}
		}
		for _, output := range sourceOdfv.Outputs {
			resolvable[output.Name] = true
		}
	}

	for _, output := range view.Outputs {
		if output.Name == "" {
			return fmt.Errorf("on demand feature view %s has an output without a name", view.Name)
		}
		if _, err := expr.Compile(output.Expression, expr.AllowUndefinedVariables()); err != nil {
			return fmt.Errorf("on demand feature view %s output %s: %w", view.Name, output.Name, err)
		}
		variables, err := dao.ExtractVariables(output.Expression)
		if err != nil {
			return fmt.Errorf("on demand feature view %s output %s: %w", view.Name, output.Name, err)
		}
		for _, variable := range variables {
			if !resolvable[variable] {
				return &fserrors.UnknownFeatureError{Ref: view.Name + ":" + variable}
			}
		}
	}

	return checkOnDemandCycle(r, view)
}

// checkOnDemandCycle walks the on-demand source graph as it would look with
// the candidate view registered and rejects any cycle it can reach.
func checkOnDemandCycle(r Registry, candidate *api.OnDemandFeatureView) error {
	views, err := r.ListOnDemandFeatureViews()
	if err != nil {
		return err
	}

	edges := make(map[string][]string, len(views)+1)
	for _, view := range views {
		edges[view.Name] = view.Sources
	}
	edges[candidate.Name] = candidate.Sources

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(edges))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case inStack:
			cycle := append(path, name)
			for i, n := range cycle {
				if n == name && i < len(cycle)-1 {
					cycle = cycle[i:]
					break
				}
			}
			return &fserrors.CyclicDependencyError{Cycle: cycle}
		}
		state[name] = inStack
		for _, source := range edges[name] {
			if _, isOdfv := edges[source]; !isOdfv {
				continue
			}
			if err := visit(source, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	return visit(candidate.Name, nil)
}

func validateFeatureService(r Registry, service *api.FeatureService) error {
	if service.Name == "" {
		return fmt.Errorf("feature service requires a name")
	}
	if len(service.Features) == 0 {
		return fmt.Errorf("feature service %s requires at least one feature", service.Name)
	}

	for _, feature := range service.Features {
		if view, err := r.GetFeatureView(feature.FeatureViewName); err == nil {
			if feature.Name == "*" {
				continue
			}
			found := false
			for _, field := range view.Fields {
				if field.Name == feature.Name && !field.IsPrimaryKey && !field.IsEventTime {
					found = true
					break
				}
			}
			if !found {
				return &fserrors.UnknownFeatureError{Ref: feature.FeatureViewName + ":" + feature.Name}
			}
			continue
		}

		odfv, err := r.GetOnDemandFeatureView(feature.FeatureViewName)
		if err != nil {
			return &fserrors.UnknownFeatureError{Ref: feature.FeatureViewName + ":" + feature.Name}
		}
		if feature.Name == "*" {
			continue
		}
		found := false
		for _, output := range odfv.Outputs {
			if output.Name == feature.Name {
				found = true
				break
			}
		}
		if !found {
			return &fserrors.UnknownFeatureError{Ref: feature.FeatureViewName + ":" + feature.Name}
		}
	}

	return nil
}

func validateSavedDataset(dataset *api.SavedDataset) error {
	if dataset.Name == "" {
		return fmt.Errorf("saved dataset requires a name")
	}
	return nil
}
