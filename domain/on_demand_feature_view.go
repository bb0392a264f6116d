package domain

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/dao"
	"github.com/featstore/featstore/utils"
)

// exprFunctions are helpers available to on-demand expressions, mirroring the
// clamp/fallback operations feature transformations tend to need.
func exprFunctions() map[string]interface{} {
	return map[string]interface{}{
		"clip": func(v, lo, hi float64) float64 {
			if v < lo {
				return lo
			}
			if v > hi {
				return hi
			}
			return v
		},
		"coalesce": func(values ...interface{}) interface{} {
			for _, v := range values {
				if v != nil {
					return v
				}
			}
			return nil
		},
	}
}

type outputProgram struct {
	name    string
	fsType  constants.FSType
	program *vm.Program
	vars    []string
}

// OnDemandFeatureView computes derived features at request time. Programs are
// compiled once at construction; evaluation is a pure function of the input
// row.
type OnDemandFeatureView struct {
	*api.OnDemandFeatureView
	programs []*outputProgram
}

func NewOnDemandFeatureView(view *api.OnDemandFeatureView) (*OnDemandFeatureView, error) {
	odfv := &OnDemandFeatureView{
		OnDemandFeatureView: view,
	}

	functions := exprFunctions()
	for _, output := range view.Outputs {
		vars, err := dao.ExtractVariables(output.Expression)
		if err != nil {
			return nil, fmt.Errorf("on-demand view %s output %s: %w", view.Name, output.Name, err)
		}

		inputVars := make([]string, 0, len(vars))
		for _, v := range vars {
			if _, isFunc := functions[v]; isFunc {
				continue
			}
			inputVars = append(inputVars, v)
		}

		program, err := expr.Compile(output.Expression, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("on-demand view %s output %s: %w", view.Name, output.Name, err)
		}

		odfv.programs = append(odfv.programs, &outputProgram{
			name:    output.Name,
			fsType:  output.Type,
			program: program,
			vars:    inputVars,
		})
	}

	return odfv, nil
}

// InputVariables returns the union of variables referenced by the output
// expressions, sorted per expression and deduplicated across them.
func (v *OnDemandFeatureView) InputVariables() []string {
	seen := make(map[string]bool)
	var result []string
	for _, p := range v.programs {
		for _, name := range p.vars {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	return result
}

func (v *OnDemandFeatureView) OutputNames() []string {
	names := make([]string, 0, len(v.Outputs))
	for _, output := range v.Outputs {
		names = append(names, output.Name)
	}
	return names
}

func (v *OnDemandFeatureView) RequestFieldNames() []string {
	names := make([]string, 0, len(v.RequestFields))
	for _, field := range v.RequestFields {
		names = append(names, field.Name)
	}
	return names
}

// Evaluate applies the view's programs to one row of resolved base features
// and request fields. Outputs whose inputs are missing degrade to nil, never
// to an error: retrieval-time missing data is not a failure.
func (v *OnDemandFeatureView) Evaluate(row map[string]interface{}) (map[string]interface{}, error) {
	env := make(map[string]interface{}, len(row)+2)
	for k, val := range row {
		env[k] = val
	}
	for name, fn := range exprFunctions() {
		env[name] = fn
	}

	result := make(map[string]interface{}, len(v.programs))
	for _, p := range v.programs {
		missing := false
		for _, name := range p.vars {
			if value, ok := env[name]; !ok || value == nil {
				// outputs of earlier programs in this view are visible
				if out, exists := result[name]; exists && out != nil {
					env[name] = out
					continue
				}
				missing = true
				break
			}
		}
		if missing {
			result[p.name] = nil
			continue
		}

		value, err := expr.Run(p.program, env)
		if err != nil {
			return nil, fmt.Errorf("on-demand view %s output %s: %w", v.Name, p.name, err)
		}
		result[p.name] = convertOutput(value, p.fsType)
		env[p.name] = result[p.name]
	}

	return result, nil
}

func convertOutput(value interface{}, fsType constants.FSType) interface{} {
	if value == nil {
		return nil
	}

	switch fsType {
	case constants.FS_INT32, constants.FS_INT64, constants.FS_TIMESTAMP:
		return utils.ToInt64(value, 0)
	case constants.FS_FLOAT, constants.FS_DOUBLE:
		return utils.ToFloat64(value, 0)
	case constants.FS_BOOLEAN:
		return utils.ToBool(value, false)
	case constants.FS_STRING:
		return utils.ToString(value, "")
	default:
		return value
	}
}
