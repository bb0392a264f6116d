package api

import (
	"fmt"
	"regexp"

	"github.com/featstore/featstore/utils"
)

// ValidationRule is a per-field data quality expectation checked when a
// retrieval result is persisted as a saved dataset. Null values always pass;
// missing data is handled by the retrieval path, not by validation.
type ValidationRule struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	In      []string `json:"in,omitempty" yaml:"in,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Note    string   `json:"note,omitempty" yaml:"note,omitempty"`
}

func (r *ValidationRule) Check(field string, value interface{}) error {
	if value == nil {
		return nil
	}

	if r.Min != nil || r.Max != nil {
		v := utils.ToFloat64(value, 0)
		if r.Min != nil && v < *r.Min {
			return fmt.Errorf("field %s value %v below minimum %v", field, value, *r.Min)
		}
		if r.Max != nil && v > *r.Max {
			return fmt.Errorf("field %s value %v above maximum %v", field, value, *r.Max)
		}
	}

	if len(r.In) > 0 {
		s := utils.ToString(value, "")
		found := false
		for _, allowed := range r.In {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("field %s value %v not in allowed set %v", field, value, r.In)
		}
	}

	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("field %s has invalid pattern %q: %v", field, r.Pattern, err)
		}
		if !re.MatchString(utils.ToString(value, "")) {
			return fmt.Errorf("field %s value %v does not match pattern %q", field, value, r.Pattern)
		}
	}

	return nil
}
