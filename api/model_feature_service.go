package api

// FeatureService is a named, versioned bundle of feature references forming a
// consumer-facing retrieval contract.
type FeatureService struct {
	Name     string            `json:"name,omitempty" yaml:"name"`
	Features []*ServiceFeature `json:"features" yaml:"features"`
	Owner    string            `json:"owner,omitempty" yaml:"owner,omitempty"`
	Tags     map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type ServiceFeature struct {
	FeatureViewName string `json:"feature_view_name" yaml:"view"`
	Name            string `json:"name" yaml:"name"` // "*" selects every field of the view
	AliasName       string `json:"alias_name,omitempty" yaml:"alias,omitempty"`
}
